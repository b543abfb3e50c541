package models

type ShippingInfo struct {
	FullName   string `json:"full_name" binding:"max=255"`
	Address    string `json:"address" binding:"max=255"`
	City       string `json:"city" binding:"max=255"`
	PostalCode string `json:"postal_code" binding:"max=32"`
}
