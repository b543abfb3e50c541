package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID       string          `json:"id" binding:"required"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price" binding:"gte=0"`
	Quantity int             `json:"quantity" binding:"required,min=1"`
}

// Subtotal is price × quantity for the line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}
