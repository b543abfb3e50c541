package models

// User is the read-only view of the signed-in customer. A nil *User means a
// guest.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}
