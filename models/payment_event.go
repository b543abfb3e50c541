package models

import "time"

type PaymentEvent struct {
	Type          string    `json:"type"` // e.g. "payment_succeeded", "payment_failed", "notice"
	AttemptID     string    `json:"attempt_id,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	UserID        string    `json:"user_id"`
	Provider      string    `json:"provider,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"` // smallest currency unit
	Currency      string    `json:"currency,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	Message       string    `json:"message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
