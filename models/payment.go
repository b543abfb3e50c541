package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentDetails is built fresh for every attempt and handed to the gateway
// by value.
type PaymentDetails struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OrderID       string          `json:"order_id"`
	Description   string          `json:"description"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
}

// PaymentResult is produced exactly once per attempt. Success and Error are
// mutually exclusive.
type PaymentResult struct {
	Success        bool   `json:"success"`
	TransactionID  string `json:"transaction_id,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	GatewayOrderID string `json:"gateway_order_id,omitempty"`
}

// Attempt statuses stored on PaymentAttempt.
const (
	AttemptStatusSucceeded = "succeeded"
	AttemptStatusFailed    = "failed"
)

// MaxOrderIDLen bounds application order ids to what the audit row stores.
const MaxOrderIDLen = 64

// PaymentAttempt is the audit row written for every terminal attempt.
type PaymentAttempt struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID        string         `gorm:"type:varchar(64);index;not null"`
	OrderID       string         `gorm:"type:varchar(64);index;not null"`
	Amount        int64          `gorm:"not null"` // in paise/cents
	Currency      string         `gorm:"type:varchar(10);not null"`
	Provider      string         `gorm:"type:varchar(20)"`
	GatewayOrder  string         `gorm:"type:varchar(64);index"`
	Status        string         `gorm:"type:varchar(20);not null"`
	ErrorKind     string         `gorm:"type:varchar(40)"`
	ErrorMessage  string         `gorm:"type:varchar(255)"`
	TransactionID *string        `gorm:"uniqueIndex"`
	SucceededAt   *time.Time
	FailedAt      *time.Time
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}
