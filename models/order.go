package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const OrderStatusPending = "pending"

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID          string          `gorm:"type:varchar(64);not null;index"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending'"`
	ShippingName    string          `gorm:"type:varchar(255)"`
	ShippingAddress string          `gorm:"type:varchar(512)"`
	ShippingCity    string          `gorm:"type:varchar(128)"`
	ShippingPostal  string          `gorm:"type:varchar(32)"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
	OrderItems      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID string          `gorm:"type:varchar(64);not null"`
	Name      string          `gorm:"type:varchar(255)"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

// DraftOrder is what the checkout page hands to the order service.
type DraftOrder struct {
	UserID          string
	Items           []CartItem
	Total           decimal.Decimal
	ShippingAddress ShippingInfo
	Status          string
}
