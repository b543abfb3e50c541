// Package cart defines the per-user cart store used by checkout and payment.
package cart

import (
	"context"

	"checkout-service/models"

	"github.com/shopspring/decimal"
)

// Store holds line items per user. Implementations must be safe for
// concurrent use.
type Store interface {
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
	Add(ctx context.Context, userID string, item models.CartItem) (*models.Cart, error)
	Remove(ctx context.Context, userID, itemID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// Total is the sum of price × quantity over items.
func Total(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Merge adds item to items, accumulating quantity when the ID is already
// present.
func Merge(items []models.CartItem, item models.CartItem) []models.CartItem {
	for i, existing := range items {
		if existing.ID == item.ID {
			items[i].Quantity += item.Quantity
			if !item.Price.IsZero() {
				items[i].Price = item.Price
			}
			if item.Name != "" {
				items[i].Name = item.Name
			}
			return items
		}
	}
	return append(items, item)
}
