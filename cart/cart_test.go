package cart

import (
	"testing"

	"checkout-service/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(id, price string, qty int) models.CartItem {
	return models.CartItem{ID: id, Name: "item " + id, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []models.CartItem
		want  string
	}{
		{name: "empty", items: nil, want: "0"},
		{name: "single", items: []models.CartItem{item("a", "249.50", 2)}, want: "499"},
		{name: "mixed", items: []models.CartItem{item("a", "0.10", 3), item("b", "0.20", 1)}, want: "0.5"},
		{name: "fractional_paise", items: []models.CartItem{item("a", "499.995", 1)}, want: "499.995"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, decimal.RequireFromString(tt.want).Equal(Total(tt.items)), "got %s", Total(tt.items))
		})
	}
}

func TestMerge(t *testing.T) {
	items := []models.CartItem{item("a", "10", 1)}

	items = Merge(items, item("b", "5", 2))
	assert.Len(t, items, 2)

	items = Merge(items, models.CartItem{ID: "a", Quantity: 3})
	assert.Len(t, items, 2)
	assert.Equal(t, 4, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(items[0].Price))
	assert.Equal(t, "item a", items[0].Name)
}
