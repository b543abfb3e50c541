package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"499.995", 50000},
		{"10.004", 1000},
		{"10.005", 1001},
		{"0.005", 1},
		{"1", 100},
		{"999999.99", 99999999},
		{"12.345678", 1235},
	}
	for _, tt := range tests {
		got, err := MinorUnits(decimal.RequireFromString(tt.amount))
		require.NoError(t, err, tt.amount)
		assert.Equal(t, tt.want, got, tt.amount)
	}
}

func TestMinorUnits_Rejects(t *testing.T) {
	for _, amount := range []string{"0", "-1", "0.004", "-0.005", "100000000000000000000"} {
		_, err := MinorUnits(decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, ErrInvalidMinorAmount, amount)
	}
}
