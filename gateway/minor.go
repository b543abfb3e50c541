package gateway

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidMinorAmount = errors.New("amount does not convert to a positive minor-unit value")

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// MinorUnits converts amount to the gateway's integer minor units: amount ×
// 100 rounded half away from zero. 499.995 becomes 50000 and 10.004 becomes
// 1000.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(hundred).Round(0)
	if !minor.IsPositive() || minor.GreaterThan(maxMinor) {
		return 0, ErrInvalidMinorAmount
	}
	return minor.IntPart(), nil
}
