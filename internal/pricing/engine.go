// Package pricing resolves unit prices for bulk water orders from static
// quantity-bracket tables. All functions are pure and safe for concurrent use.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrTierNotFound means the quantity falls outside every configured bracket
// for the size (or the size itself is unknown). Quantities above the largest
// bracket are rejected rather than clamped: such orders need a sales quote,
// not a silently reused bulk price.
var ErrTierNotFound = errors.New("no price tier for quantity")

// ResolveUnitPrice maps (size, quantity, customLabel) to a per-unit price.
// The custom-label surcharge is a flat addition, not tiered.
func ResolveUnitPrice(size ProductSize, quantity int, customLabel bool) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, fmt.Errorf("%w: size=%s quantity=%d", ErrTierNotFound, size, quantity)
	}
	for _, t := range tiers[size] {
		if quantity >= t.MinQuantity && quantity <= t.MaxQuantity {
			if customLabel {
				return t.UnitPrice.Add(CustomLabelSurcharge), nil
			}
			return t.UnitPrice, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: size=%s quantity=%d", ErrTierNotFound, size, quantity)
}

// ResolveLineSubtotal is quantity times the resolved unit price, rounded to
// 2 places at the subtotal so bulk quantities don't compound per-unit
// rounding error.
func ResolveLineSubtotal(size ProductSize, quantity int, customLabel bool) (decimal.Decimal, error) {
	unit, err := ResolveUnitPrice(size, quantity, customLabel)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2), nil
}
