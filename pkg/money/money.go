// Package money holds the fixed-point helpers shared by the pricing, shipping
// and ledger code. Amounts are EGP with two decimal places.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every persisted amount carries.
const Places int32 = 2

var (
	Zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns amount × pct / 100 rounded to cents.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(hundred))
}

// Rate returns amount × rate rounded to cents.
func Rate(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

// Max returns the largest of the provided values.
func Max(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal {
	return decimal.Max(first, rest...)
}

// Sum adds the provided values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Times multiplies an amount by an item quantity.
func Times(amount decimal.Decimal, qty int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(qty)))
}

// Parse reads a decimal string and rejects more than two fractional digits.
func Parse(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if !d.Equal(Round(d)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", value, Places)
	}
	return d, nil
}

// String formats an amount with exactly two decimal places.
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// ToMinor converts an amount to whole piasters.
func ToMinor(d decimal.Decimal) int64 {
	return Round(d).Shift(Places).IntPart()
}

// FromMinor converts piasters back to an amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -Places)
}
