package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the precision of the native currency: one whole unit is
// 10^18 smallest units.
const NativeDecimals = 18

// ParseNative converts a human amount such as "0.5" into smallest units.
// Amounts with more than NativeDecimals fractional digits are rejected.
func ParseNative(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	units := d.Shift(NativeDecimals)
	if !units.IsInteger() {
		return decimal.Zero, fmt.Errorf("invalid amount %q: more than %d decimal places", s, NativeDecimals)
	}
	if units.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid amount %q: must not be negative", s)
	}
	return units, nil
}

// MustParseNative is ParseNative for literals.
func MustParseNative(s string) decimal.Decimal {
	d, err := ParseNative(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Native returns n whole units expressed in smallest units.
func Native(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Shift(NativeDecimals)
}

// FormatNative renders smallest units as whole units, e.g. "19.5".
func FormatNative(units decimal.Decimal) string {
	return units.Shift(-NativeDecimals).String()
}
