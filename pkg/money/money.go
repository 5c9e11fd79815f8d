package money

import "github.com/shopspring/decimal"

// Kroner converts an øre amount into kroner.
func Kroner(ore int64) decimal.Decimal {
	return decimal.NewFromInt(ore).Shift(-2)
}

// Format renders an øre amount as kroner with two decimals, e.g. 6500 → "65.00".
func Format(ore int64) string {
	return Kroner(ore).StringFixed(2)
}
