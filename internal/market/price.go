package market

import "github.com/yanun0323/decimal"

// FormatPrice renders a price at fixed decimal precision for display
// (result JSON, logs). Indicator math and candle storage stay float64
// throughout; this conversion only ever runs at the output boundary.
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).String()
}
