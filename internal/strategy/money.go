package strategy

import "github.com/yanun0323/decimal"

// FormatMoney renders a cash/equity/pnl value at fixed decimal precision
// for display (result JSON, logs). StrategyState tracks every money
// field as float64; this conversion only ever runs at the output
// boundary, never in the hot path.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).String()
}
