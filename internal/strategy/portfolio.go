package strategy

import "math"

// Fill is an executed trade applied against a StrategyState.
type Fill struct {
	ClientOrderID string
	StrategyID    string
	Ts            int64
	Price         float64
	Qty           float64 // signed: positive buy, negative sell
	Fee           float64
}

// ApplyFill applies a fill to the strategy's portfolio ledger using
// weighted-average entry on same-direction adds and realized-PnL
// recognition on flips/closes. Returns the realized PnL from this fill.
//
// dayOffsetSecs shifts the UTC day boundary used to roll TradesToday:
// day := (f.Ts + dayOffsetSecs) / 86400, so a venue whose trading day
// starts at a non-midnight-UTC hour can still get a clean daily reset.
//
// Grounded on the original PortfolioState::apply_fill weighted-average
// entry algorithm: on a same-sign add the entry price blends by size; on
// a sign flip the closed portion realizes PnL at the old entry price and
// the residual (if any) re-enters at the fill price.
func ApplyFill(s *StrategyState, f Fill, dayOffsetSecs int64) float64 {
	if f.Qty == 0 {
		return 0
	}

	var realized float64
	prevPos := s.Position
	newPos := prevPos + f.Qty

	if prevPos != 0 && sign(prevPos) != sign(f.Qty) {
		closeQty := math.Min(math.Abs(prevPos), math.Abs(f.Qty))
		dir := 1.0
		if prevPos < 0 {
			dir = -1.0
		}
		realized = (f.Price - s.EntryPrice) * closeQty * dir
	}

	s.Cash -= f.Price*f.Qty + f.Fee
	s.Position = newPos

	switch {
	case prevPos == 0:
		s.EntryPrice = f.Price
	case sign(prevPos) == sign(newPos):
		if math.Abs(newPos) > math.Abs(prevPos) {
			total := math.Abs(prevPos) + math.Abs(f.Qty)
			if total > 0 {
				s.EntryPrice = (s.EntryPrice*math.Abs(prevPos) + f.Price*math.Abs(f.Qty)) / total
			}
		}
	case newPos != 0:
		s.EntryPrice = f.Price
	}

	s.checkEntryInvariant()
	s.Equity = s.Cash + s.Position*f.Price
	s.updateDrawdown()

	s.RealizedPnl += realized
	if realized > 0 {
		s.Wins++
	} else if realized < 0 {
		s.Losses++
		s.LastLossTs = f.Ts
	}
	s.LastTradeTs = f.Ts

	day := (f.Ts + dayOffsetSecs) / 86400
	if s.TradeDay != day {
		s.TradeDay = day
		s.TradesToday = 0
	}
	s.TradesToday++

	return realized
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
