package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyFillOpensPosition(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	realized := ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 1, Fee: 1}, 0)
	assert.Zero(t, realized)
	assert.Equal(t, 1.0, s.Position)
	assert.Equal(t, 100.0, s.EntryPrice)
	assert.Equal(t, 1000.0-100-1, s.Cash)
}

func TestApplyFillSameDirectionAddBlendsEntryPrice(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 1}, 0)
	ApplyFill(s, Fill{Ts: 20, Price: 200, Qty: 1}, 0)
	assert.Equal(t, 2.0, s.Position)
	assert.Equal(t, 150.0, s.EntryPrice)
}

func TestApplyFillPartialCloseRealizesPnlAtOldEntry(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 2}, 0)
	realized := ApplyFill(s, Fill{Ts: 20, Price: 120, Qty: -1}, 0)
	assert.Equal(t, 20.0, realized)
	assert.Equal(t, 1.0, s.Position)
	assert.Equal(t, 100.0, s.EntryPrice, "residual position keeps the original entry price")
	assert.Equal(t, uint64(1), s.Wins)
}

func TestApplyFillFlipReentersAtFillPrice(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 1}, 0)
	realized := ApplyFill(s, Fill{Ts: 20, Price: 90, Qty: -2}, 0)
	assert.Equal(t, -10.0, realized)
	assert.Equal(t, -1.0, s.Position)
	assert.Equal(t, 90.0, s.EntryPrice)
	assert.Equal(t, uint64(1), s.Losses)
}

func TestApplyFillFullCloseZeroesEntryPrice(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 1}, 0)
	ApplyFill(s, Fill{Ts: 20, Price: 110, Qty: -1}, 0)
	assert.Zero(t, s.Position)
	assert.Zero(t, s.EntryPrice)
}

func TestApplyFillTradesTodayResetsOnDayBoundary(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 1}, 0)
	assert.Equal(t, uint64(1), s.TradesToday)
	ApplyFill(s, Fill{Ts: 20, Price: 101, Qty: 1}, 0)
	assert.Equal(t, uint64(2), s.TradesToday)
	ApplyFill(s, Fill{Ts: 86400 + 5, Price: 101, Qty: 1}, 0)
	assert.Equal(t, uint64(1), s.TradesToday)
}

func TestApplyFillTradesTodayResetsOnConfiguredUTCOffset(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	offset := int64(-4 * 3600) // day rolls at 04:00 UTC instead of midnight
	fiveDaysIn := int64(5 * 86400)

	ApplyFill(s, Fill{Ts: fiveDaysIn + 3*3600, Price: 100, Qty: 1}, offset)
	assert.Equal(t, uint64(1), s.TradesToday)

	ApplyFill(s, Fill{Ts: fiveDaysIn + 3*3600 + 1800, Price: 101, Qty: 1}, offset)
	assert.Equal(t, uint64(2), s.TradesToday, "03:30 UTC is still within the offset day that started at 04:00 the day before")

	ApplyFill(s, Fill{Ts: fiveDaysIn + 5*3600, Price: 102, Qty: 1}, offset)
	assert.Equal(t, uint64(1), s.TradesToday, "05:00 UTC has crossed the 04:00 boundary into a new trading day")
}

func TestMarkToMarketTracksDrawdown(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 1}, 0)
	s.MarkToMarket(120)
	assert.Equal(t, 1020.0, s.Equity)
	assert.Zero(t, s.MaxDrawdown)
	s.MarkToMarket(90)
	assert.Equal(t, 990.0, s.Equity)
	assert.Equal(t, 990.0-1020.0, s.MaxDrawdown)
}

func TestMtmPnlCombinesRealizedAndUnrealized(t *testing.T) {
	s := &StrategyState{Cash: 1000}
	ApplyFill(s, Fill{Ts: 10, Price: 100, Qty: 2}, 0)
	ApplyFill(s, Fill{Ts: 20, Price: 110, Qty: -1}, 0)
	pnl := s.MtmPnl(115)
	assert.Equal(t, 10.0+1*(115-100.0), pnl)
}
