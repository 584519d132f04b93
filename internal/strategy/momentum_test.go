package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arbitragefx/internal/market"
)

func baseParams() StrategyParams {
	p := DefaultParams()
	p.EdgeHurdle = 0
	return p
}

func baseView(now int64, close float64, ind market.IndicatorSnapshot) market.MarketView {
	return market.MarketView{
		Symbol:     "BTC-USDT",
		Now:        now,
		Candle:     market.Candle{Ts: now, Close: close},
		Indicators: ind,
		Ready:      true,
	}
}

func TestMomentumWarmupHolds(t *testing.T) {
	p := baseParams()
	p.StartDelaySecs = 100
	s := &StrategyState{StartTs: 0}
	action := Momentum(baseView(50, 100, market.IndicatorSnapshot{}), s, &p)
	assert.Equal(t, HoldAction, action)
}

func TestMomentumVolSpikePauses(t *testing.T) {
	p := baseParams()
	s := &StrategyState{StartTs: 0}
	ind := market.IndicatorSnapshot{ZVol: p.VolPauseMult + 1, ZMomentum: 5}
	action := Momentum(baseView(1000, 100, ind), s, &p)
	assert.Equal(t, HoldAction, action)
}

func TestMomentumAuxGateHoldsWhenRequiredSignalMissing(t *testing.T) {
	p := baseParams()
	p.AuxReq = market.AuxRequirements{Funding: true}
	s := &StrategyState{StartTs: 0}
	view := baseView(1000, 100, market.IndicatorSnapshot{ZMomentum: 5})
	view.Aux = market.AuxBundle{HasFunding: false}
	action := Momentum(view, s, &p)
	assert.Equal(t, HoldAction, action)
}

func TestMomentumFundingCarryOverridesScore(t *testing.T) {
	p := baseParams()
	s := &StrategyState{StartTs: 0}
	view := baseView(1000, 100, market.IndicatorSnapshot{ZMomentum: 5})
	view.Aux = market.AuxBundle{HasFunding: true, FundingRate: p.FundingHigh + 0.001}
	action := Momentum(view, s, &p)
	assert.Equal(t, Sell, action.Kind)
}

func TestMomentumLiquidationCascadeFollowsMomentumSign(t *testing.T) {
	p := baseParams()
	s := &StrategyState{StartTs: 0}
	view := baseView(1000, 100, market.IndicatorSnapshot{ZMomentum: -2})
	view.Aux = market.AuxBundle{HasLiquidations: true, LiquidationScore: p.LiqTh + 0.1}
	action := Momentum(view, s, &p)
	assert.Equal(t, Sell, action.Kind)
}

func TestMomentumStopLossBypassesMinHold(t *testing.T) {
	p := baseParams()
	p.MinHoldCandles = 10
	p.CandleSecs = 60
	s := &StrategyState{StartTs: 0, Position: 1, EntryPrice: 100, LastTradeTs: 990}
	view := baseView(1000, 100*(1-p.StopLoss-0.001), market.IndicatorSnapshot{})
	action := Momentum(view, s, &p)
	assert.Equal(t, CloseAction, action)
}

func TestMomentumTakeProfitRequiresMinHold(t *testing.T) {
	p := baseParams()
	p.MinHoldCandles = 3
	p.CandleSecs = 60
	s := &StrategyState{StartTs: 0, Position: 1, EntryPrice: 100, LastTradeTs: 0}
	// only one candle elapsed: min hold not met, take-profit must not fire
	view := baseView(60, 100*(1+p.TakeProfit+0.01), market.IndicatorSnapshot{})
	action := Momentum(view, s, &p)
	assert.NotEqual(t, CloseAction, action)
}

func TestMomentumDefaultHold(t *testing.T) {
	p := baseParams()
	s := &StrategyState{StartTs: 0}
	action := Momentum(baseView(1000, 100, market.IndicatorSnapshot{}), s, &p)
	assert.Equal(t, HoldAction, action)
}

func TestMomentumScoreEntryRequiresTrendConfirmation(t *testing.T) {
	p := baseParams()
	s := &StrategyState{StartTs: 0}
	// strong positive score but a down trend: entry must not fire on that branch
	ind := market.IndicatorSnapshot{EMAFast: 90, EMASlow: 100, ZMomentum: p.EntryTh + 1}
	action := Momentum(baseView(1000, 100, ind), s, &p)
	assert.NotEqual(t, Buy, action.Kind)
}

func TestMomentumScoreEntryFiresBuyOnConfirmedUptrend(t *testing.T) {
	p := DefaultParams()
	s := &StrategyState{StartTs: 0}
	ind := market.IndicatorSnapshot{EMAFast: 110, EMASlow: 100, ZMomentum: p.EntryTh + 3.8}
	action := Momentum(baseView(1000, 100, ind), s, &p)
	assert.Equal(t, Buy, action.Kind)
}

func TestMomentumEdgeHurdleHoldsOnWeakScore(t *testing.T) {
	p := DefaultParams()
	p.EdgeHurdle = 1.0
	s := &StrategyState{StartTs: 0}
	action := Momentum(baseView(1000, 100, market.IndicatorSnapshot{}), s, &p)
	assert.Equal(t, HoldAction, action)
}

func TestMomentumDepegSnapbackFadesDislocation(t *testing.T) {
	p := DefaultParams()
	s := &StrategyState{StartTs: 0}
	view := baseView(1000, 100, market.IndicatorSnapshot{})
	view.Aux = market.AuxBundle{HasDepeg: true, StableDepeg: p.DepegTh + 0.01}
	action := Momentum(view, s, &p)
	assert.Equal(t, Sell, action.Kind)

	view.Aux.StableDepeg = -(p.DepegTh + 0.01)
	action = Momentum(view, s, &p)
	assert.Equal(t, Buy, action.Kind)
}

func TestMomentumPositionExitTimeStopFires(t *testing.T) {
	p := DefaultParams()
	p.TimeStopSecs = 100
	p.MinHoldCandles = 1
	p.CandleSecs = 60
	s := &StrategyState{StartTs: 0, Position: 1, EntryPrice: 100, LastTradeTs: 0}
	view := baseView(200, 100, market.IndicatorSnapshot{})
	action := Momentum(view, s, &p)
	assert.Equal(t, CloseAction, action)
}

func TestMomentumPositionExitByScoreFlip(t *testing.T) {
	p := DefaultParams()
	s := &StrategyState{StartTs: 0, Position: 1, EntryPrice: 100, LastTradeTs: 0}
	ind := market.IndicatorSnapshot{ZMomentum: -5}
	view := baseView(300, 100, ind)
	action := Momentum(view, s, &p)
	assert.Equal(t, CloseAction, action)
}

func TestMomentumRegimeSwitchLowVolFollowsMomentumIntoScoreEntry(t *testing.T) {
	p := DefaultParams()
	s := &StrategyState{StartTs: 0}
	ind := market.IndicatorSnapshot{
		EMAFast: 110, EMASlow: 100, ZMomentum: p.EntryTh + 3.8,
		RollingSigmaPrice: 10, RollingSigmaVol: 1,
	}
	action := Momentum(baseView(1000, 100, ind), s, &p)
	assert.Equal(t, Buy, action.Kind)
}

func TestMomentumRegimeSwitchHighVolMeanRevertFires(t *testing.T) {
	p := DefaultParams()
	s := &StrategyState{StartTs: 0}
	ind := market.IndicatorSnapshot{
		EMAFast: 90, EMASlow: 100, ZStretch: 2,
		RollingSigmaPrice: 1, RollingSigmaVol: 5,
	}
	action := Momentum(baseView(1000, 100, ind), s, &p)
	assert.Equal(t, Sell, action.Kind)
}

func TestMomentumStrongTrendOverrideFiresWithoutScoreConfirmation(t *testing.T) {
	p := DefaultParams()
	s := &StrategyState{StartTs: 0}
	ind := market.IndicatorSnapshot{EMAFast: 110, EMASlow: 100}
	action := Momentum(baseView(1000, 100, ind), s, &p)
	assert.Equal(t, Buy, action.Kind)
}
