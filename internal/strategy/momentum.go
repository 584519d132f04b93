package strategy

import "arbitragefx/internal/market"

// Momentum evaluates the 13-branch momentum decision tree, evaluated in
// strict order with first match winning. Pure: it must not mutate state
// or view and must be bit-deterministic given its inputs.
func Momentum(view market.MarketView, state *StrategyState, p *StrategyParams) Action {
	// 1. warm-up
	if view.Now-state.StartTs < p.StartDelaySecs {
		return HoldAction
	}

	ind := view.Indicators

	// 2. vol-spike pause
	if ind.ZVol > p.VolPauseMult {
		return HoldAction
	}

	// 3. aux freshness gate
	if !p.AuxReq.Meets(view.Aux) {
		return HoldAction
	}

	// 4. trend
	trend := sign(ind.EMAFast - ind.EMASlow)
	strongTrend := false
	if ind.EMASlow != 0 {
		strongTrend = absf((ind.EMAFast-ind.EMASlow)/ind.EMASlow) > 0.01
	}

	// 5. score
	stretchContrib := 0.0
	meanReversionAligns := sign(-ind.ZStretch) == trend
	if meanReversionAligns || !strongTrend {
		stretchContrib = -0.4 * ind.ZStretch
	}
	score := 1.0*ind.ZMomentum + 0.3*ind.ZVol + 0.5*ind.ZVolumeSpike + stretchContrib

	// 6. edge hurdle
	expectedEdge := absf(score) * p.EdgeScale
	if expectedEdge < p.EdgeHurdle {
		return HoldAction
	}

	aux := view.Aux

	// 7. funding carry
	if aux.HasFunding && absf(aux.FundingRate) > p.FundingHigh &&
		(!aux.HasBorrow || aux.BorrowRate < absf(aux.FundingRate)-p.FundingSpread) {
		if aux.FundingRate > 0 {
			return SellAction(p.BaselineQty)
		}
		return BuyAction(p.BaselineQty)
	}

	// 8. liquidation cascade
	if aux.HasLiquidations && aux.LiquidationScore > p.LiqTh {
		if ind.ZMomentum >= 0 {
			return BuyAction(p.BaselineQty)
		}
		return SellAction(p.BaselineQty)
	}

	// 9. depeg snapback (fade the dislocation)
	if aux.HasDepeg && absf(aux.StableDepeg) > p.DepegTh {
		if aux.StableDepeg > 0 {
			return SellAction(p.BaselineQty)
		}
		return BuyAction(p.BaselineQty)
	}

	// 10. position exits
	if state.Position != 0 {
		movePct := 0.0
		if state.EntryPrice != 0 {
			movePct = (view.Candle.Close - state.EntryPrice) / state.EntryPrice
			if state.Position < 0 {
				movePct = -movePct
			}
		}

		// stop-loss always fires, bypasses min_hold_candles
		if movePct <= -p.StopLoss {
			return CloseAction
		}

		heldCandles := int64(0)
		if p.CandleSecs > 0 {
			heldCandles = (view.Now - state.LastTradeTs) / p.CandleSecs
		}
		minHoldMet := heldCandles >= p.MinHoldCandles

		if minHoldMet {
			if movePct >= p.TakeProfit {
				return CloseAction
			}
			if p.TimeStopSecs > 0 && view.Now-state.LastTradeTs >= p.TimeStopSecs {
				return CloseAction
			}
			exitByScore := (state.Position > 0 && score < 0) || (state.Position < 0 && score > 0)
			if exitByScore {
				return CloseAction
			}
		}
	}

	// 11. regime switch
	volRatio := 1.0
	if ind.RollingSigmaPrice > 0 {
		volRatio = ind.RollingSigmaVol / maxf(ind.RollingSigmaPrice, eps)
	}
	if volRatio < p.VolLow {
		// low-vol regime: follow momentum, fall through to score entry below.
	} else if volRatio > p.VolHigh {
		// high-vol regime: mean-revert only when aligned with trend.
		if meanReversionAligns {
			if ind.ZStretch > 0 {
				return SellAction(p.BaselineQty)
			}
			if ind.ZStretch < 0 {
				return BuyAction(p.BaselineQty)
			}
		}
		return HoldAction
	}

	// 12. score-based entry with trend confirmation
	if score > p.EntryTh && trend >= 0 {
		return BuyAction(p.BaselineQty)
	}
	if score < -p.EntryTh && trend <= 0 {
		return SellAction(p.BaselineQty)
	}

	// 13. strong-trend override
	if strongTrend {
		if trend > 0 {
			return BuyAction(p.BaselineQty)
		}
		if trend < 0 {
			return SellAction(p.BaselineQty)
		}
	}

	// 14. default
	return HoldAction
}

const eps = 1e-12

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
