package strategy

import "arbitragefx/internal/market"

// Carry evaluates the funding/liquidation/depeg driven carry strategy.
// It shares the momentum reducer's warm-up, vol-pause, and aux-gating
// semantics but prioritizes carry signals over trend-following entries,
// and throttles open risk on any volatility spike rather than only on
// stop-loss.
func Carry(view market.MarketView, state *StrategyState, p *StrategyParams) Action {
	if view.Now-state.StartTs < p.StartDelaySecs {
		return HoldAction
	}

	ind := view.Indicators
	if ind.ZVol > p.VolPauseMult {
		return HoldAction
	}
	if !p.AuxReq.Meets(view.Aux) {
		return HoldAction
	}

	aux := view.Aux

	if aux.HasFunding && absf(aux.FundingRate) > p.FundingHigh &&
		(!aux.HasBorrow || aux.BorrowRate < absf(aux.FundingRate)-p.FundingSpread) {
		if aux.FundingRate > 0 {
			return SellAction(p.BaselineQty)
		}
		return BuyAction(p.BaselineQty)
	}

	if aux.HasLiquidations && aux.LiquidationScore > p.LiqTh {
		if ind.ZMomentum >= 0 {
			return BuyAction(p.BaselineQty)
		}
		return SellAction(p.BaselineQty)
	}

	if aux.HasDepeg && absf(aux.StableDepeg) > p.DepegTh {
		if aux.StableDepeg > 0 {
			return SellAction(p.BaselineQty)
		}
		return BuyAction(p.BaselineQty)
	}

	if state.Position != 0 {
		movePct := 0.0
		if state.EntryPrice != 0 {
			movePct = (view.Candle.Close - state.EntryPrice) / state.EntryPrice
			if state.Position < 0 {
				movePct = -movePct
			}
		}

		// stop-loss always fires
		if movePct <= -p.StopLoss {
			return CloseAction
		}

		heldCandles := int64(0)
		if p.CandleSecs > 0 {
			heldCandles = (view.Now - state.LastTradeTs) / p.CandleSecs
		}
		if heldCandles >= p.MinHoldCandles {
			// vol-spike-triggered close takes priority over take-profit
			if ind.ZVol > p.VolPauseMult*0.6 {
				return CloseAction
			}
			if movePct >= p.TakeProfit {
				return CloseAction
			}
		}
	}

	return HoldAction
}
