/*
Strategy implements the pure decision reducer: (MarketView, *StrategyState,
*StrategyParams) -> Action. Two concrete strategies are provided: momentum
(z-score blend) and carry (funding/liquidation driven).

# Module
  - portfolio ledger: cash/position/entry-price/equity bookkeeping
  - momentum reducer: 13-branch decision tree
  - carry reducer: funding/liquidation/depeg driven decisions

# Source
  - market.MarketView built by the run loop at the loop seam

# Produce
  - Action, consumed by the risk gate

# Sharded
  - strategy_id
*/
package strategy

import (
	"strconv"

	"arbitragefx/internal/market"
)

// Action is the strategy's proposed move. Qty is always positive;
// direction is encoded in the variant.
type Action struct {
	Kind ActionKind
	Qty  float64
}

// ActionKind enumerates the variants of Action.
type ActionKind int

const (
	Hold ActionKind = iota
	Buy
	Sell
	Close
)

func (k ActionKind) String() string {
	switch k {
	case Hold:
		return "Hold"
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	case Close:
		return "Close"
	default:
		return "Unknown"
	}
}

// HoldAction is the canonical zero-value Hold.
var HoldAction = Action{Kind: Hold}

// CloseAction is the canonical zero-value Close.
var CloseAction = Action{Kind: Close}

// BuyAction builds a Buy{qty} action.
func BuyAction(qty float64) Action { return Action{Kind: Buy, Qty: qty} }

// SellAction builds a Sell{qty} action.
func SellAction(qty float64) Action { return Action{Kind: Sell, Qty: qty} }

// Intent is an action annotated with identity and a submit timestamp,
// ready for dispatch to the simulator or live adapter. ClientOrderID has
// the shape CID-{strategy_id}-{submit_ts}-{seq} and must be globally
// unique across strategies — a hard invariant enforced by NewClientOrderID's
// caller supplying a monotonically increasing seq per run.
type Intent struct {
	Action        Action
	StrategyID    string
	ClientOrderID string
	SubmitTs      int64
}

// NewClientOrderID builds the canonical CID shape.
func NewClientOrderID(strategyID string, submitTs int64, seq uint64) string {
	return "CID-" + strategyID + "-" + strconv.FormatInt(submitTs, 10) + "-" + strconv.FormatUint(seq, 10)
}

// StrategyState is the mutable state exclusively owned by the run loop.
// Mutation happens only at the run-loop seam; strategies receive it
// read-only via pointer for reducer calls but never mutate it themselves.
type StrategyState struct {
	ID           string
	Position     float64
	EntryPrice   float64
	Cash         float64
	Equity       float64
	RealizedPnl  float64
	Wins         uint64
	Losses       uint64
	LastTradeTs  int64
	LastLossTs   int64
	TradesToday  uint64
	TradeDay     int64
	StartTs      int64
	MaxDrawdown  float64
	peakEquity   float64
}

// Invariant: position == 0 => entry_price == 0.
func (s *StrategyState) checkEntryInvariant() {
	if s.Position == 0 {
		s.EntryPrice = 0
	}
}

// MarkToMarket recomputes Equity at the given mark price without applying
// a fill, preserving the invariant equity == cash + position*mark_price.
func (s *StrategyState) MarkToMarket(markPrice float64) {
	s.Equity = s.Cash + s.Position*markPrice
	s.updateDrawdown()
}

func (s *StrategyState) updateDrawdown() {
	if s.Equity > s.peakEquity {
		s.peakEquity = s.Equity
	}
	dd := s.Equity - s.peakEquity
	if dd < s.MaxDrawdown {
		s.MaxDrawdown = dd
	}
}

// MtmPnl is realized PnL plus unrealized PnL at the given mark price
// (spec §4.3 guard 4 / GLOSSARY "MTM PnL").
func (s *StrategyState) MtmPnl(markPrice float64) float64 {
	unrealized := s.Position * (markPrice - s.EntryPrice)
	return s.RealizedPnl + unrealized
}

// StrategyParams bundles the tunable constants consumed by both the
// momentum and carry reducers. Field names match the spec's config keys.
type StrategyParams struct {
	StartDelaySecs  int64
	VolPauseMult    float64
	AuxReq          market.AuxRequirements
	EdgeScale       float64
	EdgeHurdle      float64
	EntryTh         float64
	TakeProfit      float64
	StopLoss        float64
	TimeStopSecs    int64
	MinHoldCandles  int64
	CandleSecs      int64
	VolLow          float64
	VolHigh         float64
	FundingHigh     float64
	FundingSpread   float64
	LiqTh           float64
	DepegTh         float64
	BaselineQty     float64
	DayOffsetSecs   int64 // UTC seconds offset applied before deriving the trade day boundary
}

// DefaultParams returns the spec's documented defaults.
func DefaultParams() StrategyParams {
	return StrategyParams{
		StartDelaySecs: 0,
		VolPauseMult:   2.5,
		EdgeScale:      1.0,
		EdgeHurdle:     0.0,
		EntryTh:        1.2,
		TakeProfit:     0.02,
		StopLoss:       0.01,
		TimeStopSecs:   3600,
		MinHoldCandles: 3,
		CandleSecs:     60,
		VolLow:         0.5,
		VolHigh:        2.0,
		FundingHigh:    0.0005,
		FundingSpread:  0.0001,
		LiqTh:          0.8,
		DepegTh:        0.01,
		BaselineQty:    0.01,
		DayOffsetSecs:  0,
	}
}
