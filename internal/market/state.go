package market

const candleRingCapacity = 500

// MarketView is an immutable per-decision snapshot handed to a strategy
// reducer. It bundles the latest candle, the indicator snapshot, the aux
// bundle, and the current timestamp; strategies never see the underlying
// mutable State.
type MarketView struct {
	Symbol     string
	Now        int64
	Candle     Candle
	Indicators IndicatorSnapshot
	Aux        AuxBundle
	Ready      bool
}

type symbolState struct {
	candles      *ring
	indicators   *IndicatorState
	lastSnapshot IndicatorSnapshot
	aux          AuxBundle
	lastTs       int64
}

// State tracks, per symbol, the candle ring buffer, the indicator
// accumulator, and the current aux bundle with freshness flags.
type State struct {
	symbols map[string]*symbolState
}

// NewState builds an empty multi-symbol market state.
func NewState() *State {
	return &State{symbols: make(map[string]*symbolState)}
}

func (s *State) symbol(sym string) *symbolState {
	ss, ok := s.symbols[sym]
	if !ok {
		ss = &symbolState{
			candles:    newRing(candleRingCapacity),
			indicators: NewIndicatorState(),
		}
		s.symbols[sym] = ss
	}
	return ss
}

// OnCandle validates and ingests one candle for a symbol, advancing its
// indicator accumulators. Returns ErrNaN / ErrNonMonotonicTs at the
// ingress boundary without mutating state on rejection.
func (s *State) OnCandle(sym string, c Candle) error {
	ss := s.symbol(sym)
	if err := ValidateCandle(c, ss.lastTs); err != nil {
		return err
	}
	ss.candles.push(c)
	ss.lastTs = c.Ts
	ss.lastSnapshot = ss.indicators.Update(c)
	return nil
}

// UpdateAux replaces the current aux bundle for a symbol. Fields whose
// Has* flag is false are treated as absent regardless of their numeric
// value, per spec's "missing is distinct from zero" rule.
func (s *State) UpdateAux(sym string, aux AuxBundle) {
	s.symbol(sym).aux = aux
}

// View builds the current MarketView for a symbol. Ready is false until
// WarmupBars candles have been observed.
func (s *State) View(sym string, now int64) MarketView {
	ss := s.symbol(sym)
	latest, _ := ss.candles.latest()

	return MarketView{
		Symbol:     sym,
		Now:        now,
		Candle:     latest,
		Indicators: ss.lastSnapshot,
		Aux:        ss.aux,
		Ready:      ss.indicators.Ready(),
	}
}
