package engine

import (
	"context"

	"github.com/yanun0323/logs"

	"arbitragefx/internal/bus"
	"arbitragefx/internal/drift"
	"arbitragefx/internal/errors"
	"arbitragefx/internal/execsim"
	"arbitragefx/internal/ingest"
	"arbitragefx/internal/market"
	"arbitragefx/internal/obs"
	"arbitragefx/internal/og"
	"arbitragefx/internal/recorder"
	"arbitragefx/internal/risk"
	"arbitragefx/internal/schema"
	"arbitragefx/internal/state"
	"arbitragefx/internal/strategy"
	"arbitragefx/internal/wal"
)

// defaultVenue names the venue entered into the schema registry when a
// Config leaves Venue unset (a pure backtest against historical bars
// has no real counterparty).
const defaultVenue = "backtest"

// ErrHashMismatch marks a state-hash invariant violation: a recovered
// or freshly-hashed strategy state does not match its recorded hash.
var ErrHashMismatch = errors.New("engine: state hash mismatch")

// StrategyKind selects which pure reducer drives a strategy's decisions.
type StrategyKind int

const (
	KindMomentum StrategyKind = iota
	KindCarry
)

// StrategySpec configures one strategy entered into the run.
type StrategySpec struct {
	ID     string
	Kind   StrategyKind
	Params strategy.StrategyParams
}

// Config bundles everything one backtest run needs, beyond the candle
// feed itself, to reproduce a result bit-for-bit given the same inputs.
type Config struct {
	Symbol           string
	Venue            string // defaults to "backtest" when empty
	InitialEquity    float64
	SnapshotInterval int
	DriftWindow      int
	DriftThresholds  drift.Thresholds
	RiskCfg          risk.Config
	ExecCfg          execsim.Config
	WAL              recorder.Config
	BusCapacity      int
	Strategies       []StrategySpec
	ConfigHash       string
}

type strategyRuntime struct {
	spec      StrategySpec
	idx       int
	state     *strategy.StrategyState
	pending   *execsim.PendingOrder
	trades    uint64
	totalFees float64
	forced    uint64
}

// Engine drives one backtest run: it owns every StrategyState, the WAL
// writer, the order state machine, the drift tracker, and the priority
// bus fills re-enter through, for the run's entire lifetime.
type Engine struct {
	cfg      Config
	market   *market.State
	risk     *risk.Engine
	drift    *drift.Tracker
	registry *state.Registry
	schema   *schema.Registry
	source   uint16 // schema.SymbolID for cfg.Symbol, used as every WAL/bus header's Source
	orders   *og.StateMachine
	writer   *recorder.Writer
	metrics  *obs.Metrics
	events   *bus.PriorityQueue

	seq         uint64
	intentSeq   uint64
	eventCount  int
	halted      bool
	haltReason  string
	prevClose   float64
	forcedCOIDs map[string]bool

	runtimes []*strategyRuntime
	byID     map[string]*strategyRuntime
}

// New builds an Engine; Run starts its WAL writer and drives the run.
func New(cfg Config) (*Engine, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("engine: symbol is required")
	}
	if len(cfg.Strategies) == 0 {
		return nil, errors.New("engine: at least one strategy is required")
	}
	writer, err := recorder.NewWriter(cfg.WAL)
	if err != nil {
		return nil, errors.Wrap(err, "engine: open wal writer")
	}

	features := []string{"return", "volatility", "funding", "spread"}
	driftWindow := cfg.DriftWindow
	if driftWindow <= 0 {
		driftWindow = 200
	}
	thresholds := cfg.DriftThresholds
	if thresholds == (drift.Thresholds{}) {
		thresholds = drift.DefaultThresholds()
	}

	venue := cfg.Venue
	if venue == "" {
		venue = defaultVenue
	}
	schemaReg := schema.NewRegistry()
	venueID, err := schemaReg.AddVenue(venue)
	if err != nil {
		return nil, errors.Wrap(err, "engine: register venue")
	}
	symID, err := schemaReg.AddSymbol(cfg.Symbol, venueID, schema.ScaleSpec{})
	if err != nil {
		return nil, errors.Wrap(err, "engine: register symbol")
	}

	e := &Engine{
		cfg:         cfg,
		market:      market.NewState(),
		risk:        risk.NewEngine(cfg.RiskCfg),
		drift:       drift.NewTracker(driftWindow, thresholds, features...),
		registry:    state.NewRegistry(),
		schema:      schemaReg,
		source:      uint16(symID),
		orders:      og.NewStateMachine(),
		writer:      writer,
		metrics:     obs.NewMetrics(),
		events:      bus.NewPriorityQueue(maxInt(cfg.BusCapacity, 256)),
		forcedCOIDs: make(map[string]bool),
		byID:        make(map[string]*strategyRuntime),
	}

	for i, spec := range cfg.Strategies {
		rt := &strategyRuntime{spec: spec, idx: i}
		e.runtimes = append(e.runtimes, rt)
		e.byID[spec.ID] = rt
	}
	return e, nil
}

// Source returns the schema registry's SymbolID for this run's Symbol,
// the value every WAL and bus event header carries as its Source.
func (e *Engine) Source() uint16 {
	return e.source
}

// Run replays rows in order through the full candle -> indicator ->
// strategy -> risk -> execution pipeline and returns the backtest's
// final result. Run owns the WAL writer's lifecycle: it starts it on
// entry and closes it (flushing the final segment) before returning.
func (e *Engine) Run(ctx context.Context, rows []ingest.Row) (BacktestResult, error) {
	if err := e.writer.Start(ctx); err != nil {
		return BacktestResult{}, errors.Wrap(err, "engine: start wal writer")
	}
	defer e.writer.Close()

	startTs := int64(0)
	if len(rows) > 0 {
		startTs = rows[0].Candle.Ts
	}
	for _, rt := range e.runtimes {
		rt.state = e.registry.GetOrCreate(rt.spec.ID, startTs)
		rt.state.Cash = e.cfg.InitialEquity
		rt.state.Equity = e.cfg.InitialEquity
	}

	if len(rows) == 0 {
		return e.buildResult(0, 0, 0), nil
	}

	firstClose := rows[0].Candle.Close
	lastClose := rows[0].Candle.Close

	processed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return BacktestResult{}, err
		}
		if err := e.tick(row); err != nil {
			return BacktestResult{}, err
		}
		lastClose = row.Candle.Close
		processed++
		if e.halted {
			break
		}
	}

	for _, rt := range e.runtimes {
		rt.state.MarkToMarket(lastClose)
	}
	e.snapshotAll(rows[processed-1].Candle.Ts)

	return e.buildResult(processed, firstClose, lastClose), nil
}

func (e *Engine) tick(row ingest.Row) error {
	if err := e.market.OnCandle(e.cfg.Symbol, row.Candle); err != nil {
		return errors.Wrap(err, "engine: ingest candle")
	}
	e.market.UpdateAux(e.cfg.Symbol, row.Aux)

	severity := e.updateDrift(row)
	view := e.market.View(e.cfg.Symbol, row.Candle.Ts)

	if severity == drift.SeverityCritical {
		e.tripCircuitBreaker(row.Candle.Ts, row.Candle.Close, risk.ReasonCircuitBreaker.String())
		return nil
	}

	for _, rt := range e.runtimes {
		if rt.pending != nil {
			e.stepPending(rt, row, view.Indicators.RollingSigmaVol)
		}
	}
	e.drainEvents()

	if !view.Ready {
		e.advanceEventCount(row.Candle.Ts)
		return nil
	}

	for _, rt := range e.runtimes {
		if rt.pending != nil {
			continue // one working order per strategy at a time
		}
		e.decide(rt, view, severity)
	}

	e.advanceEventCount(row.Candle.Ts)
	return nil
}

// updateDrift pushes this tick's feature samples and returns the
// worst-feature severity. High-low range over close stands in for a
// bid/ask spread, which OHLCV candles don't carry.
func (e *Engine) updateDrift(row ingest.Row) drift.Severity {
	ret := 0.0
	if e.prevClose > 0 {
		ret = (row.Candle.Close - e.prevClose) / e.prevClose
	}
	e.prevClose = row.Candle.Close

	view := e.market.View(e.cfg.Symbol, row.Candle.Ts)
	report := e.drift.Update("return", ret)
	report = e.drift.Update("volatility", view.Indicators.RollingSigmaPrice)
	if row.Aux.HasFunding {
		report = e.drift.Update("funding", row.Aux.FundingRate)
	}
	spread := 0.0
	if row.Candle.Close > 0 {
		spread = (row.Candle.High - row.Candle.Low) / row.Candle.Close
	}
	report = e.drift.Update("spread", spread)
	e.metrics.IncDriftSeverity(report.Overall)
	return report.Overall
}

func (e *Engine) stepPending(rt *strategyRuntime, row ingest.Row, vol float64) {
	filled, done := execsim.StepFill(rt.pending, row.Candle.Ts, e.candleSecs(), e.cfg.ExecCfg)
	if filled == 0 {
		return
	}
	price := execsim.SlippagePrice(row.Candle.Close, filled, row.Candle.Volume, e.cfg.ExecCfg.SlipK, e.cfg.ExecCfg.VolSlipMult, vol)
	fee := execsim.Fee(price, filled, e.cfg.ExecCfg.FeeRate)

	f := strategy.Fill{
		ClientOrderID: rt.pending.ClientOrderID,
		StrategyID:    rt.spec.ID,
		Ts:            row.Candle.Ts,
		Price:         price,
		Qty:           filled,
		Fee:           fee,
	}

	payload, err := wal.EncodeFill(wal.FillEntry{Fill: f})
	if err != nil {
		logs.Errorf("engine: encode fill entry failed, err: %+v", err)
		if done {
			rt.pending = nil
		}
		return
	}
	e.seq++
	if err := e.writer.TryAppend(schema.NewHeader(schema.EventFill, e.source, e.seq, row.Candle.Ts, row.Candle.Ts), payload); err != nil {
		logs.Errorf("engine: wal append fill failed, err: %+v", err)
	}

	ev := bus.Event{Header: schema.NewHeader(schema.EventFill, e.source, e.seq, row.Candle.Ts, row.Candle.Ts), Payload: payload}
	if err := e.events.TryPublish(ev, e.seq); err != nil {
		e.metrics.IncQueueDrop()
		e.applyFill(f) // bus saturated: apply inline rather than drop a fill
	}

	if done {
		rt.pending = nil
	}
}

// drainEvents pops every Fill event currently queued and applies its
// effect to portfolio state, in priority+seq order (fills for one
// client_order_id are never reordered since StepFill only ever produces
// one fill per order per bar).
func (e *Engine) drainEvents() {
	for {
		ev, ok := e.events.TryPop()
		if !ok {
			return
		}
		if ev.Header.Type != schema.EventFill {
			continue
		}
		fe, err := wal.DecodeFill(ev.Payload)
		if err != nil {
			logs.Errorf("engine: decode fill event failed, err: %+v", err)
			continue
		}
		e.applyFill(fe.Fill)
	}
}

func (e *Engine) applyFill(f strategy.Fill) {
	rt, ok := e.byID[f.StrategyID]
	if !ok {
		return
	}
	if _, err := e.orders.ApplyFill(f); err != nil {
		logs.Warnf("engine: apply fill order state for %s failed, err: %+v", f.ClientOrderID, err)
	}
	strategy.ApplyFill(rt.state, f, rt.spec.Params.DayOffsetSecs)
	rt.trades++
	rt.totalFees += f.Fee
	if e.forcedCOIDs[f.ClientOrderID] {
		rt.forced++
		delete(e.forcedCOIDs, f.ClientOrderID)
	}
}

func (e *Engine) decide(rt *strategyRuntime, view market.MarketView, severity drift.Severity) {
	var action strategy.Action
	switch rt.spec.Kind {
	case KindCarry:
		action = strategy.Carry(view, rt.state, &rt.spec.Params)
	default:
		action = strategy.Momentum(view, rt.state, &rt.spec.Params)
	}

	guarded := e.risk.Apply(action, rt.state, view.Now, view.Candle.Close, severity)
	e.metrics.IncGuardReason(guarded.Reason)

	if guarded.Halt {
		e.tripCircuitBreaker(view.Now, view.Candle.Close, guarded.Reason.String())
		return
	}
	if guarded.Action.Kind == strategy.Hold {
		return
	}

	qty := guarded.Action.Qty
	if guarded.Action.Kind == strategy.Close {
		qty = absf(rt.state.Position)
		if qty == 0 {
			return
		}
	}
	if qty <= 0 {
		return
	}

	e.intentSeq++
	coid := strategy.NewClientOrderID(rt.spec.ID, view.Now, e.intentSeq)
	side := signedQty(guarded.Action.Kind, qty, rt.state.Position)
	intent := strategy.Intent{
		Action:        strategy.Action{Kind: guarded.Action.Kind, Qty: absf(side)},
		StrategyID:    rt.spec.ID,
		ClientOrderID: coid,
		SubmitTs:      view.Now,
	}

	e.appendWAL(schema.EventPlaceIntent, view.Now, func() ([]byte, error) {
		return wal.EncodePlaceIntent(wal.PlaceIntentEntry{Intent: intent})
	})
	if _, err := e.orders.ApplyIntent(intent); err != nil {
		logs.Warnf("engine: register intent %s failed, err: %+v", coid, err)
	}
	if guarded.Reason != risk.ReasonNone {
		e.forcedCOIDs[coid] = true
	}

	delay := execsim.Latency(view.Now, rt.idx, e.cfg.ExecCfg.LatMin, e.cfg.ExecCfg.LatMax)
	rt.pending = &execsim.PendingOrder{
		ClientOrderID:  coid,
		StrategyID:     rt.spec.ID,
		StrategyIdx:    rt.idx,
		OriginalQty:    side,
		RemainingQty:   side,
		SubmitTs:       view.Now,
		EarliestFillTs: view.Now + delay,
	}
}

// tripCircuitBreaker halts the run and force-closes every strategy with
// an open position, per spec §4.3 guard 6 / §7's "halts all trading and
// forces closes where possible".
func (e *Engine) tripCircuitBreaker(ts int64, markPrice float64, reason string) {
	if e.halted {
		return
	}
	e.halted = true
	e.haltReason = reason
	logs.Warnf("engine: halting at ts=%d reason=%s, forcing closes", ts, reason)

	e.appendWAL(schema.EventRiskHalt, ts, func() ([]byte, error) {
		return wal.EncodeRiskHalt(wal.RiskHaltEntry{Reason: e.haltReason, Ts: ts})
	})

	for _, rt := range e.runtimes {
		rt.pending = nil
		if rt.state.Position == 0 {
			continue
		}
		qty := -rt.state.Position
		fee := execsim.Fee(markPrice, qty, e.cfg.ExecCfg.FeeRate)
		e.intentSeq++
		coid := strategy.NewClientOrderID(rt.spec.ID, ts, e.intentSeq)
		f := strategy.Fill{ClientOrderID: coid, StrategyID: rt.spec.ID, Ts: ts, Price: markPrice, Qty: qty, Fee: fee}
		e.appendWAL(schema.EventFill, ts, func() ([]byte, error) {
			return wal.EncodeFill(wal.FillEntry{Fill: f})
		})
		strategy.ApplyFill(rt.state, f, rt.spec.Params.DayOffsetSecs)
		rt.trades++
		rt.totalFees += f.Fee
		rt.forced++
	}
	e.snapshotAll(ts)
}

func (e *Engine) advanceEventCount(ts int64) {
	e.eventCount++
	interval := e.cfg.SnapshotInterval
	if interval <= 0 {
		interval = 1000
	}
	if e.eventCount%interval == 0 {
		e.snapshotAll(ts)
	}
}

func (e *Engine) snapshotAll(ts int64) {
	for _, rt := range e.runtimes {
		snap := state.NewSnapshot(*rt.state, ts)
		payload, err := state.EncodeSnapshot(snap)
		if err != nil {
			logs.Errorf("engine: encode snapshot for %s failed, err: %+v", rt.spec.ID, err)
			continue
		}
		e.seq++
		if err := e.writer.TryAppend(schema.NewHeader(schema.EventSnapshot, e.source, e.seq, ts, ts), payload); err != nil {
			logs.Errorf("engine: append snapshot for %s failed, err: %+v", rt.spec.ID, err)
		}
	}
}

func (e *Engine) appendWAL(eventType schema.EventType, ts int64, encode func() ([]byte, error)) {
	payload, err := encode()
	if err != nil {
		logs.Errorf("engine: encode wal entry type=%d failed, err: %+v", eventType, err)
		return
	}
	e.seq++
	if err := e.writer.TryAppend(schema.NewHeader(eventType, e.source, e.seq, ts, ts), payload); err != nil {
		logs.Errorf("engine: wal append type=%d failed, err: %+v", eventType, err)
	}
}

func (e *Engine) candleSecs() int64 {
	if len(e.cfg.Strategies) == 0 {
		return 60
	}
	secs := e.cfg.Strategies[0].Params.CandleSecs
	if secs <= 0 {
		return 60
	}
	return secs
}

func (e *Engine) buildResult(candleCount int, firstClose, lastClose float64) BacktestResult {
	result := BacktestResult{
		ConfigHash:    e.cfg.ConfigHash,
		CandleCount:   candleCount,
		HaltReason:    e.haltReason,
		Notes:         uncalibratedNotes(),
		LastStateHash: make(map[string]string),
	}

	buyHoldQty := 0.0
	if firstClose > 0 {
		buyHoldQty = e.cfg.InitialEquity / firstClose
	}
	result.BuyHoldPnl = (lastClose - firstClose) * buyHoldQty
	result.BuyHoldPnlDisplay = market.FormatPrice(result.BuyHoldPnl)

	worstDrawdown := 0.0
	for _, rt := range e.runtimes {
		rt.state.MarkToMarket(lastClose)
		result.LastStateHash[rt.spec.ID] = state.HashString(state.StateHash(*rt.state))

		equityPnl := rt.state.Equity - e.cfg.InitialEquity
		result.Strategies = append(result.Strategies, StrategyResult{
			ID:            rt.spec.ID,
			Pnl:           rt.state.RealizedPnl,
			PnlDisplay:    strategy.FormatMoney(rt.state.RealizedPnl),
			EquityPnl:     equityPnl,
			Equity:        rt.state.Equity,
			EquityDisplay: strategy.FormatMoney(rt.state.Equity),
			Friction:      rt.totalFees,
			MaxDrawdown:   rt.state.MaxDrawdown,
			Trades:        rt.trades,
			Wins:          rt.state.Wins,
			Losses:        rt.state.Losses,
			ForcedCloses:  rt.forced,
		})
		result.TotalPnl += equityPnl
		if rt.state.MaxDrawdown < worstDrawdown {
			worstDrawdown = rt.state.MaxDrawdown
		}
	}
	result.MaxDrawdown = worstDrawdown

	return result
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// signedQty converts an unsigned Action qty into the signed fill
// direction execsim's PendingOrder expects: positive for Buy, negative
// for Sell, and the full position-closing amount (signed opposite to
// the current position) for Close.
func signedQty(kind strategy.ActionKind, qty, position float64) float64 {
	switch kind {
	case strategy.Buy:
		return qty
	case strategy.Sell:
		return -qty
	case strategy.Close:
		if position > 0 {
			return -qty
		}
		return qty
	default:
		return 0
	}
}
