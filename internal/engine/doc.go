/*
Engine wires the pure per-package reducers (market indicators, strategy
decision trees, the risk gate, the execution simulator) into the run
loop: the component that actually drives candle -> indicator ->
strategy -> risk -> order -> fill, one event at a time, and that owns
every StrategyState for the run's lifetime.

# Module
  - Engine: run-loop state (market, risk, drift, registry, WAL writer,
    order state machine, metrics, priority bus) for one backtest run
  - BacktestResult / StrategyResult: the run's JSON-serializable output

# Source
  - []ingest.Row fed in candle order by the caller (cmd/backtest)

# Produce
  - BacktestResult, and a WAL on disk recoverable via internal/state.Recover

# Sharded
  - none; one Engine drives every strategy sharing one symbol's feed
*/
package engine
