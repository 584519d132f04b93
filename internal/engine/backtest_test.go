package engine

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitragefx/internal/execsim"
	"arbitragefx/internal/ingest"
	"arbitragefx/internal/market"
	"arbitragefx/internal/recorder"
	"arbitragefx/internal/risk"
	"arbitragefx/internal/schema"
	"arbitragefx/internal/state"
	"arbitragefx/internal/strategy"
)

// genRows builds a deterministic, mildly oscillating candle series so
// indicators warm up and the momentum reducer sees nonzero z-scores
// without pulling in a real RNG.
func genRows(n int, startTs, candleSecs int64, basePrice float64) []ingest.Row {
	rows := make([]ingest.Row, 0, n)
	price := basePrice
	for i := 0; i < n; i++ {
		ts := startTs + int64(i)*candleSecs
		price = price * (1 + math.Sin(float64(i)/5.0)*0.002)
		rows = append(rows, ingest.Row{
			Candle: market.Candle{
				Ts:     ts,
				Open:   price,
				High:   price * 1.001,
				Low:    price * 0.999,
				Close:  price,
				Volume: 100,
			},
		})
	}
	return rows
}

func momentumParams() strategy.StrategyParams {
	p := strategy.DefaultParams()
	p.CandleSecs = 60
	return p
}

func testConfig(dir string) Config {
	return Config{
		Symbol:           "BTC-USD",
		InitialEquity:    1000,
		SnapshotInterval: 1000,
		RiskCfg: risk.Config{
			KillFilePath:    filepath.Join(dir, "STOP"),
			CooldownSecs:    300,
			MaxTradesPerDay: 50,
			MaxDailyLossPct: 0.5,
			MaxPositionPct:  1.0,
			InitialEquity:   1000,
		},
		ExecCfg:     execsim.ConfigFor(execsim.ModeInstant),
		WAL:         recorder.DefaultConfig(dir),
		BusCapacity: 256,
		Strategies: []StrategySpec{
			{ID: "momentum-1", Kind: KindMomentum, Params: momentumParams()},
		},
		ConfigHash: "test-hash",
	}
}

func TestRunHappyPathProducesPlausibleResult(t *testing.T) {
	dir := t.TempDir()
	rows := genRows(80, 1_000_000, 60, 100)

	eng, err := New(testConfig(dir))
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, len(rows), result.CandleCount)
	assert.Empty(t, result.HaltReason)
	require.Len(t, result.Strategies, 1)
	assert.Contains(t, result.LastStateHash, "momentum-1")
	assert.NotZero(t, result.Strategies[0].Equity)
	assert.NotEmpty(t, result.Notes)
}

func TestRunTripsCircuitBreakerOnExtremeReturn(t *testing.T) {
	dir := t.TempDir()
	// A 40-tick baseline gives the drift tracker's rolling window enough
	// samples that a single 5x price jump's self-inclusive z-score clears
	// the critical threshold (z approaches (n-1)/sqrt(n) as the jump grows).
	rows := genRows(40, 1_000_000, 60, 100)

	spike := rows[len(rows)-1]
	spike.Candle.Ts += 60
	spike.Candle.Close *= 5
	spike.Candle.Open = spike.Candle.Close
	spike.Candle.High = spike.Candle.Close
	spike.Candle.Low = spike.Candle.Close
	rows = append(rows, spike)
	rows = append(rows, genRows(5, spike.Candle.Ts+60, 60, spike.Candle.Close)...)

	cfg := testConfig(dir)

	eng, err := New(cfg)
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "circuit_breaker", result.HaltReason)
	assert.Less(t, result.CandleCount, len(rows))
}

func TestRunEmergencyKillHaltsBeforeCompletion(t *testing.T) {
	dir := t.TempDir()
	killPath := filepath.Join(dir, "STOP")
	require.NoError(t, os.WriteFile(killPath, []byte("stop"), 0o644))

	rows := genRows(80, 1_000_000, 60, 100)
	cfg := testConfig(dir)
	cfg.RiskCfg.KillFilePath = killPath
	cfg.RiskCfg.EmergencyKill = true

	eng, err := New(cfg)
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "emergency_kill", result.HaltReason)
	assert.Less(t, result.CandleCount, len(rows))
}

func TestRunWalRecoversToMatchingStateHash(t *testing.T) {
	dir := t.TempDir()
	rows := genRows(80, 1_000_000, 60, 100)

	eng, err := New(testConfig(dir))
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), rows)
	require.NoError(t, err)

	recovered, err := state.Recover(state.RecoverConfig{WALDir: dir})
	require.NoError(t, err)

	got, ok := recovered.Registry.Get("momentum-1")
	require.True(t, ok)
	assert.Equal(t, result.LastStateHash["momentum-1"], state.HashString(state.StateHash(*got)))
}

func TestRunEmptyRowsReturnsZeroResult(t *testing.T) {
	dir := t.TempDir()
	eng, err := New(testConfig(dir))
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CandleCount)
	require.Len(t, result.Strategies, 1)
	assert.Equal(t, 1000.0, result.Strategies[0].Equity)
}

func TestNewResolvesDistinctSymbolsToDistinctSchemaSources(t *testing.T) {
	dir := t.TempDir()

	btc := testConfig(dir)
	ethDir := t.TempDir()
	eth := testConfig(ethDir)
	eth.Symbol = "ETH-USD"

	btcEng, err := New(btc)
	require.NoError(t, err)
	ethEng, err := New(eth)
	require.NoError(t, err)

	assert.NotEqual(t, btcEng.Source(), ethEng.Source())
}

func TestRunRecordsSchemaSourceInWalHeaders(t *testing.T) {
	dir := t.TempDir()
	rows := genRows(10, 1_000_000, 60, 100)

	eng, err := New(testConfig(dir))
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), rows)
	require.NoError(t, err)

	segments, err := recorder.ListSegments(dir, "")
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	f, err := os.Open(segments[0])
	require.NoError(t, err)
	defer f.Close()

	reader := recorder.NewReader(f, recorder.ReaderOptions{})
	header, _, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, schema.EventWalHeader, header.Type, "each segment opens with the recorder's own wal_header record")
	header, _, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, eng.Source(), header.Source)
}

func TestNewRejectsMissingSymbolOrStrategies(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Symbol = ""
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(dir)
	cfg.Strategies = nil
	_, err = New(cfg)
	assert.Error(t, err)
}
