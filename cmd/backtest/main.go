package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"

	"arbitragefx/internal/config"
	"arbitragefx/internal/drift"
	"arbitragefx/internal/engine"
	"arbitragefx/internal/execsim"
	"arbitragefx/internal/ingest"
	"arbitragefx/internal/market"
	"arbitragefx/internal/recorder"
	"arbitragefx/internal/resultstore"
	"arbitragefx/internal/risk"
	"arbitragefx/internal/strategy"
)

const (
	exitOK            = 0
	exitFatal         = 1
	exitDataError     = 2
	exitWALCorruption = 3
	exitRiskHalt      = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	csvPath := flag.String("csv", "", "Path to candle CSV (required)")
	configPath := flag.String("config", "", "Path to KEY=value config file (default: built-in defaults)")
	outPath := flag.String("out", "", "Path to write BacktestResult JSON (default: stdout)")
	pgDSN := flag.String("pg-dsn", "", "Postgres DSN; when set, persists the result via internal/resultstore")
	carryFunding := flag.Bool("carry-requires-funding", true, "Gate the carry strategy on funding-rate freshness")
	flag.Parse()

	if *csvPath == "" {
		log.Printf("backtest: -csv is required")
		return exitFatal
	}

	if stop, err := startProfiling("arbitragefx.backtest"); err != nil {
		log.Printf("backtest: pyroscope start failed: %v", err)
	} else if stop != nil {
		defer stop()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("backtest: config load failed: %v", err)
		return exitFatal
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("backtest: config invalid: %v", err)
		return exitFatal
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Printf("backtest: open csv failed: %v", err)
		return exitDataError
	}
	rows, err := ingest.LoadFile(f)
	f.Close()
	if err != nil {
		log.Printf("backtest: ingest failed: %v", err)
		return exitDataError
	}

	eng, err := engine.New(buildEngineConfig(cfg, *carryFunding))
	if err != nil {
		log.Printf("backtest: engine init failed: %v", err)
		return exitFatal
	}

	ctx, cancel := engine.ShutdownContext(context.Background())
	defer cancel()

	result, err := eng.Run(ctx, rows)
	if err != nil {
		log.Printf("backtest: run failed: %v", err)
		return exitFatal
	}

	if err := writeResult(*outPath, result); err != nil {
		log.Printf("backtest: write result failed: %v", err)
		return exitFatal
	}

	if *pgDSN != "" {
		if err := persistResult(*pgDSN, result); err != nil {
			log.Printf("backtest: persist result failed: %v", err)
			return exitFatal
		}
	}

	if result.HaltReason == risk.ReasonEmergencyKill.String() {
		return exitRiskHalt
	}
	return exitOK
}

// startProfiling starts continuous profiling against PYROSCOPE_SERVER
// when set, returning a stop func; it is a no-op (nil stop, nil error)
// when the env var is unset.
func startProfiling(appName string) (func(), error) {
	addr := os.Getenv("PYROSCOPE_SERVER")
	if addr == "" {
		return nil, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

// buildEngineConfig maps the flat config.Config onto an engine.Config
// running two strategies side by side on the same symbol feed: a
// momentum strategy with no aux requirements, and a carry strategy
// gated on funding-rate freshness, matching the dual-strategy fixture
// spec's aux-gating scenario assumes.
func buildEngineConfig(cfg config.Config, carryRequiresFunding bool) engine.Config {
	momentumParams := strategy.DefaultParams()
	momentumParams.CandleSecs = cfg.CandleSecs
	momentumParams.EntryTh = cfg.EntryTh
	momentumParams.EdgeHurdle = cfg.EdgeHurdle
	momentumParams.EdgeScale = cfg.EdgeScale
	momentumParams.TakeProfit = cfg.TakeProfit
	momentumParams.StopLoss = cfg.StopLoss
	momentumParams.TimeStopSecs = cfg.TimeStop
	momentumParams.MinHoldCandles = int64(cfg.MinHoldCandles)
	momentumParams.VolPauseMult = cfg.VolPauseMult
	momentumParams.DayOffsetSecs = cfg.DayOffsetSecs

	carryParams := momentumParams
	carryParams.AuxReq = market.AuxRequirements{Funding: carryRequiresFunding}

	execCfg := execsim.ConfigFor(execsim.ParseExecMode(cfg.ExecMode))
	execCfg.SlipK = cfg.SlipK
	execCfg.VolSlipMult = cfg.VolSlipMult
	execCfg.FeeRate = cfg.FeeRate
	execCfg.LatMin = cfg.LatMin
	execCfg.LatMax = cfg.LatMax
	execCfg.MaxFillRatio = cfg.MaxFillRatio

	riskCfg := risk.DefaultConfig()
	riskCfg.KillFilePath = cfg.KillFilePath
	riskCfg.CooldownSecs = cfg.CooldownSecs
	riskCfg.MaxTradesPerDay = uint64(cfg.MaxTradesDay)
	riskCfg.MaxDailyLossPct = cfg.MaxDailyLossPct
	riskCfg.MaxPositionPct = cfg.MaxPosPct

	walCfg := recorder.DefaultConfig(cfg.WalPath)
	walCfg.QueueSize = cfg.FillChannelCap

	return engine.Config{
		Symbol:           cfg.Symbol,
		InitialEquity:    riskCfg.InitialEquity,
		SnapshotInterval: cfg.SnapshotInterval,
		DriftThresholds:  drift.DefaultThresholds(),
		RiskCfg:          riskCfg,
		ExecCfg:          execCfg,
		WAL:              walCfg,
		BusCapacity:      cfg.FillChannelCap,
		ConfigHash:       cfg.Hash(),
		Strategies: []engine.StrategySpec{
			{ID: "momentum-1", Kind: engine.KindMomentum, Params: momentumParams},
			{ID: "carry-1", Kind: engine.KindCarry, Params: carryParams},
		},
	}
}

func writeResult(path string, result engine.BacktestResult) error {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(payload))
		return nil
	}
	return os.WriteFile(path, payload, 0o644)
}

func persistResult(dsn string, result engine.BacktestResult) error {
	store, err := resultstore.New(resultstore.Option{ConnString: dsn})
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}
	return store.Save(context.Background(), result)
}
