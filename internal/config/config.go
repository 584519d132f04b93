/*
Config resolves the flat key=value settings surface: every critical key
named in the external interface, its default and unit, and the SHA-256
config hash persisted in every run's output. Parsing an actual TOML
file or merging environment variables is an external collaborator's
job (spec names TOML/env parsing as out of scope); this package only
owns the flat KEY=value model once something else has produced it.

# Module
  - Config: resolved, typed settings
  - LoadFile: minimal KEY=value text parser (comments, blank lines)
  - Hash: canonical sorted-key rendering, SHA-256 hex

# Source
  - a key=value file on disk, or defaults if none given

# Produce
  - Config, consumed by internal/strategy, internal/risk, internal/execsim,
    internal/engine to build their own typed parameter structs

# Sharded
  - none; one Config per run
*/
package config

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"arbitragefx/internal/errors"
)

// Config holds every critical key named in the external-interface
// contract, resolved and typed.
type Config struct {
	Symbol string // venue symbol, e.g. "BTC-USDT"

	CandleSecs     int64   // seconds per candle bar
	WarmupBars     int     // validated and hashed only; indicator readiness uses market.WarmupBars (30)
	EntryTh        float64 // z-score entry threshold
	EdgeHurdle     float64 // minimum expected edge (|score|*EdgeScale) to act
	EdgeScale      float64 // score-to-expected-edge scaling factor
	TakeProfit     float64 // fractional take-profit move
	StopLoss       float64 // fractional stop-loss move
	TimeStop       int64   // seconds before a stale position force-closes
	MinHoldCandles int     // bars a position must be held before exit signals apply

	MaxPosPct       float64 // max |position|*price / equity
	MaxDailyLossPct float64 // max daily MTM loss as a fraction of equity
	CooldownSecs    int64   // seconds to halt new entries after a loss
	MaxTradesDay    int     // max trades per strategy per day

	VolPauseMult float64 // z-vol multiple that pauses new entries

	DayOffsetSecs int64 // UTC seconds offset applied before deriving the trade day boundary

	FeeRate      float64 // fraction of notional charged as fee
	SlipK        float64 // linear slippage coefficient
	VolSlipMult  float64 // volatility contribution to slippage
	LatMin       int64   // minimum simulated fill latency, seconds
	LatMax       int64   // maximum simulated fill latency, seconds
	MaxFillRatio float64 // max fraction of the original order qty fillable per bar

	WalPath          string // WAL directory
	FillChannelCap   int    // bounded fill-channel capacity
	SnapshotInterval int    // events between snapshots
	KillFilePath     string // presence of this file forces a halt
	ExecMode         string // "instant" | "market" | "limit" | "realistic"
}

// Default returns the baseline configuration used when no file is given.
func Default() Config {
	return Config{
		Symbol: "BTC-USDT",

		CandleSecs:     60,
		WarmupBars:     30,
		EntryTh:        1.2,
		EdgeHurdle:     1.0,
		EdgeScale:      1.0,
		TakeProfit:     0.02,
		StopLoss:       0.01,
		TimeStop:       3600,
		MinHoldCandles: 3,

		MaxPosPct:       0.5,
		MaxDailyLossPct: 0.02,
		CooldownSecs:    300,
		MaxTradesDay:    50,

		VolPauseMult: 2.5,

		DayOffsetSecs: 0,

		FeeRate:      0.0008,
		SlipK:        0.0005,
		VolSlipMult:  0.001,
		LatMin:       1,
		LatMax:       4,
		MaxFillRatio: 1.0,

		WalPath:          "./wal",
		FillChannelCap:   1024,
		SnapshotInterval: 1000,
		KillFilePath:     "/tmp/STOP",
		ExecMode:         "market",
	}
}

// LoadFile parses a flat KEY=value text file over Default(), tolerating
// blank lines and "#"-prefixed comments. Unknown keys are rejected:
// silently ignoring a typo'd key is the kind of bug that only shows up
// in production.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses r the same way LoadFile does.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, errors.New(fmt.Sprintf("config: line %d: missing '='", lineNo))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := setField(&cfg, key, value); err != nil {
			return Config{}, errors.Wrap(err, fmt.Sprintf("config: line %d", lineNo))
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setField(cfg *Config, key, value string) error {
	switch key {
	case "SYMBOL":
		cfg.Symbol = value
	case "CANDLE_SECS":
		return setInt64(&cfg.CandleSecs, value)
	case "WARMUP_BARS":
		return setInt(&cfg.WarmupBars, value)
	case "ENTRY_TH":
		return setFloat(&cfg.EntryTh, value)
	case "EDGE_HURDLE":
		return setFloat(&cfg.EdgeHurdle, value)
	case "EDGE_SCALE":
		return setFloat(&cfg.EdgeScale, value)
	case "TAKE_PROFIT":
		return setFloat(&cfg.TakeProfit, value)
	case "STOP_LOSS":
		return setFloat(&cfg.StopLoss, value)
	case "TIME_STOP":
		return setInt64(&cfg.TimeStop, value)
	case "MIN_HOLD_CANDLES":
		return setInt(&cfg.MinHoldCandles, value)
	case "MAX_POS_PCT":
		return setFloat(&cfg.MaxPosPct, value)
	case "MAX_DAILY_LOSS_PCT":
		return setFloat(&cfg.MaxDailyLossPct, value)
	case "COOLDOWN_SECS":
		return setInt64(&cfg.CooldownSecs, value)
	case "MAX_TRADES_DAY":
		return setInt(&cfg.MaxTradesDay, value)
	case "VOL_PAUSE_MULT":
		return setFloat(&cfg.VolPauseMult, value)
	case "DAY_OFFSET_SECS":
		return setInt64(&cfg.DayOffsetSecs, value)
	case "FEE_RATE":
		return setFloat(&cfg.FeeRate, value)
	case "SLIP_K":
		return setFloat(&cfg.SlipK, value)
	case "VOL_SLIP_MULT":
		return setFloat(&cfg.VolSlipMult, value)
	case "LAT_MIN":
		return setInt64(&cfg.LatMin, value)
	case "LAT_MAX":
		return setInt64(&cfg.LatMax, value)
	case "MAX_FILL_RATIO":
		return setFloat(&cfg.MaxFillRatio, value)
	case "WAL_PATH":
		cfg.WalPath = value
	case "FILL_CHANNEL_CAP":
		return setInt(&cfg.FillChannelCap, value)
	case "SNAPSHOT_INTERVAL":
		return setInt(&cfg.SnapshotInterval, value)
	case "KILL_FILE_PATH":
		cfg.KillFilePath = value
	case "EXEC_MODE":
		cfg.ExecMode = value
	default:
		return errors.New(fmt.Sprintf("unknown config key %q", key))
	}
	return nil
}

func setFloat(dst *float64, raw string) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setInt64(dst *int64, raw string) error {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setInt(dst *int, raw string) error {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// Render produces the canonical sorted key=value text used for hashing.
func (c Config) Render() string {
	pairs := map[string]string{
		"SYMBOL":             c.Symbol,
		"CANDLE_SECS":        strconv.FormatInt(c.CandleSecs, 10),
		"WARMUP_BARS":        strconv.Itoa(c.WarmupBars),
		"ENTRY_TH":           strconv.FormatFloat(c.EntryTh, 'g', -1, 64),
		"EDGE_HURDLE":        strconv.FormatFloat(c.EdgeHurdle, 'g', -1, 64),
		"EDGE_SCALE":         strconv.FormatFloat(c.EdgeScale, 'g', -1, 64),
		"TAKE_PROFIT":        strconv.FormatFloat(c.TakeProfit, 'g', -1, 64),
		"STOP_LOSS":          strconv.FormatFloat(c.StopLoss, 'g', -1, 64),
		"TIME_STOP":          strconv.FormatInt(c.TimeStop, 10),
		"MIN_HOLD_CANDLES":   strconv.Itoa(c.MinHoldCandles),
		"MAX_POS_PCT":        strconv.FormatFloat(c.MaxPosPct, 'g', -1, 64),
		"MAX_DAILY_LOSS_PCT": strconv.FormatFloat(c.MaxDailyLossPct, 'g', -1, 64),
		"COOLDOWN_SECS":      strconv.FormatInt(c.CooldownSecs, 10),
		"MAX_TRADES_DAY":     strconv.Itoa(c.MaxTradesDay),
		"VOL_PAUSE_MULT":     strconv.FormatFloat(c.VolPauseMult, 'g', -1, 64),
		"DAY_OFFSET_SECS":    strconv.FormatInt(c.DayOffsetSecs, 10),
		"FEE_RATE":           strconv.FormatFloat(c.FeeRate, 'g', -1, 64),
		"SLIP_K":             strconv.FormatFloat(c.SlipK, 'g', -1, 64),
		"VOL_SLIP_MULT":      strconv.FormatFloat(c.VolSlipMult, 'g', -1, 64),
		"LAT_MIN":            strconv.FormatInt(c.LatMin, 10),
		"LAT_MAX":            strconv.FormatInt(c.LatMax, 10),
		"MAX_FILL_RATIO":     strconv.FormatFloat(c.MaxFillRatio, 'g', -1, 64),
		"WAL_PATH":           c.WalPath,
		"FILL_CHANNEL_CAP":   strconv.Itoa(c.FillChannelCap),
		"SNAPSHOT_INTERVAL":  strconv.Itoa(c.SnapshotInterval),
		"KILL_FILE_PATH":     c.KillFilePath,
		"EXEC_MODE":          c.ExecMode,
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(pairs[k])
		b.WriteByte('\n')
	}
	return b.String()
}

// Hash returns the hex-encoded SHA-256 of the canonical rendering, the
// config_hash persisted in every BacktestResult.
func (c Config) Hash() string {
	sum := sha256.Sum256([]byte(c.Render()))
	return hex.EncodeToString(sum[:])
}

// Validate checks the resolved config for obviously unusable values.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return errors.New("config: SYMBOL is empty")
	}
	if c.CandleSecs <= 0 {
		return errors.New("config: CANDLE_SECS must be > 0")
	}
	if c.WarmupBars < 0 {
		return errors.New("config: WARMUP_BARS must be >= 0")
	}
	if c.MaxPosPct <= 0 || c.MaxPosPct > 1 {
		return errors.New("config: MAX_POS_PCT must be in (0, 1]")
	}
	if c.MaxDailyLossPct <= 0 {
		return errors.New("config: MAX_DAILY_LOSS_PCT must be > 0")
	}
	if c.LatMax < c.LatMin {
		return errors.New("config: LAT_MAX must be >= LAT_MIN")
	}
	if c.MaxFillRatio <= 0 || c.MaxFillRatio > 1 {
		return errors.New("config: MAX_FILL_RATIO must be in (0, 1]")
	}
	if c.WalPath == "" {
		return errors.New("config: WAL_PATH is empty")
	}
	if c.SnapshotInterval <= 0 {
		return errors.New("config: SNAPSHOT_INTERVAL must be > 0")
	}
	if c.DayOffsetSecs <= -86400 || c.DayOffsetSecs >= 86400 {
		return errors.New("config: DAY_OFFSET_SECS must be in (-86400, 86400)")
	}
	switch c.ExecMode {
	case "instant", "market", "limit", "realistic":
	default:
		return errors.New(fmt.Sprintf("config: unknown EXEC_MODE %q", c.ExecMode))
	}
	return nil
}
