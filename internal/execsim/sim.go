/*
Execsim implements the deterministic execution simulator: latency,
slippage, partial-fill, and fee models driven by deterministic
pseudo-random jitter. Given an identical candle sequence, identical
intents, and identical config hash, two runs must produce byte-identical
fill sequences.

# Module
  - latency: xorshift64-seeded deterministic jitter, no retained RNG state
  - slippage: reference-price distortion with a hard 5% clamp
  - partial fills: per-bar fill-ratio cap with residual requeue
  - fees: |qty|*price*fee_rate, always subtracted from cash

# Source
  - strategy.Intent proposed by the run loop after the risk gate

# Produce
  - strategy.Fill, re-entering the bus as a Fill event

# Sharded
  - strategy_id (PendingOrder carries StrategyIdx for per-strategy attribution)
*/
package execsim

import "math"

// ExecMode enumerates the simulator's friction presets.
type ExecMode int

const (
	ModeInstant ExecMode = iota
	ModeMarket
	ModeLimit
	ModeRealistic
)

// Config bundles the tunables for one ExecMode. Field names mirror the
// config keys in spec §6.
type Config struct {
	Mode             ExecMode
	SlipK            float64
	VolSlipMult      float64
	FeeRate          float64
	LatMin           int64
	LatMax           int64
	MaxFillRatio     float64
	AdverseSelection float64 // Limit-mode only; uncalibrated, see DESIGN.md
}

// ConfigFor returns the spec-documented preset for a mode.
func ConfigFor(mode ExecMode) Config {
	switch mode {
	case ModeInstant:
		return Config{Mode: mode, SlipK: 0, VolSlipMult: 0, FeeRate: 0, LatMin: 0, LatMax: 0, MaxFillRatio: 1}
	case ModeMarket:
		return Config{Mode: mode, SlipK: 0.0005, VolSlipMult: 0.001, FeeRate: 0.0008, LatMin: 1, LatMax: 4, MaxFillRatio: 1}
	case ModeLimit:
		return Config{Mode: mode, SlipK: 0.0003, VolSlipMult: 0.0008, FeeRate: 0.0002, LatMin: 2, LatMax: 10, MaxFillRatio: 0.5, AdverseSelection: 0.3}
	case ModeRealistic:
		return Config{Mode: mode, SlipK: 0.0008, VolSlipMult: 0.0016, FeeRate: 0.001, LatMin: 2, LatMax: 8, MaxFillRatio: 0.6}
	default:
		return ConfigFor(ModeMarket)
	}
}

// ParseExecMode resolves the config.Config EXEC_MODE string into an
// ExecMode, defaulting to ModeMarket for an empty or unrecognized value.
func ParseExecMode(name string) ExecMode {
	switch name {
	case "instant":
		return ModeInstant
	case "limit":
		return ModeLimit
	case "realistic":
		return ModeRealistic
	default:
		return ModeMarket
	}
}

// PendingOrder is owned exclusively by the simulator. Partial fills
// decrement RemainingQty and reschedule EarliestFillTs.
type PendingOrder struct {
	ClientOrderID  string
	StrategyID     string
	StrategyIdx    int
	OriginalQty    float64
	RemainingQty   float64
	SubmitTs       int64
	EarliestFillTs int64
}

// xorshift64 advances the seed one step and returns the new state.
func xorshift64(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}

// Latency computes the deterministic delay, in seconds, for an intent.
// seed = submit_ts XOR (strategy_idx * 0x9E3779B97F4A7C15); the xorshift
// output is normalized to [0,1). No RNG state is retained between calls.
func Latency(submitTs int64, strategyIdx int, latMin, latMax int64) int64 {
	if latMax <= latMin {
		return latMin
	}
	seed := uint64(submitTs) ^ (uint64(strategyIdx) * 0x9E3779B97F4A7C15)
	x := xorshift64(seed)
	frac := float64(x) / float64(^uint64(0))
	return latMin + int64(frac*float64(latMax-latMin))
}

// SlippagePrice computes the fill price for a signed qty against a
// reference price. slipSign is +1 for buys, -1 for sells. The 5% clamp
// is a hard ceiling applied to the slippage fraction itself.
func SlippagePrice(ref, qty, volume, slipK, volSlipMult, vol float64) float64 {
	liq := math.Max(volume, 1.0)
	slip := slipK*(math.Abs(qty)/liq) + volSlipMult*vol
	if slip > 0.05 {
		slip = 0.05
	}
	slipSign := 1.0
	if qty < 0 {
		slipSign = -1.0
	}
	return ref * (1 + slipSign*slip)
}

// Fee computes the always-positive, always-subtracted execution fee.
func Fee(price, qty, feeRate float64) float64 {
	return math.Abs(qty) * price * feeRate
}

// StepFill advances one PendingOrder by one bar. It returns the filled
// quantity for this bar (0 if the order is not yet eligible, i.e. the
// bar's ts precedes EarliestFillTs) and whether the order is fully
// consumed. Residual quantity, if any, stays on order with
// EarliestFillTs advanced by one bar's worth of seconds (oneBarSecs).
func StepFill(order *PendingOrder, barTs int64, oneBarSecs int64, cfg Config) (filledQty float64, done bool) {
	if barTs < order.EarliestFillTs {
		return 0, false
	}
	maxFill := order.OriginalQty * cfg.MaxFillRatio
	if cfg.MaxFillRatio >= 1 || math.Abs(maxFill) >= math.Abs(order.RemainingQty) {
		filledQty = order.RemainingQty
		order.RemainingQty = 0
		return filledQty, true
	}
	filledQty = maxFill
	order.RemainingQty -= maxFill
	order.EarliestFillTs = barTs + oneBarSecs
	if math.Abs(order.RemainingQty) <= 1e-9 {
		order.RemainingQty = 0
		return filledQty, true
	}
	return filledQty, false
}
