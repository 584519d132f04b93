/*
Risk implements the layered guard chain applied to every proposed Action
before it reaches the simulator or live adapter.

# Module
  - guard chain: kill file, loss cooldown, daily trade limit, daily loss
    limit, exposure limit, circuit breaker — evaluated in fixed order
  - position sizer: Kelly fraction / expectancy tracking per strategy,
    exposed as a tuning aid, not wired into qty selection

# Source
  - strategy.Action proposed by the reducer, annotated with the current
    StrategyState and a mark price

# Produce
  - GuardedAction, consumed by the execution simulator / adapter

# Sharded
  - strategy_id
*/
package risk

import (
	"os"

	"arbitragefx/internal/drift"
	"arbitragefx/internal/errors"
	"arbitragefx/internal/strategy"
)

// ErrEmergencyKill marks a hard kill: even Close actions are rejected.
var ErrEmergencyKill = errors.New("emergency kill active")

// GuardReason identifies which guard (if any) replaced the proposed action.
type GuardReason int

const (
	ReasonNone GuardReason = iota
	ReasonKillFile
	ReasonEmergencyKill
	ReasonLossCooldown
	ReasonDailyTradeLimit
	ReasonDailyLossLimit
	ReasonExposureLimit
	ReasonCircuitBreaker
)

func (r GuardReason) String() string {
	switch r {
	case ReasonKillFile:
		return "kill_file"
	case ReasonEmergencyKill:
		return "emergency_kill"
	case ReasonLossCooldown:
		return "loss_cooldown"
	case ReasonDailyTradeLimit:
		return "daily_trade_limit"
	case ReasonDailyLossLimit:
		return "daily_loss_limit"
	case ReasonExposureLimit:
		return "exposure_limit"
	case ReasonCircuitBreaker:
		return "circuit_breaker"
	default:
		return "none"
	}
}

// GuardedAction is an Action after passage through the risk gate.
type GuardedAction struct {
	Action strategy.Action
	Reason GuardReason
	Halt   bool
}

// Config bundles the tunable limits for the guard chain.
type Config struct {
	KillFilePath     string
	EmergencyKill    bool
	CooldownSecs     int64
	MaxTradesPerDay  uint64
	MaxDailyLossPct  float64
	MaxPositionPct   float64
	InitialEquity    float64
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		KillFilePath:    "/tmp/STOP",
		CooldownSecs:    300,
		MaxTradesPerDay: 50,
		MaxDailyLossPct: 0.02,
		MaxPositionPct:  0.5,
		InitialEquity:   1000,
	}
}

// Engine evaluates the ordered guard chain. It holds no per-call mutable
// state beyond what StrategyState already carries; it is safe to share
// across strategies that use distinct StrategyState values.
type Engine struct {
	cfg Config
}

// NewEngine builds a risk gate with the given limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply runs the ordered guard chain against a proposed action.
//
// Invariant: a Close action on a nonzero position is never replaced with
// Hold unless EmergencyKill is set and the kill file is present.
func (e *Engine) Apply(action strategy.Action, s *strategy.StrategyState, now int64, markPrice float64, severity drift.Severity) GuardedAction {
	// 1. kill file
	if e.killFilePresent() {
		if e.cfg.EmergencyKill {
			return GuardedAction{Action: strategy.HoldAction, Reason: ReasonEmergencyKill, Halt: true}
		}
		if action.Kind == strategy.Close {
			return GuardedAction{Action: action, Reason: ReasonNone}
		}
		return GuardedAction{Action: strategy.HoldAction, Reason: ReasonKillFile}
	}

	if action.Kind == strategy.Close {
		return GuardedAction{Action: action, Reason: ReasonNone}
	}

	// 2. loss cooldown
	if e.cfg.CooldownSecs > 0 && s.LastLossTs > 0 && now-s.LastLossTs < e.cfg.CooldownSecs {
		return GuardedAction{Action: strategy.HoldAction, Reason: ReasonLossCooldown}
	}

	// 3. daily trade limit
	if e.cfg.MaxTradesPerDay > 0 && s.TradesToday >= e.cfg.MaxTradesPerDay {
		if s.Position > 0 && action.Kind == strategy.Sell {
			return GuardedAction{Action: action, Reason: ReasonNone}
		}
		if s.Position < 0 && action.Kind == strategy.Buy {
			return GuardedAction{Action: action, Reason: ReasonNone}
		}
		return GuardedAction{Action: strategy.HoldAction, Reason: ReasonDailyTradeLimit}
	}

	// 4. daily loss limit (MTM PnL)
	equity := e.cfg.InitialEquity
	if equity <= 0 {
		equity = 1
	}
	mtm := s.MtmPnl(markPrice)
	if mtm < 0 && absf(mtm)/maxf(equity, 1.0) >= e.cfg.MaxDailyLossPct {
		if s.Position != 0 {
			return GuardedAction{Action: strategy.CloseAction, Reason: ReasonDailyLossLimit}
		}
		return GuardedAction{Action: strategy.HoldAction, Reason: ReasonDailyLossLimit}
	}

	// 5. exposure limit: check the position the proposed delta would
	// leave behind, not just the position already on the book, so a
	// flat strategy cannot bypass the cap with one oversized order.
	if e.cfg.MaxPositionPct > 0 && markPrice > 0 {
		increasingLong := action.Kind == strategy.Buy && s.Position >= 0
		increasingShort := action.Kind == strategy.Sell && s.Position <= 0
		if increasingLong || increasingShort {
			delta := action.Qty
			if action.Kind == strategy.Sell {
				delta = -action.Qty
			}
			target := s.Position + delta
			maxAbsPosition := e.cfg.MaxPositionPct * maxf(s.Equity, 1.0) / markPrice
			if absf(target) > maxAbsPosition {
				room := maxAbsPosition - absf(s.Position)
				if room <= 0 {
					return GuardedAction{Action: strategy.HoldAction, Reason: ReasonExposureLimit}
				}
				if action.Kind == strategy.Buy {
					return GuardedAction{Action: strategy.BuyAction(room), Reason: ReasonExposureLimit}
				}
				return GuardedAction{Action: strategy.SellAction(room), Reason: ReasonExposureLimit}
			}
		}
	}

	// 6. circuit breaker: Critical drift severity forces Close + Halt
	if severity == drift.SeverityCritical {
		return GuardedAction{Action: strategy.CloseAction, Reason: ReasonCircuitBreaker, Halt: true}
	}

	return GuardedAction{Action: action, Reason: ReasonNone}
}

func (e *Engine) killFilePresent() bool {
	if e.cfg.KillFilePath == "" {
		return false
	}
	_, err := os.Stat(e.cfg.KillFilePath)
	return err == nil
}

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
