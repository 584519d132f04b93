package wal

import (
	"encoding/json"

	"arbitragefx/internal/strategy"
)

// PlaceIntentEntry is the WAL record written before an intent is
// published to the simulator/adapter (write-ahead rule, spec §4.6).
type PlaceIntentEntry struct {
	Intent strategy.Intent `json:"intent"`
}

// FillEntry is the WAL record written before a fill's effect is applied
// to StrategyState.
type FillEntry struct {
	Fill strategy.Fill `json:"fill"`
}

// CancelEntry is the WAL record for a Cancel command. It carries no qty,
// price or fee; state.Recover uses it only to drop the order's pending
// PlaceIntent.
type CancelEntry struct {
	ClientOrderID string `json:"clientOrderId"`
	Ts            int64  `json:"ts"`
}

// RiskHaltEntry is the WAL record for a circuit-breaker or emergency-kill
// halt.
type RiskHaltEntry struct {
	Reason string `json:"reason"`
	Ts     int64  `json:"ts"`
}

func marshalEntry(v any) ([]byte, error) { return json.Marshal(v) }

// EncodePlaceIntent, EncodeFill, EncodeCancel, EncodeRiskHalt render their
// entry as WAL payload bytes; the paired Decode* functions parse them
// back. Errors propagate to the caller, who wraps them via internal/errors
// at the WAL-writer boundary.
func EncodePlaceIntent(e PlaceIntentEntry) ([]byte, error) { return marshalEntry(e) }
func EncodeFill(e FillEntry) ([]byte, error)               { return marshalEntry(e) }
func EncodeCancel(e CancelEntry) ([]byte, error)           { return marshalEntry(e) }
func EncodeRiskHalt(e RiskHaltEntry) ([]byte, error)       { return marshalEntry(e) }

func DecodePlaceIntent(payload []byte) (PlaceIntentEntry, error) {
	var e PlaceIntentEntry
	err := json.Unmarshal(payload, &e)
	return e, err
}

func DecodeFill(payload []byte) (FillEntry, error) {
	var e FillEntry
	err := json.Unmarshal(payload, &e)
	return e, err
}

func DecodeCancel(payload []byte) (CancelEntry, error) {
	var e CancelEntry
	err := json.Unmarshal(payload, &e)
	return e, err
}

func DecodeRiskHalt(payload []byte) (RiskHaltEntry, error) {
	var e RiskHaltEntry
	err := json.Unmarshal(payload, &e)
	return e, err
}
