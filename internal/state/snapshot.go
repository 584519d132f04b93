package state

import (
	"encoding/json"
	"fmt"

	"arbitragefx/internal/strategy"
)

// Snapshot is a persisted (strategy_id, state, state_hash) record,
// written to the WAL after the state mutation it follows has already
// been applied. Kept JSON-encoded, matching the teacher's own snapshot
// format (internal/state/snapshot.go used encoding/json), since the WAL
// payload serialization choice documented in spec §6 permits canonical
// JSON as an alternative to a fixed binary layout, and StrategyState's
// one variable-length field (ID) makes JSON the simpler honest choice.
type Snapshot struct {
	StrategyID string                 `json:"strategyId"`
	Ts         int64                  `json:"ts"`
	State      strategy.StrategyState `json:"state"`
	StateHash  string                 `json:"stateHash"`
}

// NewSnapshot builds a Snapshot for s, computing and embedding its hash.
func NewSnapshot(s strategy.StrategyState, ts int64) Snapshot {
	return Snapshot{
		StrategyID: s.ID,
		Ts:         ts,
		State:      s,
		StateHash:  HashString(StateHash(s)),
	}
}

// Verify recomputes the hash of snap.State and compares it against the
// recorded StateHash, per spec §4.6 step 2.
func (snap Snapshot) Verify() error {
	got := HashString(StateHash(snap.State))
	if got != snap.StateHash {
		return fmt.Errorf("state hash mismatch for strategy %s: recorded=%s computed=%s", snap.StrategyID, snap.StateHash, got)
	}
	return nil
}

// EncodeSnapshot renders a Snapshot as the WAL payload bytes.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeSnapshot parses a Snapshot from WAL payload bytes.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
