package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitragefx/internal/strategy"
)

func TestNewSnapshotEmbedsMatchingHash(t *testing.T) {
	s := strategy.StrategyState{ID: "momentum-1", Position: 2, Cash: 800, Equity: 1000}
	snap := NewSnapshot(s, 1000)
	assert.NoError(t, snap.Verify())
}

func TestSnapshotVerifyDetectsTamper(t *testing.T) {
	s := strategy.StrategyState{ID: "momentum-1", Position: 2, Cash: 800, Equity: 1000}
	snap := NewSnapshot(s, 1000)
	snap.State.Position = 999
	assert.Error(t, snap.Verify())
}

func TestSnapshotEncodeDecodeRoundTrip(t *testing.T) {
	s := strategy.StrategyState{ID: "carry-1", Position: -1, Cash: 1100, Equity: 1000}
	snap := NewSnapshot(s, 2000)

	payload, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)
	assert.NoError(t, decoded.Verify())
}
