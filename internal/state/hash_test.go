package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arbitragefx/internal/strategy"
)

func TestStateHashDeterministic(t *testing.T) {
	s := strategy.StrategyState{ID: "momentum-1", Position: 1.5, Cash: 900, Equity: 1000}
	a := StateHash(s)
	b := StateHash(s)
	assert.Equal(t, a, b)
}

func TestStateHashChangesWithAnyField(t *testing.T) {
	s := strategy.StrategyState{ID: "momentum-1", Position: 1.5, Cash: 900, Equity: 1000}
	base := StateHash(s)

	variant := s
	variant.Position = 1.6
	assert.NotEqual(t, base, StateHash(variant))

	variant = s
	variant.Wins = 1
	assert.NotEqual(t, base, StateHash(variant))
}

func TestHashStringIsLowercaseHex32(t *testing.T) {
	s := strategy.StrategyState{ID: "carry-1"}
	str := HashString(StateHash(s))
	assert.Len(t, str, 32)
	for _, c := range str {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
	}
}
