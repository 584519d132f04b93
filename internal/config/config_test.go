package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaultsAndIgnoresComments(t *testing.T) {
	text := "# a comment\n\nSYMBOL=ETH-USDT\nENTRY_TH=2.0\n"
	cfg, err := Load(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "ETH-USDT", cfg.Symbol)
	assert.Equal(t, 2.0, cfg.EntryTh)
	assert.Equal(t, Default().StopLoss, cfg.StopLoss)
}

func TestLoadOverridesDayOffsetSecs(t *testing.T) {
	cfg, err := Load(strings.NewReader("DAY_OFFSET_SECS=-14400\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(-14400), cfg.DayOffsetSecs)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(strings.NewReader("NOT_A_KEY=1\n"))
	assert.Error(t, err)
}

func TestLoadRejectsMissingEquals(t *testing.T) {
	_, err := Load(strings.NewReader("SYMBOL\n"))
	assert.Error(t, err)
}

func TestRenderIsSortedAndDeterministic(t *testing.T) {
	cfg := Default()
	a := cfg.Render()
	b := cfg.Render()
	assert.Equal(t, a, b)

	lines := strings.Split(strings.TrimRight(a, "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		assert.Less(t, lines[i-1], lines[i])
	}
}

func TestHashChangesWithAnyFieldChange(t *testing.T) {
	a := Default()
	b := Default()
	b.EntryTh = a.EntryTh + 0.1
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Hash(), Default().Hash())
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []func(c *Config){
		func(c *Config) { c.Symbol = "" },
		func(c *Config) { c.CandleSecs = 0 },
		func(c *Config) { c.WarmupBars = -1 },
		func(c *Config) { c.MaxPosPct = 0 },
		func(c *Config) { c.MaxPosPct = 1.5 },
		func(c *Config) { c.MaxDailyLossPct = 0 },
		func(c *Config) { c.LatMax = 1; c.LatMin = 2 },
		func(c *Config) { c.MaxFillRatio = 0 },
		func(c *Config) { c.WalPath = "" },
		func(c *Config) { c.SnapshotInterval = 0 },
		func(c *Config) { c.ExecMode = "bogus" },
		func(c *Config) { c.DayOffsetSecs = 86400 },
		func(c *Config) { c.DayOffsetSecs = -86400 },
	}
	for _, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}
}
