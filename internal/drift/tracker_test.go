package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindowMeanAndStdDev(t *testing.T) {
	w := NewRollingWindow(3)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	assert.InDelta(t, 2.0, w.Mean(), 1e-9)
	assert.Greater(t, w.StdDev(), 0.0)
}

func TestRollingWindowEvictsOldest(t *testing.T) {
	w := NewRollingWindow(2)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	assert.InDelta(t, 2.5, w.Mean(), 1e-9)
}

func TestThresholdsClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, SeverityNone, th.classify(0))
	assert.Equal(t, SeverityLow, th.classify(th.LowZ))
	assert.Equal(t, SeverityModerate, th.classify(th.ModerateZ))
	assert.Equal(t, SeveritySevere, th.classify(th.SevereZ))
	assert.Equal(t, SeverityCritical, th.classify(th.CriticalZ))
}

func TestSeverityPositionMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, SeverityNone.PositionMultiplier())
	assert.Equal(t, 0.7, SeverityLow.PositionMultiplier())
	assert.Equal(t, 0.5, SeverityModerate.PositionMultiplier())
	assert.Equal(t, 0.3, SeveritySevere.PositionMultiplier())
	assert.Equal(t, 0.0, SeverityCritical.PositionMultiplier())
}

func TestSeverityShouldHaltAndShouldClose(t *testing.T) {
	assert.True(t, SeverityCritical.ShouldHalt())
	assert.False(t, SeveritySevere.ShouldHalt())
	assert.True(t, SeveritySevere.ShouldClose())
	assert.True(t, SeverityCritical.ShouldClose())
	assert.False(t, SeverityModerate.ShouldClose())
}

func TestTrackerUpdateAggregatesWorstOfAllFeatures(t *testing.T) {
	tr := NewTracker(20, DefaultThresholds(), "return", "volatility")
	baseline := []float64{1, 2, 1, 2, 1, 2, 1, 2, 1, 2}
	for _, v := range baseline {
		tr.Update("return", v)
	}
	report := tr.Update("return", 100.0)
	assert.True(t, report.Uncalibrated)
	assert.GreaterOrEqual(t, report.Overall, SeverityLow)
}

func TestTrackerComputeWithoutNewObservation(t *testing.T) {
	tr := NewTracker(20, DefaultThresholds(), "return")
	for i := 0; i < 5; i++ {
		tr.Update("return", float64(i))
	}
	report := tr.Compute()
	assert.NotNil(t, report)
}

func TestFeatureTrackerFlatSeriesStaysNone(t *testing.T) {
	ft := NewFeatureTracker(10, DefaultThresholds())
	for i := 0; i < 5; i++ {
		assert.Equal(t, SeverityNone, ft.Push(5.0))
	}
}
