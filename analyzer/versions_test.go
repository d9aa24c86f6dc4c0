package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mchestr/kubestats/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		from, to  string
		direction Direction
		magnitude Magnitude
	}{
		{"patch upgrade", "9.2.1", "9.2.2", DirectionUpgrade, MagnitudePatch},
		{"minor upgrade", "9.2.1", "9.3.0", DirectionUpgrade, MagnitudeMinor},
		{"major upgrade", "9.2.1", "10.0.0", DirectionUpgrade, MagnitudeMajor},
		{"downgrade", "9.3.0", "9.2.1", DirectionDowngrade, MagnitudeMinor},
		{"v prefix accepted", "v1.2.3", "v1.2.4", DirectionUpgrade, MagnitudePatch},
		{"prerelease promotion", "1.0.0-rc.1", "1.0.0", DirectionUpgrade, MagnitudePrerelease},
		{"equal", "9.2.1", "9.2.1", DirectionNone, MagnitudeNone},
		{"not semver", "latest", "9.2.1", DirectionUnknown, MagnitudeUnknown},
		{"empty from", "", "9.2.1", DirectionUnknown, MagnitudeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := Classify(tt.from, tt.to)
			assert.Equal(t, tt.direction, change.Direction)
			assert.Equal(t, tt.magnitude, change.Magnitude)
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	history := []types.ResourceMetrics{
		{ChartVersion: "9.2.1", RecordedAt: now.Add(-3 * time.Hour)},
		{ChartVersion: "", RecordedAt: now.Add(-2 * time.Hour)},
		{ChartVersion: "9.3.0", RecordedAt: now.Add(-time.Hour)},
		{ChartVersion: "9.3.0", RecordedAt: now.Add(-30 * time.Minute)},
		{ChartVersion: "10.0.0", RecordedAt: now},
	}

	changes := Summarize(history)
	if assert.Len(t, changes, 2) {
		assert.Equal(t, MagnitudeMinor, changes[0].Magnitude)
		assert.Equal(t, "9.2.1", changes[0].From)
		assert.Equal(t, MagnitudeMajor, changes[1].Magnitude)
		assert.Equal(t, DirectionUpgrade, changes[1].Direction)
	}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
