package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveragestack/coverage-engine/internal/models"
)

func TestTrailingWindowQualification(t *testing.T) {
	analyzer := NewTrailingWindowAnalyzer(DefaultThresholds())

	continuous := historyFrom("host-ok", strings.Repeat("F", 10))
	inactiveTail := historyFrom("host-stale", strings.Repeat("F", 8)+"II")
	missingDay := historyFrom("host-gap", strings.Repeat("F", 8)+"_F")
	short := historyFrom("host-short", "FFF")

	report := analyzer.Analyze([]models.SystemHealthHistory{continuous, inactiveTail, missingDay, short})

	// Only host-ok has an active record on every one of the last 5 days.
	assert.Equal(t, 5, report.WindowDays)
	assert.Equal(t, 1, report.Metrics.QualifyingHosts)
	assert.Equal(t, 1, report.Metrics.FullyHealthy)
	assert.Equal(t, 100.0, report.Metrics.HealthRate)
}

func TestTrailingWindowToolDeltas(t *testing.T) {
	analyzer := NewTrailingWindowAnalyzer(DefaultThresholds())

	// Fully healthy at window start, only edr left at the end.
	degrading := historyFrom("host-down", strings.Repeat("F", 7)+"PPP")
	// Unhealthy at window start, fully healthy at the end.
	recovering := historyFrom("host-up", strings.Repeat("U", 8)+"FF")

	report := analyzer.Analyze([]models.SystemHealthHistory{degrading, recovering})
	require.Equal(t, 2, report.Metrics.QualifyingHosts)

	deltas := map[string]models.ToolDelta{}
	for _, d := range report.ToolDeltas {
		deltas[d.ToolID] = d
	}

	// host-down: F at window start, P (edr only) at end. host-up: U to F.
	assert.Equal(t, 0, deltas["edr"].Lost)
	assert.Equal(t, 1, deltas["edr"].Gained)
	assert.Equal(t, 1, deltas["logfwd"].Lost)
	assert.Equal(t, 1, deltas["logfwd"].Gained)
	assert.Equal(t, 1, deltas["vulnscan"].Lost)
	assert.Equal(t, 1, deltas["vulnscan"].Gained)
}

func TestTrailingWindowImprovement(t *testing.T) {
	analyzer := NewTrailingWindowAnalyzer(DefaultThresholds())

	degrading := historyFrom("host-down", strings.Repeat("F", 7)+"PPP")
	recovering := historyFrom("host-up", strings.Repeat("U", 8)+"FF")
	steady := historyFrom("host-flat", strings.Repeat("F", 10))

	report := analyzer.Analyze([]models.SystemHealthHistory{degrading, recovering, steady})

	assert.Equal(t, 1, report.Improvement.Improved)
	assert.Equal(t, 1, report.Improvement.Degraded)
	assert.Equal(t, 1, report.Improvement.Stable)
	require.Len(t, report.Improvement.Hosts, 3)

	changes := map[string]float64{}
	for _, h := range report.Improvement.Hosts {
		changes[h.HostID] = h.ScoreChange
	}
	assert.InDelta(t, -200.0/3, changes["host-down"], 0.001)
	assert.Equal(t, 100.0, changes["host-up"])
	assert.Equal(t, 0.0, changes["host-flat"])
}

func TestTrailingWindowEmptyFleet(t *testing.T) {
	analyzer := NewTrailingWindowAnalyzer(DefaultThresholds())

	report := analyzer.Analyze(nil)
	assert.Equal(t, 0, report.Metrics.QualifyingHosts)
	assert.Empty(t, report.ToolDeltas)
}
