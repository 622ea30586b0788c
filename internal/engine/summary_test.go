package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveragestack/coverage-engine/internal/models"
)

func testFleet() []models.SystemHealthHistory {
	return []models.SystemHealthHistory{
		historyFrom("host-chronic", strings.Repeat("U", 30)),
		historyFrom("host-degrading", strings.Repeat("F", 27)+"UUU"),
		historyFrom("host-flapping", strings.Repeat("FU", 15)),
		historyFrom("host-inactive", strings.Repeat("I", 30)),
		historyFrom("host-recovering", strings.Repeat("F", 25)+"PPP"+"FF"),
		historyFrom("host-stable", strings.Repeat("F", 30)),
	}
}

func TestEvaluate(t *testing.T) {
	aggregator := NewAggregator(nil, DefaultThresholds(), nil)
	req := models.AnalyticsRequest{WindowDays: 30, Environment: "prod"}

	summary, classifications, err := aggregator.Evaluate(context.Background(), req, testFleet())
	require.NoError(t, err)

	assert.Equal(t, 30, summary.WindowDays)
	assert.Equal(t, "prod", summary.Environment)
	assert.Equal(t, 5, summary.EvaluatedHosts)
	assert.Equal(t, 1, summary.ExcludedHosts)

	assert.Equal(t, 1, summary.Counts[models.ClassStableHealthy])
	assert.Equal(t, 1, summary.Counts[models.ClassStableUnhealthy])
	assert.Equal(t, 1, summary.Counts[models.ClassRecovering])
	assert.Equal(t, 1, summary.Counts[models.ClassDegrading])
	assert.Equal(t, 1, summary.Counts[models.ClassFlapping])

	// Classifications come back sorted by host ID regardless of the
	// parallel fan-out ordering.
	require.Len(t, classifications, 5)
	for i := 1; i < len(classifications); i++ {
		assert.Less(t, classifications[i-1].HostID, classifications[i].HostID)
	}

	// The one fresh recovery episode lands in the summary.
	assert.Equal(t, 1, summary.Recovery.NormalRecovery)

	// Built-in action items fire for the chronic and degrading hosts.
	categories := make([]string, 0, len(summary.ActionItems))
	for _, item := range summary.ActionItems {
		categories = append(categories, item.Category)
	}
	assert.Contains(t, categories, "Chronic Issues")
	assert.Contains(t, categories, "New Degradations")
}

func TestEvaluateHostIdentityCarriedThrough(t *testing.T) {
	aggregator := NewAggregator(nil, DefaultThresholds(), nil)

	_, classifications, err := aggregator.Evaluate(context.Background(), models.AnalyticsRequest{WindowDays: 30}, testFleet())
	require.NoError(t, err)
	require.NotEmpty(t, classifications)

	first := classifications[0]
	assert.Equal(t, "host-chronic", first.HostID)
	assert.Equal(t, "host-chronic", first.Shortname)
	assert.Equal(t, "host-chronic.corp.example.com", first.Fullname)
	assert.Equal(t, "prod", first.Environment)
	assert.Equal(t, map[string]bool{"edr": false, "logfwd": false, "vulnscan": false}, first.CurrentTools)
}

func TestEvaluateEmptyFleet(t *testing.T) {
	aggregator := NewAggregator(nil, DefaultThresholds(), nil)

	summary, classifications, err := aggregator.Evaluate(context.Background(), models.AnalyticsRequest{WindowDays: 30}, nil)
	require.NoError(t, err)
	assert.Empty(t, classifications)
	assert.Equal(t, 0, summary.EvaluatedHosts)
	assert.Equal(t, 0.0, summary.AverageStability)
}

func TestEvaluateCancelledContext(t *testing.T) {
	aggregator := NewAggregator(nil, DefaultThresholds(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := aggregator.Evaluate(ctx, models.AnalyticsRequest{WindowDays: 30}, testFleet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateTopCombinationsCapped(t *testing.T) {
	aggregator := NewAggregator(nil, DefaultThresholds(), nil)

	// Seven distinct missing-tool buckets across seven hosts.
	hosts := []models.SystemHealthHistory{
		comboHost("host-1", "edr", "logfwd"),
		comboHost("host-2", "edr", "vulnscan"),
		comboHost("host-3", "logfwd", "vulnscan"),
		comboHost("host-4", "edr"),
		comboHost("host-5", "logfwd"),
		comboHost("host-6", "vulnscan"),
		comboHost("host-7"),
	}

	summary, _, err := aggregator.Evaluate(context.Background(), models.AnalyticsRequest{WindowDays: 30}, hosts)
	require.NoError(t, err)
	assert.Len(t, summary.AllCombinations, 7)
	assert.Len(t, summary.TopCombinations, topCombinationCount)
}
