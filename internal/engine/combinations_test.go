package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveragestack/coverage-engine/internal/models"
)

// comboHost builds a one-day history with the given tools reporting.
func comboHost(hostID string, tools ...string) models.SystemHealthHistory {
	found := map[string]bool{}
	for _, tool := range tools {
		found[tool] = true
	}
	history := historyFrom(hostID, "F")
	history.Days[0].ToolFound = found
	return history
}

func TestAnalyzeCombinations(t *testing.T) {
	analyzer := NewCombinationAnalyzer(DefaultThresholds())

	// 5 unhealthy hosts: 3 missing only vulnscan, 2 missing logfwd+vulnscan.
	hosts := []models.SystemHealthHistory{
		comboHost("host-a", "edr", "logfwd"),
		comboHost("host-b", "edr", "logfwd"),
		comboHost("host-c", "edr", "logfwd"),
		comboHost("host-d", "edr"),
		comboHost("host-e", "edr"),
		comboHost("host-healthy", "edr", "logfwd", "vulnscan"),
	}

	combos, insights := analyzer.Analyze(hosts)
	require.Len(t, combos, 2)

	assert.Equal(t, []string{"vulnscan"}, combos[0].MissingTools)
	assert.Equal(t, 3, combos[0].SystemCount)
	assert.Equal(t, 60.0, combos[0].PercentageOfUnhealthy)
	assert.Equal(t, 50.0, combos[0].PotentialHealthIncrease)
	assert.Equal(t, []string{"host-a", "host-b", "host-c"}, combos[0].Hosts)

	assert.Equal(t, []string{"logfwd", "vulnscan"}, combos[1].MissingTools)
	assert.Equal(t, 2, combos[1].SystemCount)
	assert.Equal(t, 40.0, combos[1].PercentageOfUnhealthy)

	assert.Equal(t, 3, insights.MissingOneTool)
	assert.Equal(t, 2, insights.MissingMultiple)
	assert.Equal(t, 0, insights.MissingAllTools)
	assert.Equal(t, "vulnscan", insights.MostMissedTool)
	assert.Equal(t, 5, insights.MostMissedToolHits)
}

func TestAnalyzeCombinationsTieBreaksOnKey(t *testing.T) {
	analyzer := NewCombinationAnalyzer(DefaultThresholds())

	hosts := []models.SystemHealthHistory{
		comboHost("host-a", "logfwd", "vulnscan"), // missing edr
		comboHost("host-b", "edr", "logfwd"),      // missing vulnscan
	}

	combos, _ := analyzer.Analyze(hosts)
	require.Len(t, combos, 2)
	assert.Equal(t, []string{"edr"}, combos[0].MissingTools)
	assert.Equal(t, []string{"vulnscan"}, combos[1].MissingTools)
}

func TestAnalyzeCombinationsSkipsInactiveAndHealthy(t *testing.T) {
	analyzer := NewCombinationAnalyzer(DefaultThresholds())

	inactive := historyFrom("host-inactive", strings.Repeat("I", 3))
	healthy := comboHost("host-healthy", "edr", "logfwd", "vulnscan")
	unhealthy := comboHost("host-unhealthy")

	combos, insights := analyzer.Analyze([]models.SystemHealthHistory{inactive, healthy, unhealthy})
	require.Len(t, combos, 1)
	assert.Equal(t, []string{"edr", "logfwd", "vulnscan"}, combos[0].MissingTools)
	assert.Equal(t, 1, insights.MissingAllTools)
}

func TestCombinationKeyIsOrderInsensitive(t *testing.T) {
	assert.Equal(t, CombinationKey([]string{"vulnscan", "edr"}), CombinationKey([]string{"edr", "vulnscan"}))
	assert.Equal(t, "edr+vulnscan", CombinationKey([]string{"vulnscan", "edr"}))
}
