package engine

import (
	"sort"
	"strings"

	"github.com/coveragestack/coverage-engine/internal/models"
)

// CombinationAnalyzer groups currently-unhealthy hosts by their exact
// missing-tool set and ranks remediation impact.
type CombinationAnalyzer struct {
	cfg    Thresholds
	health *HealthClassifier
}

// NewCombinationAnalyzer constructs an analyzer with the supplied tuning.
func NewCombinationAnalyzer(cfg Thresholds) *CombinationAnalyzer {
	cfg = cfg.normalised()
	return &CombinationAnalyzer{cfg: cfg, health: NewHealthClassifier(cfg)}
}

// CombinationKey is the canonical grouping key for a missing-tool set.
func CombinationKey(missing []string) string {
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	return strings.Join(sorted, "+")
}

// Analyze buckets the active, not-fully-healthy hosts of the current-day
// fleet snapshot by missing-tool set. Output order is deterministic:
// descending system count, ties broken by the lexical order of the
// missing-tool-set key.
func (a *CombinationAnalyzer) Analyze(hosts []models.SystemHealthHistory) ([]models.ToolCombination, models.CombinationInsights) {
	type bucket struct {
		missing []string
		hosts   []string
	}
	buckets := make(map[string]*bucket)

	totalActive := 0
	totalUnhealthy := 0
	toolMisses := make(map[string]int)

	for _, host := range hosts {
		rec, ok := host.Latest()
		if !ok {
			continue
		}
		level := a.health.ClassifyDay(rec)
		if level == models.HealthInactive {
			continue
		}
		totalActive++
		if level == models.HealthFullyHealthy {
			continue
		}
		totalUnhealthy++

		missing := a.health.MissingTools(rec)
		for _, tool := range missing {
			toolMisses[tool]++
		}

		key := CombinationKey(missing)
		b, exists := buckets[key]
		if !exists {
			b = &bucket{missing: missing}
			buckets[key] = b
		}
		b.hosts = append(b.hosts, host.HostID)
	}

	combos := make([]models.ToolCombination, 0, len(buckets))
	for _, b := range buckets {
		sort.Strings(b.hosts)
		combos = append(combos, models.ToolCombination{
			MissingTools:            b.missing,
			SystemCount:             len(b.hosts),
			PercentageOfUnhealthy:   safeDivide(float64(len(b.hosts)), float64(totalUnhealthy)) * 100,
			PotentialHealthIncrease: safeDivide(float64(len(b.hosts)), float64(totalActive)) * 100,
			Hosts:                   b.hosts,
		})
	}

	sort.SliceStable(combos, func(i, j int) bool {
		if combos[i].SystemCount != combos[j].SystemCount {
			return combos[i].SystemCount > combos[j].SystemCount
		}
		return CombinationKey(combos[i].MissingTools) < CombinationKey(combos[j].MissingTools)
	})

	return combos, a.insights(combos, toolMisses)
}

func (a *CombinationAnalyzer) insights(combos []models.ToolCombination, toolMisses map[string]int) models.CombinationInsights {
	var insights models.CombinationInsights
	for _, combo := range combos {
		switch {
		case len(combo.MissingTools) == 1:
			insights.MissingOneTool += combo.SystemCount
		case len(combo.MissingTools) >= 2:
			insights.MissingMultiple += combo.SystemCount
		}
		if len(combo.MissingTools) == len(a.cfg.SecurityTools) {
			insights.MissingAllTools += combo.SystemCount
		}
	}

	tools := make([]string, 0, len(toolMisses))
	for tool := range toolMisses {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		if toolMisses[tool] > insights.MostMissedToolHits {
			insights.MostMissedTool = tool
			insights.MostMissedToolHits = toolMisses[tool]
		}
	}
	return insights
}
