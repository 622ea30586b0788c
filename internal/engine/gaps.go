package engine

import "github.com/coveragestack/coverage-engine/internal/models"

// GapAnalyzer classifies missing reports for one specific tool whose
// absence is ambiguous between "host offline" and "agent broken" (the
// vulnerability scanner in the reference deployment).
type GapAnalyzer struct {
	cfg    Thresholds
	health *HealthClassifier
}

// NewGapAnalyzer constructs an analyzer with the supplied tuning.
func NewGapAnalyzer(cfg Thresholds) *GapAnalyzer {
	cfg = cfg.normalised()
	return &GapAnalyzer{cfg: cfg, health: NewHealthClassifier(cfg)}
}

// AnalyzeGap inspects a host's current-day record. The second return value
// is false when the host has no gap finding for the target tool: either
// the tool reported, or the host is captured by the general health view
// (active with every monitored tool missing).
func (a *GapAnalyzer) AnalyzeGap(hostID string, rec models.DailyHealthRecord) (models.GapClassification, bool) {
	if rec.ToolFound[a.cfg.GapTool] {
		return models.GapClassification{}, false
	}

	if !a.health.IsActive(rec) {
		// The tool provider correctly deregistered a stale host.
		return models.GapClassification{
			HostID: hostID,
			ToolID: a.cfg.GapTool,
			Kind:   models.GapExpected,
		}, true
	}

	for _, tool := range a.cfg.SecurityTools {
		if tool == a.cfg.GapTool {
			continue
		}
		if rec.ToolFound[tool] {
			// Host is alive and other agents report; this one may be broken.
			return models.GapClassification{
				HostID: hostID,
				ToolID: a.cfg.GapTool,
				Kind:   models.GapInvestigate,
			}, true
		}
	}

	// Active with nothing reporting at all: general unhealthy, not a
	// tool-specific gap.
	return models.GapClassification{}, false
}

// Summarize rolls individual gap findings into the aggregate the boundary
// layer renders. percentageExpected is 0 when there are no gaps at all.
func (a *GapAnalyzer) Summarize(gaps []models.GapClassification) models.GapSummary {
	summary := models.GapSummary{ToolID: a.cfg.GapTool}
	for _, gap := range gaps {
		switch gap.Kind {
		case models.GapExpected:
			summary.ExpectedGaps++
		case models.GapInvestigate:
			summary.InvestigateGaps++
		}
	}
	summary.PercentageExpected = safeDivide(
		float64(summary.ExpectedGaps),
		float64(summary.ExpectedGaps+summary.InvestigateGaps),
	) * 100
	return summary
}
