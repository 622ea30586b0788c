package engine

import (
	"time"

	"github.com/coveragestack/coverage-engine/internal/models"
	"github.com/coveragestack/coverage-engine/internal/utils"
)

// TrailingWindowAnalyzer restricts analysis to hosts continuously active
// over a trailing window and computes degradation/improvement deltas
// between the window's first and last day.
type TrailingWindowAnalyzer struct {
	cfg    Thresholds
	health *HealthClassifier
}

// windowHost is a qualifying host with its window-start and window-end
// records.
type windowHost struct {
	hostID string
	first  models.DailyHealthRecord
	last   models.DailyHealthRecord
}

// NewTrailingWindowAnalyzer constructs an analyzer with the supplied tuning.
func NewTrailingWindowAnalyzer(cfg Thresholds) *TrailingWindowAnalyzer {
	cfg = cfg.normalised()
	return &TrailingWindowAnalyzer{cfg: cfg, health: NewHealthClassifier(cfg)}
}

// Analyze qualifies hosts with an active record on each of the last
// TrailingWindowDays consecutive calendar days ending at the fleet's most
// recent snapshot date, then reports the subset's health distribution,
// per-tool reporting transitions, and per-host score movement.
func (a *TrailingWindowAnalyzer) Analyze(hosts []models.SystemHealthHistory) models.TrailingWindowReport {
	report := models.TrailingWindowReport{WindowDays: a.cfg.TrailingWindowDays}

	asOf := fleetLatestDate(hosts)
	if asOf.IsZero() {
		return report
	}

	var subset []windowHost
	var lastRecs []models.DailyHealthRecord
	for _, host := range hosts {
		window, ok := a.qualify(host, asOf)
		if !ok {
			continue
		}
		subset = append(subset, windowHost{
			hostID: host.HostID,
			first:  window[0],
			last:   window[len(window)-1],
		})
		lastRecs = append(lastRecs, window[len(window)-1])
	}

	report.Metrics.QualifyingHosts = len(subset)
	report.Metrics.HealthRate = a.health.HealthRate(lastRecs)
	for _, rec := range lastRecs {
		switch a.health.ClassifyDay(rec) {
		case models.HealthFullyHealthy:
			report.Metrics.FullyHealthy++
		case models.HealthPartiallyHealthy:
			report.Metrics.PartiallyHealthy++
		case models.HealthUnhealthy:
			report.Metrics.Unhealthy++
		}
	}

	report.ToolDeltas = a.toolDeltas(subset)
	report.Improvement = a.improvement(subset)
	return report
}

// qualify returns the host's records for each of the windowSize days
// ending at asOf, all active, ascending. Any gap or inactive day
// disqualifies the host.
func (a *TrailingWindowAnalyzer) qualify(host models.SystemHealthHistory, asOf time.Time) ([]models.DailyHealthRecord, bool) {
	byDate := make(map[time.Time]models.DailyHealthRecord, len(host.Days))
	for _, rec := range host.Days {
		byDate[utils.TruncateToDay(rec.Date)] = rec
	}

	window := make([]models.DailyHealthRecord, 0, a.cfg.TrailingWindowDays)
	for offset := a.cfg.TrailingWindowDays - 1; offset >= 0; offset-- {
		day := utils.TruncateToDay(asOf).AddDate(0, 0, -offset)
		rec, ok := byDate[day]
		if !ok || !a.health.IsActive(rec) {
			return nil, false
		}
		window = append(window, rec)
	}
	return window, true
}

// toolDeltas counts, per monitored tool, hosts that lost the tool between
// window start and end, gained it, or stayed unchanged.
func (a *TrailingWindowAnalyzer) toolDeltas(subset []windowHost) []models.ToolDelta {
	deltas := make([]models.ToolDelta, 0, len(a.cfg.SecurityTools))
	for _, tool := range a.cfg.SecurityTools {
		delta := models.ToolDelta{ToolID: tool}
		for _, host := range subset {
			before := host.first.ToolFound[tool]
			after := host.last.ToolFound[tool]
			switch {
			case before && !after:
				delta.Lost++
			case !before && after:
				delta.Gained++
			default:
				delta.Stable++
			}
		}
		deltas = append(deltas, delta)
	}
	return deltas
}

// improvement measures per-host fractional score movement across the window.
func (a *TrailingWindowAnalyzer) improvement(subset []windowHost) models.ImprovementSummary {
	var summary models.ImprovementSummary
	total := 0.0
	for _, host := range subset {
		change := a.health.FractionalScore(host.last) - a.health.FractionalScore(host.first)
		total += change
		switch {
		case change > 0:
			summary.Improved++
		case change < 0:
			summary.Degraded++
		default:
			summary.Stable++
		}
		summary.Hosts = append(summary.Hosts, models.HostImprovement{
			HostID:      host.hostID,
			ScoreChange: change,
		})
	}
	summary.AverageImprovement = safeDivide(total, float64(len(subset)))
	return summary
}

func fleetLatestDate(hosts []models.SystemHealthHistory) time.Time {
	var latest time.Time
	for _, host := range hosts {
		if rec, ok := host.Latest(); ok && rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	return latest
}
