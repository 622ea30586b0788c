package engine

import (
	"fmt"
	"strings"

	"github.com/coveragestack/coverage-engine/internal/models"
)

// StabilityAnalyzer turns a host's day-ordered health history into change
// counts, a stability score, and the 5-way behavioral classification.
type StabilityAnalyzer struct {
	cfg    Thresholds
	health *HealthClassifier
}

// NewStabilityAnalyzer constructs an analyzer with the supplied tuning.
func NewStabilityAnalyzer(cfg Thresholds) *StabilityAnalyzer {
	cfg = cfg.normalised()
	return &StabilityAnalyzer{cfg: cfg, health: NewHealthClassifier(cfg)}
}

// Analyze classifies one host. The second return value is false when the
// host has no active days in the window and is excluded from
// classification entirely.
//
// The decision order is fixed: stable-healthy, stable-unhealthy, recovering,
// degrading, flapping. First match wins.
func (a *StabilityAnalyzer) Analyze(history models.SystemHealthHistory) (models.ClassificationResult, bool) {
	days := a.health.activeDays(history)
	if len(days) == 0 {
		return models.ClassificationResult{}, false
	}

	changes := 0
	for i := 1; i < len(days); i++ {
		if days[i].level != days[i-1].level {
			changes++
		}
	}

	current := days[len(days)-1].level
	stableRun := 1
	for i := len(days) - 2; i >= 0 && days[i].level == current; i-- {
		stableRun++
	}

	result := models.ClassificationResult{
		HostID:                history.HostID,
		StabilityScore:        clamp(100-safeDivide(float64(changes), float64(len(days)))*a.cfg.StabilityDamping, 0, 100),
		HealthChangeCount:     changes,
		ConsecutiveDaysStable: stableRun,
		CurrentHealthLevel:    current,
	}

	// A single observation is stable by its observed level, never a trend.
	if len(days) == 1 {
		if current == models.HealthFullyHealthy {
			result.Classification = models.ClassStableHealthy
		} else {
			result.Classification = models.ClassStableUnhealthy
			result.IsActionable = true
			result.ActionReason = "chronic tooling gap"
		}
		return result, true
	}

	lowChange := changes <= a.cfg.LowChangeThreshold
	stableEnough := stableRun >= a.cfg.StableDaysThreshold

	switch {
	case lowChange && current == models.HealthFullyHealthy && stableEnough:
		result.Classification = models.ClassStableHealthy

	case lowChange && current != models.HealthFullyHealthy && stableEnough:
		result.Classification = models.ClassStableUnhealthy
		result.IsActionable = true
		result.ActionReason = "chronic tooling gap"

	case a.improvedRecently(days):
		// Actionability of a recovery depends on whether it is stuck;
		// the recovery tracker owns that call.
		result.Classification = models.ClassRecovering

	case a.declinedRecently(days):
		result.Classification = models.ClassDegrading
		result.IsActionable = true
		result.ActionReason = a.degradeReason(days)

	default:
		// Frequent alternation: expected offline/online cycling.
		result.Classification = models.ClassFlapping
	}

	return result, true
}

// improvedRecently reports a genuine upward trend: the lookback is
// monotonically non-decreasing and ends strictly above where it started.
// Requiring monotonicity keeps day-to-day alternation out of the trend
// labels and in the flapping bucket.
func (a *StabilityAnalyzer) improvedRecently(days []activeDay) bool {
	window := a.lookback(days)
	for i := 1; i < len(window); i++ {
		if window[i].level.Rank() < window[i-1].level.Rank() {
			return false
		}
	}
	return window[len(window)-1].level.Rank() > window[0].level.Rank()
}

// declinedRecently reports a genuine downward trend, the mirror of
// improvedRecently.
func (a *StabilityAnalyzer) declinedRecently(days []activeDay) bool {
	window := a.lookback(days)
	for i := 1; i < len(window); i++ {
		if window[i].level.Rank() > window[i-1].level.Rank() {
			return false
		}
	}
	return window[len(window)-1].level.Rank() < window[0].level.Rank()
}

// degradeReason names the tools that reported at the start of the lookback
// but are silent now.
func (a *StabilityAnalyzer) degradeReason(days []activeDay) string {
	window := a.lookback(days)
	first := window[0]
	latest := window[len(window)-1]

	lost := make([]string, 0, len(a.cfg.SecurityTools))
	for _, tool := range a.cfg.SecurityTools {
		if first.rec.ToolFound[tool] && !latest.rec.ToolFound[tool] {
			lost = append(lost, tool)
		}
	}
	if len(lost) == 0 {
		return "health level declined"
	}
	return fmt.Sprintf("stopped reporting: %s", strings.Join(lost, ", "))
}

func (a *StabilityAnalyzer) lookback(days []activeDay) []activeDay {
	n := a.cfg.RecentLookbackDays
	if n > len(days) {
		n = len(days)
	}
	return days[len(days)-n:]
}
