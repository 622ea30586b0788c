package engine

import (
	"sort"

	"github.com/coveragestack/coverage-engine/internal/models"
)

// HealthClassifier derives a per-day health level for one host from its
// security-tool flags and discovery-tool recency. All methods are pure.
type HealthClassifier struct {
	cfg Thresholds
}

// NewHealthClassifier constructs a classifier with the supplied tuning.
func NewHealthClassifier(cfg Thresholds) *HealthClassifier {
	return &HealthClassifier{cfg: cfg.normalised()}
}

// IsActive reports whether the host counts as alive on the given day: the
// discovery tool has seen it within the activity threshold. A missing or
// negative lag (malformed record) gates the day to inactive.
func (c *HealthClassifier) IsActive(rec models.DailyHealthRecord) bool {
	if rec.DiscoveryLagDays == nil {
		return false
	}
	lag := *rec.DiscoveryLagDays
	return lag >= 0 && lag <= c.cfg.ActivityThresholdDays
}

// ClassifyDay maps one daily record onto a health level. Inactive days are
// HealthInactive regardless of what the security tools report.
func (c *HealthClassifier) ClassifyDay(rec models.DailyHealthRecord) models.HealthLevel {
	if !c.IsActive(rec) {
		return models.HealthInactive
	}
	found := c.foundCount(rec)
	switch {
	case found == len(c.cfg.SecurityTools):
		return models.HealthFullyHealthy
	case found > 0:
		return models.HealthPartiallyHealthy
	default:
		return models.HealthUnhealthy
	}
}

// FractionalScore is the 0-100 tool-coverage score for rate aggregation:
// foundTools/monitoredTools * 100. Only meaningful for active days.
func (c *HealthClassifier) FractionalScore(rec models.DailyHealthRecord) float64 {
	return safeDivide(float64(c.foundCount(rec)), float64(len(c.cfg.SecurityTools))) * 100
}

// MissingTools returns the monitored tools absent from the record, sorted
// for deterministic grouping keys.
func (c *HealthClassifier) MissingTools(rec models.DailyHealthRecord) []string {
	missing := make([]string, 0, len(c.cfg.SecurityTools))
	for _, tool := range c.cfg.SecurityTools {
		if !rec.ToolFound[tool] {
			missing = append(missing, tool)
		}
	}
	sort.Strings(missing)
	return missing
}

// CurrentTools reports the present/absent flag per monitored tool,
// restricted to the configured tool set.
func (c *HealthClassifier) CurrentTools(rec models.DailyHealthRecord) map[string]bool {
	tools := make(map[string]bool, len(c.cfg.SecurityTools))
	for _, tool := range c.cfg.SecurityTools {
		tools[tool] = rec.ToolFound[tool]
	}
	return tools
}

// HealthRate computes the environment-wide health rate over a set of
// same-day records: mean fractional score across active hosts, 0 when no
// host is active.
func (c *HealthClassifier) HealthRate(records []models.DailyHealthRecord) float64 {
	sum := 0.0
	active := 0
	for _, rec := range records {
		if !c.IsActive(rec) {
			continue
		}
		sum += c.FractionalScore(rec)
		active++
	}
	return safeDivide(sum, float64(active))
}

func (c *HealthClassifier) foundCount(rec models.DailyHealthRecord) int {
	found := 0
	for _, tool := range c.cfg.SecurityTools {
		if rec.ToolFound[tool] {
			found++
		}
	}
	return found
}

// activeDay pairs a record with its derived level, restricted to days that
// passed the activity gate.
type activeDay struct {
	rec   models.DailyHealthRecord
	level models.HealthLevel
}

// activeDays projects a history onto its active-day subsequence. Inactive
// days are skipped entirely: adjacency, stable runs, and trend lookbacks
// all operate on this projection.
func (c *HealthClassifier) activeDays(history models.SystemHealthHistory) []activeDay {
	days := make([]activeDay, 0, len(history.Days))
	for _, rec := range history.Days {
		level := c.ClassifyDay(rec)
		if level == models.HealthInactive {
			continue
		}
		days = append(days, activeDay{rec: rec, level: level})
	}
	return days
}
