package models

import "time"

// HealthLevel is the per-day derived state of a host. It is a pure function
// of a single DailyHealthRecord and is never stored independently.
type HealthLevel string

const (
	HealthFullyHealthy     HealthLevel = "fully_healthy"
	HealthPartiallyHealthy HealthLevel = "partially_healthy"
	HealthUnhealthy        HealthLevel = "unhealthy"
	HealthInactive         HealthLevel = "inactive"
)

// Rank orders health levels for trend comparison. Higher is better.
// HealthInactive has no rank; callers must filter inactive days first.
func (h HealthLevel) Rank() int {
	switch h {
	case HealthFullyHealthy:
		return 2
	case HealthPartiallyHealthy:
		return 1
	default:
		return 0
	}
}

// Classification is the 5-way behavioral label assigned per host.
type Classification string

const (
	ClassStableHealthy   Classification = "stable_healthy"
	ClassStableUnhealthy Classification = "stable_unhealthy"
	ClassRecovering      Classification = "recovering"
	ClassDegrading       Classification = "degrading"
	ClassFlapping        Classification = "flapping"
)

// RecoveryStatus labels the speed/outcome of a recovery episode.
type RecoveryStatus string

const (
	RecoveryNormal RecoveryStatus = "normal_recovery"
	RecoveryStuck  RecoveryStatus = "stuck_recovery"
	RecoveryFull   RecoveryStatus = "fully_recovered"
)

// GapKind distinguishes an expected tooling gap from one needing a human.
type GapKind string

const (
	GapExpected    GapKind = "expected_gap"
	GapInvestigate GapKind = "investigate_gap"
)

// DailyHealthRecord is one host's tool-report snapshot for one day.
// DiscoveryLagDays is nil when the primary discovery tool has never seen
// the host within the export; ToolFound holds one flag per monitored
// security tool.
type DailyHealthRecord struct {
	Date             time.Time       `json:"date"`
	DiscoveryLagDays *int            `json:"discovery_lag_days"`
	ToolFound        map[string]bool `json:"tool_found"`
}

// SystemHealthHistory is the ordered-by-date daily history for one host,
// ascending, with host identity attached. Missing days mean "no data",
// not "unhealthy".
type SystemHealthHistory struct {
	HostID      string              `json:"host_id"`
	Shortname   string              `json:"shortname"`
	Fullname    string              `json:"fullname"`
	Environment string              `json:"environment"`
	Days        []DailyHealthRecord `json:"days"`
}

// Latest returns the most recent record, or false when the history is empty.
func (h SystemHealthHistory) Latest() (DailyHealthRecord, bool) {
	if len(h.Days) == 0 {
		return DailyHealthRecord{}, false
	}
	return h.Days[len(h.Days)-1], true
}

// ClassificationResult is the stability verdict for one host.
type ClassificationResult struct {
	HostID                string         `json:"host_id"`
	Classification        Classification `json:"classification"`
	StabilityScore        float64        `json:"stability_score"`
	HealthChangeCount     int            `json:"health_change_count"`
	ConsecutiveDaysStable int            `json:"consecutive_days_stable"`
	CurrentHealthLevel    HealthLevel    `json:"current_health_level"`
	IsActionable          bool           `json:"is_actionable"`
	ActionReason          string         `json:"action_reason,omitempty"`
}

// RecoveryEpisode is a contiguous period during which a host's health level
// improved from a worse prior state. EndDate is nil while ongoing.
type RecoveryEpisode struct {
	HostID         string         `json:"host_id"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	Status         RecoveryStatus `json:"status"`
	ToolsRecovered []string       `json:"tools_recovered,omitempty"`
}

// GapClassification is the tool-specific verdict for one host's missing
// report on the current day.
type GapClassification struct {
	HostID string  `json:"host_id"`
	ToolID string  `json:"tool_id"`
	Kind   GapKind `json:"kind"`
}

// ToolCombination groups currently-unhealthy hosts by their exact
// missing-tool set and quantifies remediation impact.
type ToolCombination struct {
	MissingTools            []string `json:"missing_tools"`
	SystemCount             int      `json:"system_count"`
	PercentageOfUnhealthy   float64  `json:"percentage_of_unhealthy"`
	PotentialHealthIncrease float64  `json:"potential_health_increase"`
	Hosts                   []string `json:"hosts"`
}
