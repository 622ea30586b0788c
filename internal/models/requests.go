package models

// AnalyticsRequest carries the evaluation window and optional environment
// filter supplied by the boundary layer.
type AnalyticsRequest struct {
	WindowDays  int    `json:"window_days"`
	Environment string `json:"environment,omitempty"`
}

// SystemClassification is the per-host row returned to the boundary layer:
// host identity plus the stability verdict and current tool flags.
type SystemClassification struct {
	ClassificationResult

	Shortname    string          `json:"shortname"`
	Fullname     string          `json:"fullname"`
	Environment  string          `json:"environment"`
	CurrentTools map[string]bool `json:"current_tools"`
}

// GapSummary aggregates tool-specific gap classifications for the target tool.
type GapSummary struct {
	ToolID             string  `json:"tool_id"`
	ExpectedGaps       int     `json:"expected_gaps"`
	InvestigateGaps    int     `json:"investigate_gaps"`
	PercentageExpected float64 `json:"percentage_expected"`
}

// RecoverySummary aggregates recovery episodes across the evaluated fleet.
type RecoverySummary struct {
	NormalRecovery      int     `json:"normal_recovery"`
	StuckRecovery       int     `json:"stuck_recovery"`
	FullyRecovered      int     `json:"fully_recovered"`
	AverageRecoveryDays float64 `json:"average_recovery_days"`
}

// CombinationInsights summarises the missing-tool landscape across
// currently-unhealthy hosts.
type CombinationInsights struct {
	MissingOneTool     int    `json:"missing_one_tool"`
	MissingMultiple    int    `json:"missing_multiple"`
	MissingAllTools    int    `json:"missing_all_tools"`
	MostMissedTool     string `json:"most_missed_tool,omitempty"`
	MostMissedToolHits int    `json:"most_missed_tool_hosts"`
}

// ActionItem is an operator-facing remediation bucket derived from the
// classification results.
type ActionItem struct {
	Category string   `json:"category"`
	Priority string   `json:"priority"`
	Hosts    []string `json:"hosts"`
}

// WindowMetrics is the health-level distribution of the trailing-window
// subset on the most recent day.
type WindowMetrics struct {
	QualifyingHosts  int     `json:"qualifying_hosts"`
	FullyHealthy     int     `json:"fully_healthy"`
	PartiallyHealthy int     `json:"partially_healthy"`
	Unhealthy        int     `json:"unhealthy"`
	HealthRate       float64 `json:"health_rate"`
}

// ToolDelta counts per-tool reporting transitions between window start
// and window end for the trailing-window subset.
type ToolDelta struct {
	ToolID string `json:"tool_id"`
	Lost   int    `json:"lost"`
	Gained int    `json:"gained"`
	Stable int    `json:"stable"`
}

// HostImprovement is the fractional health-score delta for one host
// across the trailing window.
type HostImprovement struct {
	HostID      string  `json:"host_id"`
	ScoreChange float64 `json:"score_change"`
}

// ImprovementSummary classifies trailing-window hosts by score movement.
type ImprovementSummary struct {
	Improved           int               `json:"improved"`
	Degraded           int               `json:"degraded"`
	Stable             int               `json:"stable"`
	AverageImprovement float64           `json:"average_improvement"`
	Hosts              []HostImprovement `json:"hosts,omitempty"`
}

// TrailingWindowReport restricts analysis to hosts continuously active
// over the trailing window.
type TrailingWindowReport struct {
	WindowDays  int                `json:"window_days"`
	Metrics     WindowMetrics      `json:"metrics"`
	ToolDeltas  []ToolDelta        `json:"tool_deltas"`
	Improvement ImprovementSummary `json:"improvement"`
}

// AnalyticsSummary is the composed overview consumed by the boundary layer.
type AnalyticsSummary struct {
	WindowDays          int                    `json:"window_days"`
	Environment         string                 `json:"environment,omitempty"`
	EvaluatedHosts      int                    `json:"evaluated_hosts"`
	ExcludedHosts       int                    `json:"excluded_hosts"`
	Counts              map[Classification]int `json:"counts"`
	AverageStability    float64                `json:"average_stability"`
	HealthRate          float64                `json:"health_rate"`
	Gaps                GapSummary             `json:"gaps"`
	Recovery            RecoverySummary        `json:"recovery"`
	TopCombinations     []ToolCombination      `json:"top_combinations"`
	AllCombinations     []ToolCombination      `json:"all_combinations"`
	CombinationInsights CombinationInsights    `json:"combination_insights"`
	TrailingWindow      TrailingWindowReport   `json:"trailing_window"`
	ActionItems         []ActionItem           `json:"action_items"`
}
