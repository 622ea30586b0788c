package engine

// Thresholds collects every tunable the analyzers consult. Zero values are
// replaced with defaults so a partially-populated config still yields a
// working engine.
type Thresholds struct {
	// DiscoveryTool is the inventory system treated as ground truth for
	// host liveness.
	DiscoveryTool string
	// SecurityTools are the monitored reporting agents whose presence
	// determines health level.
	SecurityTools []string
	// GapTool is the tool the gap analyzer specialises in.
	GapTool string

	ActivityThresholdDays int
	StableDaysThreshold   int
	LowChangeThreshold    int
	RecentLookbackDays    int
	TrailingWindowDays    int

	// StabilityDamping scales change frequency into the 0-100 stability
	// score: a host alternating every other day scores 0, one change in
	// 30 days scores ~93.
	StabilityDamping float64
}

// DefaultThresholds returns the reference tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DiscoveryTool:         "cmdb",
		SecurityTools:         []string{"edr", "logfwd", "vulnscan"},
		GapTool:               "vulnscan",
		ActivityThresholdDays: 15,
		StableDaysThreshold:   7,
		LowChangeThreshold:    1,
		RecentLookbackDays:    5,
		TrailingWindowDays:    5,
		StabilityDamping:      200,
	}
}

func (t Thresholds) normalised() Thresholds {
	def := DefaultThresholds()
	if t.DiscoveryTool == "" {
		t.DiscoveryTool = def.DiscoveryTool
	}
	if len(t.SecurityTools) == 0 {
		t.SecurityTools = def.SecurityTools
	}
	if t.GapTool == "" {
		t.GapTool = def.GapTool
	}
	if t.ActivityThresholdDays <= 0 {
		t.ActivityThresholdDays = def.ActivityThresholdDays
	}
	if t.StableDaysThreshold <= 0 {
		t.StableDaysThreshold = def.StableDaysThreshold
	}
	if t.LowChangeThreshold < 0 {
		t.LowChangeThreshold = def.LowChangeThreshold
	}
	if t.RecentLookbackDays <= 0 {
		t.RecentLookbackDays = def.RecentLookbackDays
	}
	if t.TrailingWindowDays <= 0 {
		t.TrailingWindowDays = def.TrailingWindowDays
	}
	if t.StabilityDamping <= 0 {
		t.StabilityDamping = def.StabilityDamping
	}
	return t
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
