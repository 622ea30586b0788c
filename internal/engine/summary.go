package engine

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/coveragestack/coverage-engine/internal/models"
)

// maxConcurrentHosts bounds the per-host classification fan-out.
const maxConcurrentHosts = 8

// topCombinationCount is how many combinations the summary surfaces
// alongside the full list kept for export.
const topCombinationCount = 5

// Aggregator composes the per-host analyzers into the overview consumed by
// the boundary layer. It is stateless: every evaluation takes fresh history
// data and returns new values.
type Aggregator struct {
	logger    *slog.Logger
	cfg       Thresholds
	health    *HealthClassifier
	stability *StabilityAnalyzer
	recovery  *RecoveryTracker
	gaps      *GapAnalyzer
	combos    *CombinationAnalyzer
	window    *TrailingWindowAnalyzer
	rules     *ActionRuleEngine
}

// NewAggregator constructs the full analyzer set. rules may be nil; the
// built-in action-item rules apply then.
func NewAggregator(logger *slog.Logger, cfg Thresholds, rules *ActionRuleEngine) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.normalised()
	return &Aggregator{
		logger:    logger,
		cfg:       cfg,
		health:    NewHealthClassifier(cfg),
		stability: NewStabilityAnalyzer(cfg),
		recovery:  NewRecoveryTracker(cfg),
		gaps:      NewGapAnalyzer(cfg),
		combos:    NewCombinationAnalyzer(cfg),
		window:    NewTrailingWindowAnalyzer(cfg),
		rules:     rules,
	}
}

// hostOutcome carries one host's per-host analyzer results into the
// reduction pass.
type hostOutcome struct {
	classification models.SystemClassification
	episodes       []models.RecoveryEpisode
	classified     bool
}

// Evaluate runs the per-host analyzers in parallel, then reduces the
// results into the summary. Hosts are independent, so the fan-out is
// bounded but unordered; output ordering is restored in the reduction.
//
// Cancellation is all-or-nothing: when ctx is cancelled mid-batch the
// error is returned and no partial results escape.
func (a *Aggregator) Evaluate(ctx context.Context, req models.AnalyticsRequest, hosts []models.SystemHealthHistory) (models.AnalyticsSummary, []models.SystemClassification, error) {
	outcomes := make([]hostOutcome, len(hosts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHosts)
	for i := range hosts {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.classifyHost(hosts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.AnalyticsSummary{}, nil, err
	}

	summary := models.AnalyticsSummary{
		WindowDays:  req.WindowDays,
		Environment: req.Environment,
		Counts:      make(map[models.Classification]int),
	}

	classifications := make([]models.SystemClassification, 0, len(hosts))
	var episodes []models.RecoveryEpisode
	totalStability := 0.0
	for _, outcome := range outcomes {
		if !outcome.classified {
			summary.ExcludedHosts++
			continue
		}
		classifications = append(classifications, outcome.classification)
		episodes = append(episodes, outcome.episodes...)
		summary.Counts[outcome.classification.Classification]++
		totalStability += outcome.classification.StabilityScore
	}
	sort.Slice(classifications, func(i, j int) bool {
		return classifications[i].HostID < classifications[j].HostID
	})

	summary.EvaluatedHosts = len(classifications)
	summary.AverageStability = safeDivide(totalStability, float64(len(classifications)))
	summary.HealthRate = a.health.HealthRate(latestRecords(hosts))
	summary.Recovery = a.recovery.Summarize(episodes)
	summary.Gaps = a.gaps.Summarize(a.collectGaps(hosts))

	combos, insights := a.combos.Analyze(hosts)
	summary.AllCombinations = combos
	summary.TopCombinations = combos
	if len(combos) > topCombinationCount {
		summary.TopCombinations = combos[:topCombinationCount]
	}
	summary.CombinationInsights = insights

	summary.TrailingWindow = a.window.Analyze(hosts)

	if a.rules != nil {
		summary.ActionItems = a.rules.Build(classifications, episodes)
	} else {
		summary.ActionItems = DefaultActionItems(classifications, episodes, combos)
	}

	return summary, classifications, nil
}

// classifyHost runs the per-host analyzers. Hosts without usable data are
// reported unclassified and logged, never failed.
func (a *Aggregator) classifyHost(host models.SystemHealthHistory) hostOutcome {
	result, ok := a.stability.Analyze(host)
	if !ok {
		a.logger.Debug("host excluded from classification",
			slog.String("host_id", host.HostID),
			slog.Int("records", len(host.Days)))
		return hostOutcome{}
	}

	// Flapping hosts would log an episode per cycle; their churn is
	// expected and stays out of the recovery summary.
	var episodes []models.RecoveryEpisode
	if result.Classification != models.ClassFlapping {
		episodes = a.recovery.FindEpisodes(host)
	}

	// A recovery is only actionable once it stalls.
	if result.Classification == models.ClassRecovering {
		for _, ep := range episodes {
			if ep.Status == models.RecoveryStuck {
				result.IsActionable = true
				result.ActionReason = "recovery stalled"
				break
			}
		}
	}

	classification := models.SystemClassification{
		ClassificationResult: result,
		Shortname:            host.Shortname,
		Fullname:             host.Fullname,
		Environment:          host.Environment,
	}
	if rec, ok := host.Latest(); ok {
		classification.CurrentTools = a.health.CurrentTools(rec)
	}

	return hostOutcome{
		classification: classification,
		episodes:       episodes,
		classified:     true,
	}
}

func (a *Aggregator) collectGaps(hosts []models.SystemHealthHistory) []models.GapClassification {
	var gaps []models.GapClassification
	for _, host := range hosts {
		rec, ok := host.Latest()
		if !ok {
			continue
		}
		if gap, found := a.gaps.AnalyzeGap(host.HostID, rec); found {
			gaps = append(gaps, gap)
		}
	}
	return gaps
}

func latestRecords(hosts []models.SystemHealthHistory) []models.DailyHealthRecord {
	records := make([]models.DailyHealthRecord, 0, len(hosts))
	for _, host := range hosts {
		if rec, ok := host.Latest(); ok {
			records = append(records, rec)
		}
	}
	return records
}
