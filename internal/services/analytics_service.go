package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/coveragestack/coverage-engine/internal/engine"
	"github.com/coveragestack/coverage-engine/internal/metrics"
	"github.com/coveragestack/coverage-engine/internal/models"
	"github.com/coveragestack/coverage-engine/internal/utils"
)

// Sentinel causes that the HTTP layer maps onto status codes.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
)

// HistoryProvider supplies per-host daily tooling histories for a window.
type HistoryProvider interface {
	FetchHistories(ctx context.Context, windowDays int, environment string) ([]models.SystemHealthHistory, error)
}

// AnalyticsService is the evaluation facade behind the HTTP handlers: it
// validates requests, pulls histories from inventory-core and runs the
// aggregation engine.
type AnalyticsService struct {
	logger     *slog.Logger
	histories  HistoryProvider
	aggregator *engine.Aggregator
	latencies  *utils.LatencyTracker
}

// NewAnalyticsService constructs the service facade.
func NewAnalyticsService(logger *slog.Logger, histories HistoryProvider, aggregator *engine.Aggregator) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		logger:     logger,
		histories:  histories,
		aggregator: aggregator,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// Evaluate runs a full fleet evaluation for the requested window.
func (s *AnalyticsService) Evaluate(ctx context.Context, req models.AnalyticsRequest) (models.AnalyticsSummary, []models.SystemClassification, error) {
	if err := validateRequest(req); err != nil {
		return models.AnalyticsSummary{}, nil, err
	}
	if s.histories == nil || s.aggregator == nil {
		return models.AnalyticsSummary{}, nil, &utils.AppError{Op: "analytics.evaluate", Msg: "service not configured"}
	}

	hosts, err := s.histories.FetchHistories(ctx, req.WindowDays, req.Environment)
	if err != nil {
		return models.AnalyticsSummary{}, nil, &utils.AppError{Op: "analytics.fetch_histories", Msg: "fetching host histories", Err: err}
	}

	start := time.Now()
	summary, classifications, err := s.aggregator.Evaluate(ctx, req, hosts)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveEvaluation(duration, metrics.OutcomeError)
		s.logger.Error("fleet evaluation failed", slog.Any("error", err))
		return models.AnalyticsSummary{}, nil, &utils.AppError{Op: "analytics.evaluate", Msg: "fleet evaluation", Err: err}
	}

	s.latencies.Observe(duration)
	metrics.ObserveEvaluation(duration, metrics.OutcomeSuccess)
	metrics.SetHostsClassified(summary.EvaluatedHosts)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("evaluation latency",
			slog.Int("samples", count),
			slog.Duration("p95", p95),
		)
	}

	return summary, classifications, nil
}

// Classifications returns the per-host verdicts, optionally filtered to one
// classification label.
func (s *AnalyticsService) Classifications(ctx context.Context, req models.AnalyticsRequest, filter models.Classification) ([]models.SystemClassification, error) {
	_, classifications, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return classifications, nil
	}
	filtered := make([]models.SystemClassification, 0, len(classifications))
	for _, c := range classifications {
		if c.Classification == filter {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// ExportCombination renders the hosts missing exactly the given tool
// combination as CSV. The key uses the canonical sorted "tool+tool" form.
func (s *AnalyticsService) ExportCombination(ctx context.Context, req models.AnalyticsRequest, key string) ([]byte, error) {
	summary, classifications, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	canonical := canonicalKey(key)
	var combo *models.ToolCombination
	for i := range summary.AllCombinations {
		if engine.CombinationKey(summary.AllCombinations[i].MissingTools) == canonical {
			combo = &summary.AllCombinations[i]
			break
		}
	}
	if combo == nil {
		return nil, &utils.AppError{Op: "analytics.export", Msg: fmt.Sprintf("unknown combination %q", key), Err: ErrNotFound}
	}

	byHost := make(map[string]models.SystemClassification, len(classifications))
	for _, c := range classifications {
		byHost[c.HostID] = c
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"shortname", "fullname", "environment", "missing_tools"})
	for _, hostID := range combo.Hosts {
		c, ok := byHost[hostID]
		if !ok {
			continue
		}
		_ = w.Write([]string{c.Shortname, c.Fullname, c.Environment, strings.Join(combo.MissingTools, "+")})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &utils.AppError{Op: "analytics.export", Msg: "writing csv", Err: err}
	}
	return buf.Bytes(), nil
}

func validateRequest(req models.AnalyticsRequest) error {
	if req.WindowDays <= 0 {
		return &utils.AppError{Op: "analytics.validate", Msg: "window_days must be positive", Err: ErrInvalidRequest}
	}
	return nil
}

func canonicalKey(key string) string {
	parts := strings.Split(key, "+")
	cleaned := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, "+")
}
