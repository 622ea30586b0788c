package engine

import (
	"github.com/coveragestack/coverage-engine/internal/models"
	"github.com/coveragestack/coverage-engine/internal/utils"
)

// fullyRecoveredAfterDays is how long a host must hold fully-healthy before
// an episode is considered settled rather than an in-flight recovery.
const fullyRecoveredAfterDays = 2

// RecoveryTracker detects recovery episodes within a host's history and
// classifies their speed and outcome.
type RecoveryTracker struct {
	cfg    Thresholds
	health *HealthClassifier
}

// NewRecoveryTracker constructs a tracker with the supplied tuning.
func NewRecoveryTracker(cfg Thresholds) *RecoveryTracker {
	cfg = cfg.normalised()
	return &RecoveryTracker{cfg: cfg, health: NewHealthClassifier(cfg)}
}

// FindEpisodes scans the active-day subsequence of a history for recovery
// episodes: a strict health-level improvement over the preceding active day
// opens an episode, which then either settles at fully-healthy, declines,
// or remains ongoing at the end of the window.
//
// Speed banding: up to 3 days since the episode started counts as a normal
// recovery; beyond 3 days it is stuck. An episode is fully recovered once
// the host has held fully-healthy for at least fullyRecoveredAfterDays
// after first reaching it.
func (t *RecoveryTracker) FindEpisodes(history models.SystemHealthHistory) []models.RecoveryEpisode {
	days := t.health.activeDays(history)
	if len(days) < 2 {
		return nil
	}

	latestDate := days[len(days)-1].rec.Date
	var episodes []models.RecoveryEpisode

	open := -1 // index of the active day that opened the current episode
	for i := 1; i < len(days); i++ {
		improved := days[i].level.Rank() > days[i-1].level.Rank()
		declined := days[i].level.Rank() < days[i-1].level.Rank()

		if open < 0 {
			if improved {
				open = i
			}
			continue
		}

		if declined {
			// The climb broke before settling; close the episode at its
			// last good day.
			end := days[i-1].rec.Date
			episodes = append(episodes, models.RecoveryEpisode{
				HostID:    history.HostID,
				StartDate: days[open].rec.Date,
				EndDate:   &end,
				Status:    speedBand(utils.DaysBetween(days[open].rec.Date, end)),
			})
			open = -1
		}
	}

	if open < 0 {
		return episodes
	}

	episode := models.RecoveryEpisode{
		HostID:    history.HostID,
		StartDate: days[open].rec.Date,
	}

	fullyAt := -1
	for i := open; i < len(days); i++ {
		if days[i].level == models.HealthFullyHealthy {
			fullyAt = i
			break
		}
	}

	if fullyAt >= 0 && utils.DaysBetween(days[fullyAt].rec.Date, latestDate) >= fullyRecoveredAfterDays {
		end := days[fullyAt].rec.Date
		episode.EndDate = &end
		episode.Status = models.RecoveryFull
		episode.ToolsRecovered = t.toolsRecovered(days[open-1].rec, days[fullyAt].rec)
	} else {
		episode.Status = speedBand(utils.DaysBetween(episode.StartDate, latestDate))
	}

	return append(episodes, episode)
}

// Summarize aggregates episodes across the evaluated population. The
// average recovery time is the mean start-to-end span of fully recovered
// episodes, 0 when none exist.
func (t *RecoveryTracker) Summarize(episodes []models.RecoveryEpisode) models.RecoverySummary {
	var summary models.RecoverySummary
	totalDays := 0
	for _, ep := range episodes {
		switch ep.Status {
		case models.RecoveryNormal:
			summary.NormalRecovery++
		case models.RecoveryStuck:
			summary.StuckRecovery++
		case models.RecoveryFull:
			summary.FullyRecovered++
			if ep.EndDate != nil {
				totalDays += utils.DaysBetween(ep.StartDate, *ep.EndDate)
			}
		}
	}
	summary.AverageRecoveryDays = safeDivide(float64(totalDays), float64(summary.FullyRecovered))
	return summary
}

// speedBand maps days-since-start onto the recovery speed label. The 2-3
// day band counts as normal (inclusive-of-3).
func speedBand(days int) models.RecoveryStatus {
	if days > 3 {
		return models.RecoveryStuck
	}
	return models.RecoveryNormal
}

func (t *RecoveryTracker) toolsRecovered(before, after models.DailyHealthRecord) []string {
	recovered := make([]string, 0, len(t.cfg.SecurityTools))
	for _, tool := range t.cfg.SecurityTools {
		if !before.ToolFound[tool] && after.ToolFound[tool] {
			recovered = append(recovered, tool)
		}
	}
	return recovered
}
