package engine

import (
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coveragestack/coverage-engine/internal/models"
)

// ActionRuleEngine turns classification output into operator action items.
// A YAML rule pack can replace the built-in rules for deployments that
// want their own triage buckets.
type ActionRuleEngine struct {
	rules  []ActionRule
	logger *slog.Logger
}

// ActionRule maps a match condition onto an action-item bucket.
type ActionRule struct {
	ID       string          `yaml:"id"`
	Match    ActionRuleMatch `yaml:"match"`
	Category string          `yaml:"category"`
	Priority string          `yaml:"priority"`
}

// ActionRuleMatch defines optional attributes for rule matching. An empty
// attribute matches everything.
type ActionRuleMatch struct {
	Classification string `yaml:"classification"`
	RecoveryStatus string `yaml:"recoveryStatus"`
	MinHosts       int    `yaml:"minHosts"`
}

// ActionRuleFile is the YAML root structure.
type ActionRuleFile struct {
	Rules []ActionRule `yaml:"rules"`
}

// NewActionRuleEngine loads a rule pack from the provided path. An empty or
// missing path returns a nil engine; callers fall back to built-in rules.
func NewActionRuleEngine(path string, logger *slog.Logger) (*ActionRuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg ActionRuleFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionRuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Build evaluates every rule against the classification results and
// recovery episodes. Rules producing fewer hosts than MinHosts are dropped.
func (e *ActionRuleEngine) Build(classifications []models.SystemClassification, episodes []models.RecoveryEpisode) []models.ActionItem {
	if e == nil {
		return nil
	}

	items := make([]models.ActionItem, 0, len(e.rules))
	for _, rule := range e.rules {
		hosts := matchHosts(rule.Match, classifications, episodes)
		min := rule.Match.MinHosts
		if min < 1 {
			min = 1
		}
		if len(hosts) < min {
			continue
		}
		items = append(items, models.ActionItem{
			Category: rule.Category,
			Priority: rule.Priority,
			Hosts:    hosts,
		})
	}
	return items
}

func matchHosts(match ActionRuleMatch, classifications []models.SystemClassification, episodes []models.RecoveryEpisode) []string {
	seen := make(map[string]struct{})

	if match.Classification != "" {
		for _, c := range classifications {
			if strings.EqualFold(match.Classification, string(c.Classification)) {
				seen[c.HostID] = struct{}{}
			}
		}
	}
	if match.RecoveryStatus != "" {
		for _, ep := range episodes {
			if strings.EqualFold(match.RecoveryStatus, string(ep.Status)) {
				seen[ep.HostID] = struct{}{}
			}
		}
	}

	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// DefaultActionItems is the built-in triage ruleset used when no rule pack
// is configured: chronic gaps and stalled recoveries go to the top of an
// operator's queue, fresh degradations and the highest-impact tool
// combination follow.
func DefaultActionItems(classifications []models.SystemClassification, episodes []models.RecoveryEpisode, combos []models.ToolCombination) []models.ActionItem {
	var items []models.ActionItem

	if hosts := hostsByClass(classifications, models.ClassStableUnhealthy); len(hosts) > 0 {
		items = append(items, models.ActionItem{Category: "Chronic Issues", Priority: "high", Hosts: hosts})
	}
	if hosts := hostsByRecovery(episodes, models.RecoveryStuck); len(hosts) > 0 {
		items = append(items, models.ActionItem{Category: "Stuck Recoveries", Priority: "high", Hosts: hosts})
	}
	if hosts := hostsByClass(classifications, models.ClassDegrading); len(hosts) > 0 {
		items = append(items, models.ActionItem{Category: "New Degradations", Priority: "medium", Hosts: hosts})
	}
	if len(combos) > 0 && combos[0].SystemCount > 0 {
		items = append(items, models.ActionItem{Category: "Highest-Impact Fix", Priority: "medium", Hosts: combos[0].Hosts})
	}
	return items
}

func hostsByClass(classifications []models.SystemClassification, class models.Classification) []string {
	var hosts []string
	for _, c := range classifications {
		if c.Classification == class {
			hosts = append(hosts, c.HostID)
		}
	}
	sort.Strings(hosts)
	return hosts
}

func hostsByRecovery(episodes []models.RecoveryEpisode, status models.RecoveryStatus) []string {
	seen := make(map[string]struct{})
	for _, ep := range episodes {
		if ep.Status == status {
			seen[ep.HostID] = struct{}{}
		}
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
