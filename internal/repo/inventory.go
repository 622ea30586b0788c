package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/coveragestack/coverage-engine/internal/cache"
	"github.com/coveragestack/coverage-engine/internal/metrics"
	"github.com/coveragestack/coverage-engine/internal/models"
	"github.com/coveragestack/coverage-engine/internal/utils"
)

// InventoryClient fetches per-host daily tooling histories from the
// inventory-core aggregation API. Responses are cached read-through per
// (window, environment, as-of day); the cache is a pure optimization and
// never changes observable results.
type InventoryClient struct {
	baseURL     string
	historyPath string
	httpClient  *http.Client
	cache       cache.Provider
	historyTTL  time.Duration
}

// NewInventoryClient constructs a client targeting the configured
// inventory-core instance.
func NewInventoryClient(baseURL, historyPath string, timeout time.Duration, cacheProvider cache.Provider, historyTTL time.Duration) *InventoryClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &InventoryClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		historyPath: historyPath,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       cacheProvider,
		historyTTL:  historyTTL,
	}
}

type historyDay struct {
	Date             string          `json:"date"`
	DiscoveryLagDays *int            `json:"discovery_lag_days"`
	Tools            map[string]bool `json:"tools"`
}

type historyHost struct {
	HostID      string       `json:"host_id"`
	Shortname   string       `json:"shortname"`
	Fullname    string       `json:"fullname"`
	Environment string       `json:"environment"`
	Days        []historyDay `json:"days"`
}

type historyResponse struct {
	Hosts []historyHost `json:"hosts"`
}

// FetchHistories returns the per-host daily histories for the requested
// window and optional environment filter. An environment matching no hosts
// yields an empty slice, not an error.
func (c *InventoryClient) FetchHistories(ctx context.Context, windowDays int, environment string) ([]models.SystemHealthHistory, error) {
	if c == nil {
		return nil, fmt.Errorf("inventory client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("inventory-core base URL not configured")
	}

	// Cache trouble must never fail an evaluation; any lookup problem
	// falls through to the upstream fetch.
	key := c.cacheKey(windowDays, environment)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var hosts []models.SystemHealthHistory
		if err := json.Unmarshal(cached, &hosts); err == nil {
			metrics.ObserveCacheHit()
			return hosts, nil
		}
		// A corrupt entry is dropped and refetched.
		_ = c.cache.Del(ctx, key)
	}
	metrics.ObserveCacheMiss()

	payload := map[string]interface{}{
		"window_days": windowDays,
	}
	if environment != "" {
		payload["environment"] = environment
	}

	var response historyResponse
	if err := c.postJSON(ctx, c.historyURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("inventory-core history request failed: %w", err)
	}

	hosts := make([]models.SystemHealthHistory, 0, len(response.Hosts))
	for _, host := range response.Hosts {
		hosts = append(hosts, sanitizeHost(host))
	}

	if data, err := json.Marshal(hosts); err == nil {
		_ = c.cache.Set(ctx, key, data, c.historyTTL)
	}

	return hosts, nil
}

// sanitizeHost converts a wire host into the domain history: days sorted
// ascending, unparseable dates dropped, negative discovery lag treated as
// no discovery data for that day.
func sanitizeHost(host historyHost) models.SystemHealthHistory {
	days := make([]models.DailyHealthRecord, 0, len(host.Days))
	for _, day := range host.Days {
		date, err := utils.ParseDay(day.Date)
		if err != nil {
			continue
		}
		lag := day.DiscoveryLagDays
		if lag != nil && *lag < 0 {
			lag = nil
		}
		tools := day.Tools
		if tools == nil {
			tools = map[string]bool{}
		}
		days = append(days, models.DailyHealthRecord{
			Date:             date,
			DiscoveryLagDays: lag,
			ToolFound:        tools,
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	return models.SystemHealthHistory{
		HostID:      host.HostID,
		Shortname:   host.Shortname,
		Fullname:    host.Fullname,
		Environment: host.Environment,
		Days:        days,
	}
}

func (c *InventoryClient) cacheKey(windowDays int, environment string) string {
	env := environment
	if env == "" {
		env = "all"
	}
	return fmt.Sprintf("coverage:history:%d:%s:%s", windowDays, env, time.Now().UTC().Format(utils.DayFormat))
}

func (c *InventoryClient) historyURL() string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(c.historyPath, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *InventoryClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inventory-core returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
