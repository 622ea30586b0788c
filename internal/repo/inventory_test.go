package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coveragestack/coverage-engine/internal/cache"
)

func stubInventory(t *testing.T, calls *int, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/coverage/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		*calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
}

const inventoryPayload = `{
	"hosts": [
		{
			"host_id": "host-a",
			"shortname": "web01",
			"fullname": "web01.corp.example.com",
			"environment": "prod",
			"days": [
				{"date": "2026-08-02", "discovery_lag_days": 1, "tools": {"edr": true}},
				{"date": "2026-08-01", "discovery_lag_days": -3, "tools": {"edr": true}},
				{"date": "not-a-date", "discovery_lag_days": 1, "tools": {}},
				{"date": "2026-08-03", "discovery_lag_days": null, "tools": null}
			]
		}
	]
}`

func TestFetchHistoriesSanitizesRecords(t *testing.T) {
	calls := 0
	server := stubInventory(t, &calls, inventoryPayload)
	defer server.Close()

	client := NewInventoryClient(server.URL, "/api/v1/coverage/history", time.Second, cache.NoopProvider{}, time.Minute)

	hosts, err := client.FetchHistories(context.Background(), 30, "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 1 {
		t.Fatalf("expected 1 host, got %d", len(hosts))
	}

	host := hosts[0]
	if host.HostID != "host-a" || host.Shortname != "web01" {
		t.Fatalf("unexpected host identity: %+v", host)
	}

	// The unparseable day is dropped; the rest come back date-ascending.
	if len(host.Days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(host.Days))
	}
	for i := 1; i < len(host.Days); i++ {
		if !host.Days[i-1].Date.Before(host.Days[i].Date) {
			t.Fatalf("days not ascending: %v then %v", host.Days[i-1].Date, host.Days[i].Date)
		}
	}

	// Negative lag is treated as missing discovery data.
	if host.Days[0].DiscoveryLagDays != nil {
		t.Fatalf("expected nil lag for negative input, got %d", *host.Days[0].DiscoveryLagDays)
	}
	if host.Days[1].DiscoveryLagDays == nil || *host.Days[1].DiscoveryLagDays != 1 {
		t.Fatalf("expected lag 1, got %+v", host.Days[1].DiscoveryLagDays)
	}

	// Null tools decode to an empty, non-nil map.
	if host.Days[2].ToolFound == nil {
		t.Fatal("expected non-nil tool map")
	}
}

func TestFetchHistoriesUsesCache(t *testing.T) {
	calls := 0
	server := stubInventory(t, &calls, inventoryPayload)
	defer server.Close()

	client := NewInventoryClient(server.URL, "/api/v1/coverage/history", time.Second, cache.NewMemoryProvider(), time.Minute)

	if _, err := client.FetchHistories(context.Background(), 30, "prod"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := client.FetchHistories(context.Background(), 30, "prod"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}

	// A different window is a different cache entry.
	if _, err := client.FetchHistories(context.Background(), 7, "prod"); err != nil {
		t.Fatalf("third fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a second upstream call, got %d", calls)
	}
}

func TestFetchHistoriesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewInventoryClient(server.URL, "/api/v1/coverage/history", time.Second, cache.NoopProvider{}, time.Minute)

	if _, err := client.FetchHistories(context.Background(), 30, ""); err == nil {
		t.Fatal("expected error for upstream 502")
	}
}

func TestFetchHistoriesRequiresBaseURL(t *testing.T) {
	client := NewInventoryClient("", "/api/v1/coverage/history", time.Second, cache.NoopProvider{}, time.Minute)

	if _, err := client.FetchHistories(context.Background(), 30, ""); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
