package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type dayRecord struct {
	Date             string          `json:"date"`
	DiscoveryLagDays *int            `json:"discovery_lag_days"`
	Tools            map[string]bool `json:"tools"`
}

type hostRecord struct {
	HostID      string      `json:"host_id"`
	Shortname   string      `json:"shortname"`
	Fullname    string      `json:"fullname"`
	Environment string      `json:"environment"`
	Days        []dayRecord `json:"days"`
}

type historyRequest struct {
	WindowDays  int    `json:"window_days"`
	Environment string `json:"environment"`
}

// profile generates the synthetic per-day records for one fleet host.
// dayIdx counts from the oldest day (0) to the latest.
type profile struct {
	hostID      string
	shortname   string
	environment string
	lag         func(dayIdx, total int) *int
	tools       func(dayIdx, total int) map[string]bool
}

func intPtr(n int) *int { return &n }

func freshLag(int, int) *int { return intPtr(1) }

func allTools(edr, logfwd, vulnscan bool) map[string]bool {
	return map[string]bool{"edr": edr, "logfwd": logfwd, "vulnscan": vulnscan}
}

// The fleet covers one host per behavioural pattern so a local engine run
// exercises every classification and the gap and combination reports.
var fleet = []profile{
	{
		hostID: "host-stable-1", shortname: "web01", environment: "prod",
		lag:   freshLag,
		tools: func(int, int) map[string]bool { return allTools(true, true, true) },
	},
	{
		hostID: "host-chronic-1", shortname: "db01", environment: "prod",
		lag:   freshLag,
		tools: func(int, int) map[string]bool { return allTools(true, false, false) },
	},
	{
		hostID: "host-flapping-1", shortname: "app01", environment: "prod",
		lag: freshLag,
		tools: func(dayIdx, _ int) map[string]bool {
			return allTools(true, true, dayIdx%2 == 0)
		},
	},
	{
		hostID: "host-degrading-1", shortname: "app02", environment: "prod",
		lag: freshLag,
		tools: func(dayIdx, total int) map[string]bool {
			// Loses its agents over the final three days.
			if dayIdx >= total-3 {
				return allTools(false, false, true)
			}
			return allTools(true, true, true)
		},
	},
	{
		hostID: "host-recovering-1", shortname: "app03", environment: "prod",
		lag: freshLag,
		tools: func(dayIdx, total int) map[string]bool {
			// Was unhealthy, regains coverage over the final four days.
			if dayIdx >= total-4 {
				return allTools(true, true, dayIdx >= total-2)
			}
			return allTools(false, false, false)
		},
	},
	{
		hostID: "host-inactive-1", shortname: "old01", environment: "prod",
		lag:   func(int, int) *int { return intPtr(45) },
		tools: func(int, int) map[string]bool { return allTools(false, false, false) },
	},
	{
		hostID: "host-staging-1", shortname: "stg01", environment: "staging",
		lag:   freshLag,
		tools: func(int, int) map[string]bool { return allTools(true, true, false) },
	},
}

func buildHistory(req historyRequest) []hostRecord {
	windowDays := req.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(windowDays - 1))

	hosts := make([]hostRecord, 0, len(fleet))
	for _, p := range fleet {
		if req.Environment != "" && req.Environment != p.environment {
			continue
		}
		days := make([]dayRecord, 0, windowDays)
		for i := 0; i < windowDays; i++ {
			date := start.AddDate(0, 0, i)
			days = append(days, dayRecord{
				Date:             date.Format("2006-01-02"),
				DiscoveryLagDays: p.lag(i, windowDays),
				Tools:            p.tools(i, windowDays),
			})
		}
		hosts = append(hosts, hostRecord{
			HostID:      p.hostID,
			Shortname:   p.shortname,
			Fullname:    p.shortname + ".corp.example.com",
			Environment: p.environment,
			Days:        days,
		})
	}
	return hosts
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/coverage/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req historyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"hosts": buildHistory(req)})
	})

	logger := log.New(log.Writer(), "inventory-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
