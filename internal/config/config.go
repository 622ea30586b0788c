package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the coverage engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Clients   ClientsConfig   `yaml:"clients"`
	Logging   LoggingConfig   `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Rules     RulesConfig     `yaml:"rules"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups upstream data-source integrations.
type ClientsConfig struct {
	Inventory InventoryClientConfig `yaml:"inventory"`
}

// InventoryClientConfig configures access to the inventory-core history API.
type InventoryClientConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	HistoryPath string        `yaml:"historyPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Redis-backed caching of history fetches.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	HistoryTTL time.Duration `yaml:"historyTTL"`
}

// AnalyticsConfig tunes the classification engine thresholds.
type AnalyticsConfig struct {
	DiscoveryTool         string   `yaml:"discoveryTool"`
	SecurityTools         []string `yaml:"securityTools"`
	GapTool               string   `yaml:"gapTool"`
	ActivityThresholdDays int      `yaml:"activityThresholdDays"`
	StableDaysThreshold   int      `yaml:"stableDaysThreshold"`
	LowChangeThreshold    int      `yaml:"lowChangeThreshold"`
	RecentLookbackDays    int      `yaml:"recentLookbackDays"`
	TrailingWindowDays    int      `yaml:"trailingWindowDays"`
	StabilityDamping      float64  `yaml:"stabilityDamping"`
}

// RulesConfig controls action-rule pack loading.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("COVERAGE_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			Inventory: InventoryClientConfig{
				HistoryPath: "/api/v1/coverage/history",
				Timeout:     5 * time.Second,
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:    false,
			HistoryTTL: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			DiscoveryTool:         "cmdb",
			SecurityTools:         []string{"edr", "logfwd", "vulnscan"},
			GapTool:               "vulnscan",
			ActivityThresholdDays: 15,
			StableDaysThreshold:   7,
			LowChangeThreshold:    1,
			RecentLookbackDays:    5,
			TrailingWindowDays:    5,
			StabilityDamping:      200,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COVERAGE_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("COVERAGE_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("COVERAGE_INVENTORY_BASE_URL"); v != "" {
		cfg.Clients.Inventory.BaseURL = v
	}
	if v := os.Getenv("COVERAGE_INVENTORY_HISTORY_PATH"); v != "" {
		cfg.Clients.Inventory.HistoryPath = v
	}
	if v := os.Getenv("COVERAGE_INVENTORY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.Inventory.Timeout = d
		}
	}
	if v := os.Getenv("COVERAGE_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COVERAGE_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("COVERAGE_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("COVERAGE_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("COVERAGE_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("COVERAGE_ENGINE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("COVERAGE_ENGINE_CACHE_HISTORY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.HistoryTTL = d
		}
	}
	if v := os.Getenv("COVERAGE_ENGINE_GAP_TOOL"); v != "" {
		cfg.Analytics.GapTool = v
	}
	if v := os.Getenv("COVERAGE_ENGINE_SECURITY_TOOLS"); v != "" {
		tools := strings.Split(v, ",")
		for i := range tools {
			tools[i] = strings.TrimSpace(tools[i])
		}
		cfg.Analytics.SecurityTools = tools
	}
	if v := os.Getenv("COVERAGE_ENGINE_ACTIVITY_THRESHOLD_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.ActivityThresholdDays = n
		}
	}
	if v := os.Getenv("COVERAGE_ENGINE_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
}
