// Package config loads the pipeline and server configuration from an
// optional JSON file with environment-variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config configures the data pipeline and the dashboard server.
type Config struct {
	// Server
	Port     string `json:"port"`
	LogLevel string `json:"log_level"`

	// Data locations
	DataDir        string `json:"data_dir"`
	SnapshotDBPath string `json:"snapshot_db_path"`

	// Upstream services
	RegisterPageURL string `json:"register_page_url"`
	FIRDSQueryURL   string `json:"firds_query_url"`
	GleifURL        string `json:"gleif_url"`

	GleifBatchSize int           `json:"gleif_batch_size"`
	HTTPTimeout    time.Duration `json:"-"`

	// HTTPTimeoutRaw carries the timeout as a duration string in JSON.
	HTTPTimeoutRaw string `json:"http_timeout"`
}

// Load reads the JSON config at path (skipped when path is empty or the file
// does not exist), applies environment overrides on top and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			if cfg.HTTPTimeoutRaw != "" {
				d, err := time.ParseDuration(cfg.HTTPTimeoutRaw)
				if err != nil {
					return nil, fmt.Errorf("invalid http_timeout %q: %w", cfg.HTTPTimeoutRaw, err)
				}
				cfg.HTTPTimeout = d
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:            "8050",
		LogLevel:        "INFO",
		DataDir:         "data",
		SnapshotDBPath:  "data/snapshots.db",
		RegisterPageURL: "https://www.esma.europa.eu/policy-activities/securitisation/sts-securitisations",
		FIRDSQueryURL:   "https://registers.esma.europa.eu/solr/esma_registers_firds_files/select",
		GleifURL:        "https://leilookup.gleif.org/api/v2/leirecords?lei=",
		GleifBatchSize:  200,
		HTTPTimeout:     5 * time.Minute,
	}
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("SERVER_PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.SnapshotDBPath = getEnv("SNAPSHOT_DB_PATH", cfg.SnapshotDBPath)
	cfg.RegisterPageURL = getEnv("REGISTER_PAGE_URL", cfg.RegisterPageURL)
	cfg.FIRDSQueryURL = getEnv("FIRDS_QUERY_URL", cfg.FIRDSQueryURL)
	cfg.GleifURL = getEnv("GLEIF_URL", cfg.GleifURL)
	cfg.GleifBatchSize = getEnvInt("GLEIF_BATCH_SIZE", cfg.GleifBatchSize)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
