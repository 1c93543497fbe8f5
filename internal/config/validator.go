package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.DataDir == "" {
		errors = append(errors, "data dir is required")
	}
	if c.SnapshotDBPath == "" {
		errors = append(errors, "snapshot database path is required")
	}
	if c.FIRDSQueryURL == "" {
		errors = append(errors, "FIRDS query URL is required")
	}
	if c.GleifURL == "" {
		errors = append(errors, "GLEIF URL is required")
	}
	if c.GleifBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("GLEIF batch size must be positive, got %d", c.GleifBatchSize))
	}
	if c.HTTPTimeout <= 0 {
		errors = append(errors, "HTTP timeout must be positive")
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errors = append(errors, fmt.Sprintf("unknown log level: %s", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}
