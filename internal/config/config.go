// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for the runs database (always absolute)
	SourcesDir         string // Directory containing delimited rate files (one per tenor)
	LogLevel           string
	Port               int
	DevMode            bool
	Horizons           []int             // Analysis horizons in calendar years, ascending
	TradingDaysPerYear int               // Trading-day count used to convert years to rows
	Labels             map[string]string // Source id -> display label (presentation only)
	SmoothingPeriod    int               // SMA period for projection overlays (0 = disabled)
	RefreshSchedule    string            // Cron expression for the scheduled re-analysis
	S3                 *S3Config         // Non-nil when sources are fetched from a bucket
}

// S3Config holds S3-compatible bucket configuration for remote source files.
// Endpoint is optional; when set it targets R2-style S3-compatible storage.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CURVESCOPE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	horizons, err := parseHorizons(getEnv("CURVESCOPE_HORIZONS", "1,5,10,20,30"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:            absDataDir,
		SourcesDir:         getEnv("CURVESCOPE_SOURCES_DIR", "./sources"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnvAsInt("CURVESCOPE_PORT", 8010),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		Horizons:           horizons,
		TradingDaysPerYear: getEnvAsInt("CURVESCOPE_TRADING_DAYS", 252),
		Labels:             parseLabels(getEnv("CURVESCOPE_LABELS", "")),
		SmoothingPeriod:    getEnvAsInt("CURVESCOPE_SMOOTHING_PERIOD", 0),
		RefreshSchedule:    getEnv("CURVESCOPE_REFRESH_SCHEDULE", "@daily"),
		S3:                 loadS3Config(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if len(c.Horizons) == 0 {
		return fmt.Errorf("at least one analysis horizon is required")
	}
	if c.TradingDaysPerYear <= 0 {
		return fmt.Errorf("trading days per year must be positive, got %d", c.TradingDaysPerYear)
	}
	if c.SmoothingPeriod < 0 {
		return fmt.Errorf("smoothing period must not be negative, got %d", c.SmoothingPeriod)
	}
	return nil
}

// parseHorizons parses a comma-separated list of horizon years.
// Duplicates are collapsed and the result is sorted ascending.
func parseHorizons(raw string) ([]int, error) {
	seen := make(map[int]bool)
	var horizons []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		years, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid horizon %q: %w", part, err)
		}
		if years <= 0 {
			return nil, fmt.Errorf("horizon years must be positive, got %d", years)
		}
		if !seen[years] {
			seen[years] = true
			horizons = append(horizons, years)
		}
	}
	sort.Ints(horizons)
	return horizons, nil
}

// parseLabels parses "id=label,id=label" pairs. Unlabeled sources fall back
// to their id at presentation time, so an empty mapping is fine.
func parseLabels(raw string) map[string]string {
	labels := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		id := strings.TrimSpace(parts[0])
		label := strings.TrimSpace(parts[1])
		if id != "" && label != "" {
			labels[id] = label
		}
	}
	return labels
}

// loadS3Config returns S3 configuration when a bucket is set, nil otherwise
func loadS3Config() *S3Config {
	bucket := getEnv("CURVESCOPE_S3_BUCKET", "")
	if bucket == "" {
		return nil
	}

	return &S3Config{
		Endpoint:        getEnv("CURVESCOPE_S3_ENDPOINT", ""),
		Region:          getEnv("CURVESCOPE_S3_REGION", "auto"),
		Bucket:          bucket,
		Prefix:          getEnv("CURVESCOPE_S3_PREFIX", ""),
		AccessKeyID:     getEnv("CURVESCOPE_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("CURVESCOPE_S3_SECRET_ACCESS_KEY", ""),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
