package config

import (
	"os"
	"strconv"

	"ecosense/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Upload   UploadConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// UploadConfig holds ingestion defaults
type UploadConfig struct {
	// MaxUploadBytes caps accepted file size (whole file is parsed in memory)
	MaxUploadBytes int64
	// SkipInvalidDefault is the default skip-invalid-rows policy
	SkipInvalidDefault bool
	// StrictRange rejects out-of-range values instead of flagging questionable
	StrictRange bool
	// CreateLocationsDefault is the default create-missing-locations policy
	CreateLocationsDefault bool
	// InsertBatchSize bounds measurement insert batches per transaction round
	InsertBatchSize int
}

// AnalysisConfig holds aggregation settings
type AnalysisConfig struct {
	// CorrelationWeak and CorrelationStrong are the |r| strength cutoffs
	CorrelationWeak   float64
	CorrelationStrong float64
	// MaxConcurrentPairs bounds the correlation fan-out
	MaxConcurrentPairs int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Upload: UploadConfig{
			MaxUploadBytes:         getEnvInt64OrDefault("MAX_UPLOAD_BYTES", 10*1024*1024),
			SkipInvalidDefault:     getEnvBoolOrDefault("SKIP_INVALID_DEFAULT", true),
			StrictRange:            getEnvBoolOrDefault("STRICT_RANGE", false),
			CreateLocationsDefault: getEnvBoolOrDefault("CREATE_LOCATIONS_DEFAULT", true),
			InsertBatchSize:        getEnvIntOrDefault("INSERT_BATCH_SIZE", 500),
		},
		Analysis: AnalysisConfig{
			CorrelationWeak:    getEnvFloatOrDefault("CORRELATION_WEAK", 0.3),
			CorrelationStrong:  getEnvFloatOrDefault("CORRELATION_STRONG", 0.7),
			MaxConcurrentPairs: getEnvIntOrDefault("MAX_CONCURRENT_PAIRS", 8),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if cfg.Upload.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.Upload.InsertBatchSize <= 0 {
		return errors.ConfigInvalid("INSERT_BATCH_SIZE must be positive")
	}
	if cfg.Analysis.CorrelationWeak < 0 || cfg.Analysis.CorrelationStrong > 1 ||
		cfg.Analysis.CorrelationWeak >= cfg.Analysis.CorrelationStrong {
		return errors.ConfigInvalid("correlation thresholds must satisfy 0 <= weak < strong <= 1")
	}
	if cfg.Analysis.MaxConcurrentPairs <= 0 {
		return errors.ConfigInvalid("MAX_CONCURRENT_PAIRS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
