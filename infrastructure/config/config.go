package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Upstream puzzle API
	UpstreamBaseURL string
	FetchAttempts   int
	FetchBackoff    time.Duration // multiplied by the attempt number

	// Live update channel
	LiveURL        string
	ReconnectDelay time.Duration

	// Similarity weights file (optional, hot-reloaded)
	WeightsPath string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:9000/api"),
		FetchAttempts:   getEnvInt("FETCH_ATTEMPTS", 3),
		FetchBackoff:    time.Duration(getEnvInt("FETCH_BACKOFF_MS", 500)) * time.Millisecond,

		LiveURL:        getEnv("LIVE_URL", "ws://localhost:9000/api/galaxy/live"),
		ReconnectDelay: time.Duration(getEnvInt("RECONNECT_DELAY_MS", 5000)) * time.Millisecond,

		WeightsPath: getEnv("WEIGHTS_PATH", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("FETCH_ATTEMPTS must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
