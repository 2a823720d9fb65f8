// Package config loads the process configuration: environment variables
// with defaults, an optional .env file for local development, and an
// optional hot-reloaded tuning file for runtime render settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// QueryBackendConfig points at the graph-database query service.
type QueryBackendConfig struct {
	// BaseURL is the query service root, e.g. http://localhost:9400.
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Circuit breaker tuning.
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold float64
	BreakerMinRequests      uint32
}

// PreferenceConfig controls label-display preference persistence.
type PreferenceConfig struct {
	// SQLitePath is the local preference database. Empty disables local
	// persistence.
	SQLitePath string
	// RemoteURL, when set, mirrors saved preferences to the backend.
	RemoteURL string
}

// SessionConfig tunes per-session behavior.
type SessionConfig struct {
	QueryTimeout   time.Duration
	ExpansionRate  float64
	ExpansionBurst int
	IdleTTL        time.Duration
	SweepInterval  time.Duration
}

// Config holds all application configuration.
type Config struct {
	ServerAddress string
	Environment   string
	LogLevel      string

	// TuningPath is the optional hot-reloaded tuning file (YAML).
	TuningPath string

	EnableMetrics bool
	EnableCORS    bool

	QueryBackend QueryBackendConfig
	Preferences  PreferenceConfig
	Session      SessionConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		TuningPath:    getEnv("TUNING_PATH", ""),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		QueryBackend: QueryBackendConfig{
			BaseURL: getEnv("QUERY_BACKEND_URL", "http://localhost:9400"),
			APIKey:  getEnv("QUERY_BACKEND_API_KEY", ""),
			Timeout: getEnvDuration("QUERY_BACKEND_TIMEOUT", 60*time.Second),

			BreakerMaxRequests:      uint32(getEnvInt("QUERY_BREAKER_MAX_REQUESTS", 5)),
			BreakerInterval:         getEnvDuration("QUERY_BREAKER_INTERVAL", 30*time.Second),
			BreakerTimeout:          getEnvDuration("QUERY_BREAKER_TIMEOUT", 60*time.Second),
			BreakerFailureThreshold: getEnvFloat("QUERY_BREAKER_FAILURE_THRESHOLD", 0.8),
			BreakerMinRequests:      uint32(getEnvInt("QUERY_BREAKER_MIN_REQUESTS", 5)),
		},

		Preferences: PreferenceConfig{
			SQLitePath: getEnv("PREFERENCES_SQLITE_PATH", "graphlens-preferences.db"),
			RemoteURL:  getEnv("PREFERENCES_REMOTE_URL", ""),
		},

		Session: SessionConfig{
			QueryTimeout:   getEnvDuration("SESSION_QUERY_TIMEOUT", 60*time.Second),
			ExpansionRate:  getEnvFloat("SESSION_EXPANSION_RATE", 2),
			ExpansionBurst: getEnvInt("SESSION_EXPANSION_BURST", 4),
			IdleTTL:        getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
			SweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.QueryBackend.BaseURL == "" {
		return fmt.Errorf("QUERY_BACKEND_URL is required")
	}
	if c.QueryBackend.BreakerFailureThreshold <= 0 || c.QueryBackend.BreakerFailureThreshold > 1 {
		return fmt.Errorf("QUERY_BREAKER_FAILURE_THRESHOLD must be in (0, 1]")
	}
	if c.Session.ExpansionBurst < 1 {
		return fmt.Errorf("SESSION_EXPANSION_BURST must be at least 1")
	}
	if c.IsProduction() && c.QueryBackend.APIKey == "" {
		return fmt.Errorf("QUERY_BACKEND_API_KEY is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
