package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"

	"github.com/genstudio/jobtrack/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables with sensible defaults.
//
// Environment Variables:
// Gateway Configuration:
// - GATEWAY_API_URL: Base URL of the generation gateway (default: http://localhost:8686)
// - GATEWAY_API_KEY: API key attached as a bearer token (optional; the
//   gateway rejects unauthenticated requests itself)
// - GATEWAY_TIMEOUT: Request timeout in seconds (default: 60)
//
// HTTP Configuration:
// - HTTP_ADDR: Listen address for the API server (default: :8080)
// - UI_STATIC_DIR: Directory with the studio front-end bundle (optional)
//
// Data Configuration:
// - DB_PATH: SQLite database path (default: data/jobtrack.db)
//
// Sweep Configuration:
// - SWEEP_CRON_EXPR: Schedule for the stale-job sweep (default: @every 5m)
//
// Logging:
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	// Gateway Configuration
	Gateway GatewayConfig `json:"gateway"`

	// HTTP Configuration
	HTTP HTTPConfig `json:"http"`

	// Data Configuration
	Data DataConfig `json:"data"`

	// Sweep Configuration
	Sweep SweepConfig `json:"sweep"`

	// Logging Configuration
	LogLevel string `json:"log_level"`
}

// GatewayConfig holds the configuration for the generation gateway client.
type GatewayConfig struct {
	APIURL  string `json:"api_url"`
	APIKey  string `json:"api_key"`
	Timeout int    `json:"timeout"`
}

// HTTPConfig holds the configuration for the API server.
type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIStaticDir string `json:"ui_static_dir"`
}

// DataConfig holds the configuration for local persistence.
type DataConfig struct {
	DBPath string `json:"db_path"`
}

// SweepConfig holds the configuration for the periodic stale-job sweep.
type SweepConfig struct {
	CronExpr string `json:"cron_expr"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Gateway: GatewayConfig{
			APIURL:  getEnvString("GATEWAY_API_URL", "http://localhost:8686"),
			APIKey:  getEnvString("GATEWAY_API_KEY", ""),
			Timeout: getEnvInt("GATEWAY_TIMEOUT", 60),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIStaticDir: getEnvString("UI_STATIC_DIR", ""),
		},
		Data: DataConfig{
			DBPath: getEnvString("DB_PATH", "data/jobtrack.db"),
		},
		Sweep: SweepConfig{
			CronExpr: getEnvString("SWEEP_CRON_EXPR", "@every 5m"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", config.redacted())

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Gateway.APIURL == "" {
		return fmt.Errorf("GATEWAY_API_URL is required")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if _, err := cron.ParseStandard(c.Sweep.CronExpr); err != nil {
		return fmt.Errorf("invalid SWEEP_CRON_EXPR: %w", err)
	}
	return nil
}

// redacted returns a copy safe for logging.
func (c *Config) redacted() Config {
	out := *c
	if out.Gateway.APIKey != "" {
		out.Gateway.APIKey = "***"
	}
	return out
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
