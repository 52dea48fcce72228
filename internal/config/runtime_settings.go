package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

const DefaultRuntimeSettingsFile = "data/settings.json"

// RuntimeSettings is the subset of configuration the studio UI may change
// at runtime without restarting the daemon.
type RuntimeSettings struct {
	GatewayAPIURL string `json:"gateway_api_url"`
	GatewayAPIKey string `json:"gateway_api_key"`
	SweepCronExpr string `json:"sweep_cron_expr"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	if strings.TrimSpace(s.GatewayAPIURL) == "" {
		return fmt.Errorf("gateway_api_url is required")
	}
	// The API key is optional: the gateway rejects unauthenticated calls on
	// its own and an empty key is a valid local-development setup.
	if strings.TrimSpace(s.SweepCronExpr) == "" {
		return fmt.Errorf("sweep_cron_expr is required")
	}
	if _, err := cron.ParseStandard(s.SweepCronExpr); err != nil {
		return fmt.Errorf("invalid sweep_cron_expr: %w", err)
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		GatewayAPIURL: c.Gateway.APIURL,
		GatewayAPIKey: c.Gateway.APIKey,
		SweepCronExpr: c.Sweep.CronExpr,
	}
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.GatewayAPIURL) != "" {
			c.Gateway.APIURL = settings.GatewayAPIURL
		}
		if strings.TrimSpace(settings.GatewayAPIKey) != "" {
			c.Gateway.APIKey = settings.GatewayAPIKey
		}
		if strings.TrimSpace(settings.SweepCronExpr) != "" {
			c.Sweep.CronExpr = settings.SweepCronExpr
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
