package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSettings_Validate(t *testing.T) {
	valid := RuntimeSettings{
		GatewayAPIURL: "https://gateway.example/api",
		GatewayAPIKey: "sk-test",
		SweepCronExpr: "*/5 * * * *",
	}
	require.NoError(t, valid.Validate())

	// Key is optional: the gateway enforces auth itself.
	noKey := valid
	noKey.GatewayAPIKey = ""
	require.NoError(t, noKey.Validate())

	invalid := valid
	invalid.SweepCronExpr = "bad cron"
	require.Error(t, invalid.Validate())

	noURL := valid
	noURL.GatewayAPIURL = " "
	require.Error(t, noURL.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := RuntimeSettings{
		GatewayAPIURL: "https://gateway.example/api",
		GatewayAPIKey: "sk-test",
		SweepCronExpr: "@every 10m",
	}

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	t.Setenv("GATEWAY_API_URL", "https://env.example/api")
	t.Setenv("GATEWAY_API_KEY", "env-key")
	t.Setenv("SWEEP_CRON_EXPR", "0 1 * * *")

	override := RuntimeSettings{
		GatewayAPIURL: "https://file.example/api",
		GatewayAPIKey: "file-key",
		SweepCronExpr: "*/30 * * * *",
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, override.GatewayAPIURL, cfg.Gateway.APIURL)
	assert.Equal(t, override.GatewayAPIKey, cfg.Gateway.APIKey)
	assert.Equal(t, override.SweepCronExpr, cfg.Sweep.CronExpr)
}

func TestRuntimeSettingsStore_UpdatePersistsFile(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "runtime-settings.json")
	initial := RuntimeSettings{
		GatewayAPIURL: "https://old.example/api",
		GatewayAPIKey: "old-key",
		SweepCronExpr: "@every 5m",
	}

	store, err := NewRuntimeSettingsStore(filePath, initial)
	require.NoError(t, err)

	next := RuntimeSettings{
		GatewayAPIURL: "https://new.example/api",
		GatewayAPIKey: "new-key",
		SweepCronExpr: "*/10 * * * *",
	}
	got, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	loaded, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, loaded)
}
