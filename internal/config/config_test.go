package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8686", cfg.Gateway.APIURL)
	assert.Equal(t, 60, cfg.Gateway.Timeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "data/jobtrack.db", cfg.Data.DBPath)
	assert.Equal(t, "@every 5m", cfg.Sweep.CronExpr)
}

func TestNewFromEnv_ReadsEnvironment(t *testing.T) {
	t.Setenv("GATEWAY_API_URL", "https://gateway.example/api")
	t.Setenv("GATEWAY_API_KEY", "sk-test")
	t.Setenv("GATEWAY_TIMEOUT", "15")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("SWEEP_CRON_EXPR", "*/10 * * * *")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example/api", cfg.Gateway.APIURL)
	assert.Equal(t, "sk-test", cfg.Gateway.APIKey)
	assert.Equal(t, 15, cfg.Gateway.Timeout)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, "*/10 * * * *", cfg.Sweep.CronExpr)
}

func TestNewFromEnv_RejectsBadSweepExpression(t *testing.T) {
	t.Setenv("SWEEP_CRON_EXPR", "not a cron expr")

	_, err := NewFromEnv()
	require.Error(t, err)
}
