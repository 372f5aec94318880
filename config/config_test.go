package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_FillsZeroFieldsOnly(t *testing.T) {
	t.Parallel()
	cfg := Config{Session: SessionConfig{OutboundQueueCap: 32}}
	ApplyDefaults(&cfg)

	assert.Equal(t, 32, cfg.Session.OutboundQueueCap) // untouched
	assert.Equal(t, Default().Session.BroadcastCap, cfg.Session.BroadcastCap)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestValidate_RejectsBadLoggingLevel(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Logging.Level = "loud"
	assert.Error(t, Validate(&cfg))
}

func TestValidate_RejectsMetricsPortWhenEnabled(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 0
	assert.Error(t, Validate(&cfg))
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Session.DefaultBaud = 250000
	require.NoError(t, Save(&cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, 250000, loaded.Session.DefaultBaud)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Logging.Level, cfg.Logging.Level)
}
