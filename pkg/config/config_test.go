package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"gpsd", "starlink"}, cfg.Providers.Order)
	assert.False(t, cfg.MQTT.Enabled)
	assert.False(t, cfg.API.Enabled)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2947, cfg.Providers.Gpsd.Port)
	assert.Equal(t, "192.168.100.1", cfg.Providers.Starlink.Host)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
providers:
  order: [starlink, google]
  google:
    api_key: test-key
session:
  timeout_seconds: 20
  watch_interval_seconds: 15
mqtt:
  enabled: true
  broker: broker.local
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"starlink", "google"}, cfg.Providers.Order)
	assert.Equal(t, "test-key", cfg.Providers.Google.APIKey)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Providers.Gpsd.Host)
}

func TestSessionConfigConversion(t *testing.T) {
	path := writeConfig(t, `
session:
  timeout_seconds: 20
  watch_interval_seconds: 15
  max_age_seconds: 120
  high_accuracy: false
  enable_background_tracking: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	sess := cfg.SessionConfig()
	assert.Equal(t, 20*time.Second, sess.Timeout)
	assert.Equal(t, 15*time.Second, sess.WatchInterval)
	assert.Equal(t, 120*time.Second, sess.MaxAge)
	assert.False(t, sess.HighAccuracy)
	assert.True(t, sess.EnableBackgroundTracking)
}

func TestWatchdogConfigConversion(t *testing.T) {
	cfg := Default()
	wd := cfg.WatchdogConfig()
	assert.Equal(t, 30*time.Second, wd.CheckInterval)
	assert.Equal(t, 2*time.Minute, wd.StaleThreshold)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "log_level: [broken")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: loud")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  order: [gpsd, sextant]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sextant")
}

func TestValidateRejectsEmptyProviderOrder(t *testing.T) {
	path := writeConfig(t, `
providers:
  order: []
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	path := writeConfig(t, `
session:
  timeout_seconds: 0
`)
	_, err := Load(path)
	assert.Error(t, err)
}
