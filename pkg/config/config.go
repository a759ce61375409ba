package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jtaz8681/boat-app/pkg/api"
	"github.com/Jtaz8681/boat-app/pkg/gps"
	"github.com/Jtaz8681/boat-app/pkg/mqtt"
)

// Config is the daemon's full configuration tree. Durations are plain
// seconds in the file; they are mapped onto the subsystem configs by
// the builder methods below.
type Config struct {
	LogLevel  string          `yaml:"log_level" json:"log_level"`
	PIDFile   string          `yaml:"pid_file" json:"pid_file"`
	Providers ProvidersConfig `yaml:"providers" json:"providers"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Watchdog  WatchdogConfig  `yaml:"watchdog" json:"watchdog"`
	MQTT      *mqtt.Config    `yaml:"mqtt" json:"mqtt"`
	API       *api.Config     `yaml:"api" json:"api"`
}

// ProvidersConfig selects and parameterizes the position backends.
// Order is the fallback chain; unknown names are rejected at load.
type ProvidersConfig struct {
	Order    []string       `yaml:"order" json:"order"`
	Gpsd     GpsdConfig     `yaml:"gpsd" json:"gpsd"`
	Starlink StarlinkConfig `yaml:"starlink" json:"starlink"`
	Google   GoogleConfig   `yaml:"google" json:"google"`
}

type GpsdConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type StarlinkConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type GoogleConfig struct {
	APIKey string `yaml:"api_key" json:"api_key"`
}

// SessionConfig mirrors gps.SessionConfig with file-friendly units.
type SessionConfig struct {
	WatchIntervalSeconds     int  `yaml:"watch_interval_seconds" json:"watch_interval_seconds"`
	HighAccuracy             bool `yaml:"high_accuracy" json:"high_accuracy"`
	TimeoutSeconds           int  `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxAgeSeconds            int  `yaml:"max_age_seconds" json:"max_age_seconds"`
	EnableBackgroundTracking bool `yaml:"enable_background_tracking" json:"enable_background_tracking"`
}

// WatchdogConfig mirrors gps.WatchdogConfig with file-friendly units.
type WatchdogConfig struct {
	Enabled                bool    `yaml:"enabled" json:"enabled"`
	CheckIntervalSeconds   int     `yaml:"check_interval_seconds" json:"check_interval_seconds"`
	StaleThresholdSeconds  int     `yaml:"stale_threshold_seconds" json:"stale_threshold_seconds"`
	MaxAccuracyMeters      float64 `yaml:"max_accuracy_meters" json:"max_accuracy_meters"`
	MaxConsecutiveFailures int     `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`
	RestartCooldownSeconds int     `yaml:"restart_cooldown_seconds" json:"restart_cooldown_seconds"`
	EnableAutoRestart      bool    `yaml:"enable_auto_restart" json:"enable_auto_restart"`
}

// Default returns the configuration the daemon runs with when no file
// is present: gpsd first, Starlink second, Google off.
func Default() *Config {
	sess := gps.DefaultSessionConfig()
	wd := gps.DefaultWatchdogConfig()
	return &Config{
		LogLevel: "info",
		PIDFile:  "/var/run/boattrackd.pid",
		Providers: ProvidersConfig{
			Order:    []string{"gpsd", "starlink"},
			Gpsd:     GpsdConfig{Host: "localhost", Port: 2947},
			Starlink: StarlinkConfig{Host: "192.168.100.1", Port: 9200},
		},
		Session: SessionConfig{
			WatchIntervalSeconds:     int(sess.WatchInterval / time.Second),
			HighAccuracy:             sess.HighAccuracy,
			TimeoutSeconds:           int(sess.Timeout / time.Second),
			MaxAgeSeconds:            int(sess.MaxAge / time.Second),
			EnableBackgroundTracking: sess.EnableBackgroundTracking,
		},
		Watchdog: WatchdogConfig{
			Enabled:                true,
			CheckIntervalSeconds:   int(wd.CheckInterval / time.Second),
			StaleThresholdSeconds:  int(wd.StaleThreshold / time.Second),
			MaxAccuracyMeters:      wd.MaxAccuracy,
			MaxConsecutiveFailures: wd.MaxConsecutiveFailures,
			RestartCooldownSeconds: int(wd.RestartCooldown / time.Second),
			EnableAutoRestart:      wd.EnableAutoRestart,
		},
		MQTT: mqtt.DefaultConfig(),
		API:  api.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. A missing path returns the
// defaults without error; a present but broken file is fatal.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must name at least one provider")
	}
	for _, name := range c.Providers.Order {
		switch name {
		case "gpsd", "starlink", "google":
		default:
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}

	if c.Session.TimeoutSeconds <= 0 {
		return fmt.Errorf("session.timeout_seconds must be positive")
	}
	if c.Session.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("session.watch_interval_seconds must be positive")
	}
	return nil
}

// SessionConfig converts the file units into the runtime config.
func (c *Config) SessionConfig() *gps.SessionConfig {
	return &gps.SessionConfig{
		WatchInterval:            time.Duration(c.Session.WatchIntervalSeconds) * time.Second,
		HighAccuracy:             c.Session.HighAccuracy,
		Timeout:                  time.Duration(c.Session.TimeoutSeconds) * time.Second,
		MaxAge:                   time.Duration(c.Session.MaxAgeSeconds) * time.Second,
		EnableBackgroundTracking: c.Session.EnableBackgroundTracking,
	}
}

// WatchdogConfig converts the file units into the runtime config.
func (c *Config) WatchdogConfig() *gps.WatchdogConfig {
	return &gps.WatchdogConfig{
		CheckInterval:          time.Duration(c.Watchdog.CheckIntervalSeconds) * time.Second,
		StaleThreshold:         time.Duration(c.Watchdog.StaleThresholdSeconds) * time.Second,
		MaxAccuracy:            c.Watchdog.MaxAccuracyMeters,
		MaxConsecutiveFailures: c.Watchdog.MaxConsecutiveFailures,
		RestartCooldown:        time.Duration(c.Watchdog.RestartCooldownSeconds) * time.Second,
		EnableAutoRestart:      c.Watchdog.EnableAutoRestart,
	}
}
