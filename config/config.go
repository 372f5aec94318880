// Package config loads gcodehost's ambient configuration: logging,
// metrics, and session tuning. Grounded on dittofs/pkg/config's
// viper+yaml layering (defaults -> file -> env -> flags), scaled down to
// this module's much smaller surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gcodehost/gcodehost/session"
)

// Config is gcodehost's complete ambient configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (GCODEHOST_*), for keys the file sets
//  2. Configuration file
//  3. Default values
//
// No CLI flag is bound to a config field, and when no configuration file
// is found Load returns the defaults without consulting the environment.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Connect ConnectConfig `mapstructure:"connect" yaml:"connect"`
}

// LoggingConfig controls corelog's backing slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (case-insensitive).
	Level string `mapstructure:"level" yaml:"level"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// SessionConfig mirrors session.Config, expressed in config-file-
// friendly field names, plus the auto-probe timeout and default baud.
// Those two are stored in the file only: ToSessionConfig drops them, and
// the engine uses session.AutoProbeTimeout and session.DefaultBaud.
type SessionConfig struct {
	OutboundQueueCap int           `mapstructure:"outbound_queue_cap" yaml:"outbound_queue_cap"`
	BroadcastCap     int           `mapstructure:"broadcast_cap" yaml:"broadcast_cap"`
	PendingCap       int           `mapstructure:"pending_cap" yaml:"pending_cap"`
	AutoProbeTimeout time.Duration `mapstructure:"auto_probe_timeout" yaml:"auto_probe_timeout"`
	DefaultBaud      int           `mapstructure:"default_baud" yaml:"default_baud"`
}

// ToSessionConfig converts to session.Config for Session.Connect.
func (s SessionConfig) ToSessionConfig() session.Config {
	return session.Config{
		OutboundQueueCap: s.OutboundQueueCap,
		BroadcastCap:     s.BroadcastCap,
		PendingCap:       s.PendingCap,
	}
}

// ConnectConfig holds MQTT broker and topic settings. They are loaded and
// saved with the rest of the config, but the engine's connect command
// does not read them: `connect mqtt` uses the broker it is given and
// falls back to its own built-in topics, gcodehost/in and gcodehost/out.
type ConnectConfig struct {
	MQTTBroker string `mapstructure:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTIn     string `mapstructure:"mqtt_in" yaml:"mqtt_in"`
	MQTTOut    string `mapstructure:"mqtt_out" yaml:"mqtt_out"`
}

// Default returns the zero-config Config: every field carries the
// behavior the rest of the module already defaults to when unconfigured.
func Default() Config {
	sessionDefaults := session.DefaultConfig()
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: false, Port: 9090},
		Session: SessionConfig{
			OutboundQueueCap: sessionDefaults.OutboundQueueCap,
			BroadcastCap:     sessionDefaults.BroadcastCap,
			PendingCap:       sessionDefaults.PendingCap,
			AutoProbeTimeout: session.AutoProbeTimeout,
			DefaultBaud:      session.DefaultBaud,
		},
		Connect: ConnectConfig{
			MQTTIn:  "gcodehost/in",
			MQTTOut: "gcodehost/out",
		},
	}
}

// ApplyDefaults fills any zero-valued field of cfg from Default().
func ApplyDefaults(cfg *Config) {
	d := Default()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = d.Metrics.Port
	}
	if cfg.Session.OutboundQueueCap == 0 {
		cfg.Session.OutboundQueueCap = d.Session.OutboundQueueCap
	}
	if cfg.Session.BroadcastCap == 0 {
		cfg.Session.BroadcastCap = d.Session.BroadcastCap
	}
	if cfg.Session.PendingCap == 0 {
		cfg.Session.PendingCap = d.Session.PendingCap
	}
	if cfg.Session.AutoProbeTimeout == 0 {
		cfg.Session.AutoProbeTimeout = d.Session.AutoProbeTimeout
	}
	if cfg.Session.DefaultBaud == 0 {
		cfg.Session.DefaultBaud = d.Session.DefaultBaud
	}
	if cfg.Connect.MQTTIn == "" {
		cfg.Connect.MQTTIn = d.Connect.MQTTIn
	}
	if cfg.Connect.MQTTOut == "" {
		cfg.Connect.MQTTOut = d.Connect.MQTTOut
	}
}

// Validate reports whether cfg is internally consistent.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logging level %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("config: invalid metrics port %d", cfg.Metrics.Port)
	}
	sc := cfg.Session.ToSessionConfig()
	if err := sc.Valid(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads configuration from configPath (or the default search
// path when empty). Values from the file replace the defaults, and a
// GCODEHOST_* environment variable overrides a key the file sets. When
// no file is found, Load returns Default() unchanged.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GCODEHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &cfg, nil
		}
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultDir resolves the config search directory: $XDG_CONFIG_HOME/gcodehost,
// falling back to ~/.config/gcodehost, then ".".
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gcodehost")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "gcodehost")
}
