package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/transport"
)

// EnvToken overrides the active profile's password so credentials can stay
// out of the config file.
const EnvToken = "MQTOP_TOKEN"

// EngineConfig tunes the ingestion pipeline.
type EngineConfig struct {
	BufferCapacity   int           `yaml:"buffer_capacity"`
	PayloadCap       int           `yaml:"payload_cap"`
	StatsWindow      time.Duration `yaml:"stats_window"`
	HealthyThreshold time.Duration `yaml:"healthy_threshold"`
	StaleThreshold   time.Duration `yaml:"stale_threshold"`
	TrackerHistory   int           `yaml:"tracker_history"`
	InboundBuffer    int           `yaml:"inbound_buffer"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// Config is the full application configuration: server profiles plus
// engine tuning.
type Config struct {
	Servers      []transport.ServerProfile `yaml:"servers"`
	ActiveServer string                    `yaml:"active_server"`
	Engine       EngineConfig              `yaml:"engine"`
	Log          LogConfig                 `yaml:"log"`
	Metrics      MetricsConfig             `yaml:"metrics"`
}

// Default returns the configuration used when no file is given: one local
// broker profile and the engine defaults.
func Default() *Config {
	return &Config{
		Servers: []transport.ServerProfile{{
			Name: "local",
			Host: "localhost",
			Port: 1883,
		}},
		ActiveServer: "local",
		Engine: EngineConfig{
			BufferCapacity:   100,
			PayloadCap:       1 << 20,
			StatsWindow:      10 * time.Second,
			HealthyThreshold: 60 * time.Second,
			StaleThreshold:   300 * time.Second,
			TrackerHistory:   60,
			InboundBuffer:    4096,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Parse decodes YAML over the defaults, applies env overrides, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Load reads a config file. A missing file falls back to defaults so the
// tool runs with zero setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, errors.Wrap(err, "config", "Load", "read "+path)
	}
	return Parse(data)
}

// applyEnv folds secret overrides into the active profile.
func (c *Config) applyEnv() {
	token := os.Getenv(EnvToken)
	if token == "" {
		return
	}
	for i := range c.Servers {
		if c.Servers[i].Name == c.ActiveServer {
			c.Servers[i].Password = token
			return
		}
	}
}

// Validate checks profile consistency. Config failures are fatal by the
// error taxonomy: a broken config must surface, not retry.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return errors.WrapFatal(errors.ErrMissingConfig, "config", "Validate", "at least one server profile required")
	}
	seen := make(map[string]bool, len(c.Servers))
	for _, srv := range c.Servers {
		if srv.Name == "" {
			return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate", "server profile missing name")
		}
		if seen[srv.Name] {
			return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("duplicate server profile %q", srv.Name))
		}
		seen[srv.Name] = true
		if err := srv.Validate(); err != nil {
			return err
		}
	}
	if c.ActiveServer == "" {
		c.ActiveServer = c.Servers[0].Name
	}
	if !seen[c.ActiveServer] {
		return errors.WrapFatal(errors.ErrUnknownProfile, "config", "Validate",
			fmt.Sprintf("active server %q not in profiles", c.ActiveServer))
	}
	if c.Engine.BufferCapacity < 0 || c.Engine.PayloadCap < 0 || c.Engine.InboundBuffer < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate", "engine sizes must not be negative")
	}
	if c.Engine.StaleThreshold > 0 && c.Engine.HealthyThreshold >= c.Engine.StaleThreshold {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			"healthy_threshold must be below stale_threshold")
	}
	return nil
}

// ActiveProfile returns the profile selected by active_server.
func (c *Config) ActiveProfile() (transport.ServerProfile, error) {
	for _, srv := range c.Servers {
		if srv.Name == c.ActiveServer {
			return srv, nil
		}
	}
	return transport.ServerProfile{}, errors.ErrUnknownProfile
}

// Profile returns a profile by name, for profile switching.
func (c *Config) Profile(name string) (transport.ServerProfile, error) {
	for _, srv := range c.Servers {
		if srv.Name == name {
			return srv, nil
		}
	}
	return transport.ServerProfile{}, errors.ErrUnknownProfile
}
