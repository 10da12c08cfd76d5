package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frahlg/mqtop/errors"
)

func TestParseFull(t *testing.T) {
	data := []byte(`
servers:
  - name: production
    protocol: mqtt
    host: broker.example.com
    port: 8883
    tls: true
    username: telemetry
    client_id: mqtop-prod
    subscriptions:
      - "telemetry/#"
      - "status/+"
  - name: staging
    host: staging.example.com
    port: 1883
active_server: production
engine:
  buffer_capacity: 200
  stats_window: 30s
  healthy_threshold: 2m
  stale_threshold: 10m
log:
  level: debug
  format: json
metrics:
  port: 9090
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "production", cfg.ActiveServer)

	active, err := cfg.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "broker.example.com", active.Host)
	assert.True(t, active.TLS)
	assert.Equal(t, []string{"telemetry/#", "status/+"}, active.Subscriptions)

	assert.Equal(t, 200, cfg.Engine.BufferCapacity)
	assert.Equal(t, 30*time.Second, cfg.Engine.StatsWindow)
	assert.Equal(t, 2*time.Minute, cfg.Engine.HealthyThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	// Defaults survive a partial file
	assert.Equal(t, 1<<20, cfg.Engine.PayloadCap)
	assert.Equal(t, 60, cfg.Engine.TrackerHistory)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	active, err := cfg.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "local", active.Name)
	assert.Equal(t, 1883, active.Port)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no servers", `servers: []`},
		{"missing name", "servers:\n  - host: h\n    port: 1883"},
		{"duplicate name", "servers:\n  - name: a\n    host: h\n    port: 1883\n  - name: a\n    host: h2\n    port: 1883"},
		{"unknown active", "servers:\n  - name: a\n    host: h\n    port: 1883\nactive_server: missing"},
		{"bad port", "servers:\n  - name: a\n    host: h\n    port: 99999"},
		{"bad subscription", "servers:\n  - name: a\n    host: h\n    port: 1883\n    subscriptions: [\"x/#/y\"]"},
		{"thresholds inverted", "servers:\n  - name: a\n    host: h\n    port: 1883\nengine:\n  healthy_threshold: 10m\n  stale_threshold: 1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err) || errors.IsInvalid(err),
				"config errors must classify as fatal or invalid, got %v", err)
		})
	}
}

func TestActiveDefaultsToFirst(t *testing.T) {
	cfg, err := Parse([]byte("servers:\n  - name: only\n    host: h\n    port: 1883"))
	require.NoError(t, err)
	assert.Equal(t, "only", cfg.ActiveServer)
}

func TestProfileLookup(t *testing.T) {
	cfg := Default()

	_, err := cfg.Profile("nope")
	assert.ErrorIs(t, err, errors.ErrUnknownProfile)

	p, err := cfg.Profile("local")
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name)
}

func TestEnvTokenOverride(t *testing.T) {
	t.Setenv(EnvToken, "secret-token")

	cfg, err := Parse([]byte("servers:\n  - name: a\n    host: h\n    port: 1883\n    username: u"))
	require.NoError(t, err)

	active, err := cfg.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", active.Password)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.ActiveServer)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mqtop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers:\n  - name: file\n    host: h\n    port: 1883"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.ActiveServer)
}
