package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digiforge-analytics/internal/auth"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, 10, cfg.Detection.WindowSize)
	assert.Equal(t, 5, cfg.Detection.MinSamples)
	assert.Equal(t, 2.5, cfg.Detection.ZLimit)
	assert.Equal(t, 5, cfg.Detection.InspectionWindow)
	assert.Equal(t, 3, cfg.Detection.InspectionFailLimit)
	assert.Equal(t, Thresholds{Warn: 75, Crit: 90}, cfg.Detection.Temperature)
	assert.Equal(t, Thresholds{Warn: 2.0, Crit: 3.5}, cfg.Detection.Vibration)
	assert.Equal(t, Thresholds{Warn: 350, Crit: 400}, cfg.Detection.Power)
	assert.Equal(t, Axes{X: 50, Y: 30, Z: 10}, cfg.Detection.Position.Expected)

	assert.Equal(t, 50, cfg.Alerts.HistorySize)
	assert.Equal(t, "anomaly_alerts.log", cfg.Alerts.LogFile)
	assert.Equal(t, "CNC_Mill_1", cfg.Stream.DefaultMachineID)

	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Alerts.HistorySize)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  shutdown_timeout: 3s
detection:
  z_limit: 3.0
  temperature:
    warn: 70
    crit: 85
kg:
  normal_path: /tmp/normal.csv
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DIGIFORGE_STREAM_DEFAULT_MACHINE_ID", "CNC_Lathe_2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 3.0, cfg.Detection.ZLimit)
	assert.Equal(t, Thresholds{Warn: 70, Crit: 85}, cfg.Detection.Temperature)
	assert.Equal(t, Thresholds{Warn: 350, Crit: 400}, cfg.Detection.Power)
	assert.Equal(t, "/tmp/normal.csv", cfg.KG.NormalPath)
	assert.Equal(t, "maintenance-kg.csv", cfg.KG.MaintenancePath)
	assert.Equal(t, "CNC_Lathe_2", cfg.Stream.DefaultMachineID)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [port"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		modifyFn func(*Config)
		wantErr  bool
	}{
		{name: "defaults", modifyFn: func(*Config) {}},
		{name: "port too high", modifyFn: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "warn above crit", modifyFn: func(c *Config) { c.Detection.Vibration = Thresholds{Warn: 4, Crit: 3} }, wantErr: true},
		{name: "min samples above window", modifyFn: func(c *Config) { c.Detection.MinSamples = 11 }, wantErr: true},
		{name: "tolerances inverted", modifyFn: func(c *Config) { c.Detection.Position.CriticalTolerance = 4 }, wantErr: true},
		{name: "fail limit above window", modifyFn: func(c *Config) { c.Detection.InspectionFailLimit = 6 }, wantErr: true},
		{name: "empty history", modifyFn: func(c *Config) { c.Alerts.HistorySize = 0 }, wantErr: true},
		{name: "no default machine", modifyFn: func(c *Config) { c.Stream.DefaultMachineID = "" }, wantErr: true},
		{name: "redis without channel", modifyFn: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.AlertChannel = ""
		}, wantErr: true},
		{name: "auth without credentials", modifyFn: func(c *Config) { c.Auth.Enabled = true }, wantErr: true},
		{name: "auth with api key", modifyFn: func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.APIKeys = []string{"k"}
		}},
		{name: "users without secret", modifyFn: func(c *Config) {
			c.Auth.AllowedUsers = []auth.User{{Username: "u", PasswordHash: "h"}}
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatsConfig(t *testing.T) {
	sc := DefaultConfig().Detection.StatsConfig()
	assert.Equal(t, 10, sc.WindowSize)
	assert.Equal(t, 5, sc.MinSamples)
	assert.Equal(t, 2.5, sc.ZLimit)
	assert.Equal(t, 5, sc.InspectionWindow)
}
