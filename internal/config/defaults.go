package config

import (
	"time"

	"digiforge-analytics/internal/stats"
)

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Port = 5001
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second

	// Detection defaults
	cfg.Detection.WindowSize = stats.DefaultWindowSize
	cfg.Detection.MinSamples = stats.DefaultMinSamples
	cfg.Detection.ZLimit = stats.DefaultZLimit
	cfg.Detection.InspectionWindow = stats.DefaultInspectionWindow
	cfg.Detection.InspectionFailLimit = 3
	cfg.Detection.Temperature = Thresholds{Warn: 75, Crit: 90}
	cfg.Detection.Vibration = Thresholds{Warn: 2.0, Crit: 3.5}
	cfg.Detection.Power = Thresholds{Warn: 350, Crit: 400}
	cfg.Detection.Position.Expected = Axes{X: 50.0, Y: 30.0, Z: 10.0}
	cfg.Detection.Position.WarningTolerance = 5.0
	cfg.Detection.Position.CriticalTolerance = 10.0

	// Alert defaults
	cfg.Alerts.HistorySize = 50
	cfg.Alerts.LogFile = "anomaly_alerts.log"
	cfg.Alerts.MaxSizeMB = 100
	cfg.Alerts.MaxBackups = 10
	cfg.Alerts.MaxAgeDays = 30
	cfg.Alerts.Compress = false

	// KG mapping tables
	cfg.KG.MaintenancePath = "maintenance-kg.csv"
	cfg.KG.NormalPath = "normal-kg.csv"
	cfg.KG.CyberattackPath = "cyberattack-kg.csv"

	// Stream defaults
	cfg.Stream.DefaultMachineID = "CNC_Mill_1"
	cfg.Stream.MaxLineBytes = 1 << 20

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Encoding = "json"

	// Auth defaults
	cfg.Auth.Enabled = false
	cfg.Auth.JWTExpiration = 60

	// Redis defaults
	cfg.Redis.Enabled = false
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.AlertChannel = "digiforge_alerts"

	// Kafka defaults
	cfg.Kafka.Enabled = false
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.GroupID = "digiforge-analytics"
	cfg.Kafka.TelemetryTopic = "cnc-telemetry"
	cfg.Kafka.AlertTopic = "cnc-alerts"
	cfg.Kafka.RecordTopic = "cnc-kg-records"

	return cfg
}

// StatsConfig returns the rolling window settings for the stats store.
func (d DetectionConfig) StatsConfig() stats.Config {
	return stats.Config{
		WindowSize:       d.WindowSize,
		MinSamples:       d.MinSamples,
		ZLimit:           d.ZLimit,
		InspectionWindow: d.InspectionWindow,
	}
}
