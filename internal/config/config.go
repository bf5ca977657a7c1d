// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"digiforge-analytics/internal/auth"
	"digiforge-analytics/internal/logging"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Detection DetectionConfig `mapstructure:"detection"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	KG        KGConfig        `mapstructure:"kg"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Logging   logging.Config  `mapstructure:"logging"`
	Auth      auth.Config     `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`

	// ConfigFile is the file the values were read from, empty when only
	// defaults and environment variables applied.
	ConfigFile string `mapstructure:"-"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// Thresholds is a warn/crit pair for one metric. Readings strictly above Crit are
// CRITICAL, strictly above Warn are WARNING.
type Thresholds struct {
	Warn float64 `mapstructure:"warn"`
	Crit float64 `mapstructure:"crit" validate:"gtfield=Warn"`
}

type Axes struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
	Z float64 `mapstructure:"z"`
}

type PositionConfig struct {
	Expected          Axes    `mapstructure:"expected"`
	WarningTolerance  float64 `mapstructure:"warning_tolerance" validate:"gt=0"`
	CriticalTolerance float64 `mapstructure:"critical_tolerance" validate:"gtfield=WarningTolerance"`
}

type DetectionConfig struct {
	WindowSize          int            `mapstructure:"window_size" validate:"min=2"`
	MinSamples          int            `mapstructure:"min_samples" validate:"min=2,ltefield=WindowSize"`
	ZLimit              float64        `mapstructure:"z_limit" validate:"gt=0"`
	InspectionWindow    int            `mapstructure:"inspection_window" validate:"min=1"`
	InspectionFailLimit int            `mapstructure:"inspection_fail_limit" validate:"min=1,ltefield=InspectionWindow"`
	Temperature         Thresholds     `mapstructure:"temperature"`
	Vibration           Thresholds     `mapstructure:"vibration"`
	Power               Thresholds     `mapstructure:"power"`
	Position            PositionConfig `mapstructure:"position"`
}

type AlertsConfig struct {
	HistorySize int    `mapstructure:"history_size" validate:"min=1"`
	LogFile     string `mapstructure:"log_file"` // empty disables the durable alert log
	MaxSizeMB   int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays  int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress    bool   `mapstructure:"compress"`
}

type KGConfig struct {
	MaintenancePath string `mapstructure:"maintenance_path"`
	NormalPath      string `mapstructure:"normal_path"`
	CyberattackPath string `mapstructure:"cyberattack_path"`
}

type StreamConfig struct {
	DefaultMachineID string `mapstructure:"default_machine_id" validate:"required"`
	MaxLineBytes     int    `mapstructure:"max_line_bytes" validate:"min=1024"`
}

type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" validate:"gte=0"`
	AlertChannel string `mapstructure:"alert_channel" validate:"required_if=Enabled true"`
}

type KafkaConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	GroupID        string   `mapstructure:"group_id" validate:"required_if=Enabled true"`
	TelemetryTopic string   `mapstructure:"telemetry_topic"`
	AlertTopic     string   `mapstructure:"alert_topic"`
	RecordTopic    string   `mapstructure:"record_topic"`
}

// Load reads path (YAML) on top of the defaults, then applies DIGIFORGE_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DIGIFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	source := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		source = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigFile = source
	return &cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 && len(c.Auth.AllowedUsers) == 0 {
		return errors.New("invalid config: auth enabled without api_keys or users")
	}
	if len(c.Auth.AllowedUsers) > 0 && c.Auth.JWTSecret == "" {
		return errors.New("invalid config: auth.users requires auth.jwt_secret")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("detection.window_size", d.Detection.WindowSize)
	v.SetDefault("detection.min_samples", d.Detection.MinSamples)
	v.SetDefault("detection.z_limit", d.Detection.ZLimit)
	v.SetDefault("detection.inspection_window", d.Detection.InspectionWindow)
	v.SetDefault("detection.inspection_fail_limit", d.Detection.InspectionFailLimit)
	v.SetDefault("detection.temperature.warn", d.Detection.Temperature.Warn)
	v.SetDefault("detection.temperature.crit", d.Detection.Temperature.Crit)
	v.SetDefault("detection.vibration.warn", d.Detection.Vibration.Warn)
	v.SetDefault("detection.vibration.crit", d.Detection.Vibration.Crit)
	v.SetDefault("detection.power.warn", d.Detection.Power.Warn)
	v.SetDefault("detection.power.crit", d.Detection.Power.Crit)
	v.SetDefault("detection.position.expected.x", d.Detection.Position.Expected.X)
	v.SetDefault("detection.position.expected.y", d.Detection.Position.Expected.Y)
	v.SetDefault("detection.position.expected.z", d.Detection.Position.Expected.Z)
	v.SetDefault("detection.position.warning_tolerance", d.Detection.Position.WarningTolerance)
	v.SetDefault("detection.position.critical_tolerance", d.Detection.Position.CriticalTolerance)

	v.SetDefault("alerts.history_size", d.Alerts.HistorySize)
	v.SetDefault("alerts.log_file", d.Alerts.LogFile)
	v.SetDefault("alerts.max_size_mb", d.Alerts.MaxSizeMB)
	v.SetDefault("alerts.max_backups", d.Alerts.MaxBackups)
	v.SetDefault("alerts.max_age_days", d.Alerts.MaxAgeDays)
	v.SetDefault("alerts.compress", d.Alerts.Compress)

	v.SetDefault("kg.maintenance_path", d.KG.MaintenancePath)
	v.SetDefault("kg.normal_path", d.KG.NormalPath)
	v.SetDefault("kg.cyberattack_path", d.KG.CyberattackPath)

	v.SetDefault("stream.default_machine_id", d.Stream.DefaultMachineID)
	v.SetDefault("stream.max_line_bytes", d.Stream.MaxLineBytes)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.jwt_expiration", d.Auth.JWTExpiration)
	v.SetDefault("auth.api_keys", d.Auth.APIKeys)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.alert_channel", d.Redis.AlertChannel)

	v.SetDefault("kafka.enabled", d.Kafka.Enabled)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("kafka.telemetry_topic", d.Kafka.TelemetryTopic)
	v.SetDefault("kafka.alert_topic", d.Kafka.AlertTopic)
	v.SetDefault("kafka.record_topic", d.Kafka.RecordTopic)
}
