package alerting

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"digiforge-analytics/internal/data"
)

// FileConfig locates and rotates the durable alert log.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FileSink appends every alert as a timestamped JSON line to a rotating file.
type FileSink struct {
	rotator *lumberjack.Logger
	core    zapcore.Core
	now     func() time.Time
}

func NewFileSink(cfg FileConfig) *FileSink {
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	return &FileSink{
		rotator: rotator,
		core:    zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), zapcore.InfoLevel),
		now:     time.Now,
	}
}

func (s *FileSink) Name() string { return "file" }

// Send writes the alert synchronously so write errors reach the caller.
func (s *FileSink) Send(_ context.Context, alert *data.Alert) error {
	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    s.now(),
		Message: "ALERT",
	}
	return s.core.Write(entry, []zapcore.Field{zap.Any("alert", alert)})
}

func (s *FileSink) Close() error {
	return s.rotator.Close()
}
