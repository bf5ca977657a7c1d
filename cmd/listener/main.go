// Command listener reads one JSON telemetry record per line from stdin and
// prints every classified record to stdout. Alerts go to the alert log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"digiforge-analytics/internal/alerting"
	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/engine"
	"digiforge-analytics/internal/logging"
	"digiforge-analytics/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	machine := flag.String("machine", "", "Default machine id for records without one (overrides stream.default_machine_id)")
	flag.Parse()

	if err := run(*configPath, *machine); err != nil {
		fmt.Fprintf(os.Stderr, "listener: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, machine string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if machine != "" {
		cfg.Stream.DefaultMachineID = machine
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	alertSinks := []alerting.Sink{alerting.NewWriterSink("stdout", os.Stdout)}
	if cfg.Alerts.LogFile != "" {
		fileSink := alerting.NewFileSink(alerting.FileConfig{
			Path:       cfg.Alerts.LogFile,
			MaxSizeMB:  cfg.Alerts.MaxSizeMB,
			MaxBackups: cfg.Alerts.MaxBackups,
			MaxAgeDays: cfg.Alerts.MaxAgeDays,
			Compress:   cfg.Alerts.Compress,
		})
		defer fileSink.Close()
		alertSinks = append(alertSinks, fileSink)
	}

	components := engine.Build(cfg, logger, alertSinks, engine.NewWriterSink("stdout", os.Stdout))
	listener := stream.NewLineListener(components.Engine, cfg.Stream.DefaultMachineID, cfg.Stream.MaxLineBytes, logger.Named("stream"))

	logger.Info("listening for telemetry on stdin", zap.String("default_machine", cfg.Stream.DefaultMachineID))
	err = listener.Run(ctx, os.Stdin)

	st := listener.Stats()
	logger.Info("stdin closed",
		zap.Int64("records", st.Records.Load()),
		zap.Int64("malformed", st.Malformed.Load()),
		zap.Int64("oversized", st.Oversized.Load()),
		zap.Int64("alerts", st.Alerts.Load()))
	return err
}
