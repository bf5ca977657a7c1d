// cmd/analytics/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"digiforge-analytics/internal/alerting"
	"digiforge-analytics/internal/api"
	"digiforge-analytics/internal/auth"
	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/engine"
	"digiforge-analytics/internal/logging"
	"digiforge-analytics/internal/stream"
	"digiforge-analytics/internal/websocket"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	hashPassword := flag.String("hash-password", "", "Print a bcrypt hash for auth.users and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "analytics: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	if cfg.ConfigFile == "" {
		logger.Info("no config file found, using defaults and environment", zap.String("path", configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Sinks ---
	hub := websocket.NewHub(logger.Named("websocket"))
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	alertSinks := []alerting.Sink{hub}
	recordSinks := []engine.RecordSink{hub}
	shutdown := &shutdownSequence{logger: logger}

	if cfg.Alerts.LogFile != "" {
		fileSink := alerting.NewFileSink(alerting.FileConfig{
			Path:       cfg.Alerts.LogFile,
			MaxSizeMB:  cfg.Alerts.MaxSizeMB,
			MaxBackups: cfg.Alerts.MaxBackups,
			MaxAgeDays: cfg.Alerts.MaxAgeDays,
			Compress:   cfg.Alerts.Compress,
		})
		alertSinks = append(alertSinks, fileSink)
		shutdown.addOutput("file", fileSink.Close)
	}

	if cfg.Redis.Enabled {
		client, err := alerting.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis alert sink disabled", zap.Error(err))
		} else {
			redisSink := alerting.NewRedisSink(client, cfg.Redis.AlertChannel, logger.Named("redis"))
			alertSinks = append(alertSinks, redisSink)
			shutdown.addOutput("redis", redisSink.Close)
			shutdown.addOutput("redis_client", client.Close)
		}
	}

	if cfg.Kafka.Enabled && (cfg.Kafka.AlertTopic != "" || cfg.Kafka.RecordTopic != "") {
		producer, err := alerting.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Warn("kafka sink disabled", zap.Error(err))
		} else {
			kafkaSink := alerting.NewKafkaSink(producer, cfg.Kafka.AlertTopic, cfg.Kafka.RecordTopic, logger.Named("kafka"))
			alertSinks = append(alertSinks, kafkaSink)
			recordSinks = append(recordSinks, kafkaSink)
			shutdown.addOutput("kafka", kafkaSink.Close)
		}
	}

	// --- Engine ---
	components := engine.Build(cfg, logger, alertSinks, recordSinks...)

	// --- Kafka ingestion ---
	if cfg.Kafka.Enabled && cfg.Kafka.TelemetryTopic != "" {
		group, err := stream.NewKafkaConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			logger.Warn("kafka ingestion disabled", zap.Error(err))
		} else {
			listener := stream.NewKafkaListener(group, []string{cfg.Kafka.TelemetryTopic},
				components.Engine, cfg.Stream.DefaultMachineID, logger.Named("stream"))
			listenerDone := make(chan struct{})
			go func() {
				defer close(listenerDone)
				if err := listener.Run(ctx); err != nil {
					logger.Error("kafka listener stopped", zap.Error(err))
				}
			}()
			// Run returns once ctx is cancelled and the claims in flight are done.
			shutdown.addInput("kafka", waitThen(listenerDone, listener.Close))
		}
	}

	// --- HTTP server ---
	handler := api.NewAPIHandler(components.Engine, components.History, auth.NewManager(cfg.Auth), logger.Named("api"))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, hub.ServeWS(components.History.GetAll), cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	shutdown.addInput("http", server.Shutdown)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("analytics engine listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	shutdown.run(shutdownCtx)
	<-hubDone

	logger.Info("stopped", zap.Int("alerts_in_history", components.History.Len()))
	return nil
}
