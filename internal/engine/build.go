package engine

import (
	"go.uber.org/zap"

	"digiforge-analytics/internal/alerting"
	"digiforge-analytics/internal/anomaly"
	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/kg"
	"digiforge-analytics/internal/stats"
	"digiforge-analytics/internal/storage"
)

// Components are the shared parts of a running engine that transports and
// servers also need.
type Components struct {
	Engine  *Engine
	History *storage.AlertHistory
	Tables  *kg.Tables
}

// Build assembles an engine from cfg. KG tables are loaded from disk; missing
// files leave their table empty.
func Build(cfg *config.Config, logger *zap.Logger, alertSinks []alerting.Sink, recordSinks ...RecordSink) *Components {
	store := stats.NewStore(cfg.Detection.StatsConfig())
	history := storage.NewAlertHistory(cfg.Alerts.HistorySize)
	tables := kg.LoadTables(cfg.KG, logger.Named("kg"))

	e := New(
		anomaly.NewDetector(cfg.Detection, store, logger.Named("anomaly")),
		alerting.NewAggregator(history, logger.Named("alerting"), alertSinks...),
		kg.NewClassifier(cfg.Detection.Position),
		tables,
		logger.Named("engine"),
		recordSinks...,
	)
	logger.Info("engine ready",
		zap.Any("kg_nodes", tables.Len()),
		zap.Int("history_capacity", history.Capacity()))
	return &Components{Engine: e, History: history, Tables: tables}
}
