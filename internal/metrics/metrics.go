package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analytics engine metrics
var (
	// Ingestion
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digiforge_records_processed_total",
			Help: "Total number of telemetry records handled by source and outcome",
		},
		[]string{"source", "status"}, // status: ok, alert, malformed, dropped
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digiforge_record_processing_duration_seconds",
			Help:    "Time taken to detect and classify one record",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10us to ~20ms
		},
	)

	// Detection
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digiforge_anomalies_detected_total",
			Help: "Total number of anomalies detected by type and severity",
		},
		[]string{"type", "severity"},
	)

	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digiforge_alerts_emitted_total",
			Help: "Total number of aggregated alerts emitted",
		},
		[]string{"alert_type"},
	)

	AlertHistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digiforge_alert_history_size",
			Help: "Number of alerts currently retained in memory",
		},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digiforge_sink_errors_total",
			Help: "Total number of failed deliveries to an alert or record sink",
		},
		[]string{"sink"},
	)

	// Classification
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digiforge_classifications_total",
			Help: "Total number of classified records by KG category",
		},
		[]string{"category", "resolved"},
	)

	// Live feed
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digiforge_websocket_clients",
			Help: "Number of connected dashboard clients",
		},
	)
)
