// internal/alerting/alerter.go
package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/metrics"
	"digiforge-analytics/internal/storage"
)

// Sink receives every emitted alert. Failures are logged and never stop processing.
type Sink interface {
	Name() string
	Send(ctx context.Context, alert *data.Alert) error
}

// Aggregator turns the anomalies of one record into a single alert, keeps it in
// the bounded history and forwards it to the sinks.
type Aggregator struct {
	history *storage.AlertHistory
	sinks   []Sink
	logger  *zap.Logger
	now     func() time.Time
}

func NewAggregator(history *storage.AlertHistory, logger *zap.Logger, sinks ...Sink) *Aggregator {
	return &Aggregator{
		history: history,
		sinks:   sinks,
		logger:  logger,
		now:     time.Now,
	}
}

// AlertType is the sole anomaly's type, or MULTIPLE_ANOMALIES for more than one.
func AlertType(anomalies []data.Anomaly) string {
	if len(anomalies) == 1 {
		return anomalies[0].Type
	}
	return data.MultipleAnomalies
}

// Aggregate emits one alert for anomalies. Callers filter empty lists; an empty
// list is ignored and yields nil.
func (a *Aggregator) Aggregate(ctx context.Context, machineID string, cycleID *int64, anomalies []data.Anomaly) *data.Alert {
	if len(anomalies) == 0 {
		return nil
	}

	alert := &data.Alert{
		ID:        uuid.NewString(),
		AlertType: AlertType(anomalies),
		MachineID: machineID,
		Anomalies: append([]data.Anomaly(nil), anomalies...),
		CycleID:   cycleID,
		Timestamp: data.EpochSeconds(a.now()),
	}

	size := a.history.Add(alert)
	metrics.AlertHistorySize.Set(float64(size))
	metrics.AlertsEmitted.WithLabelValues(alert.AlertType).Inc()

	a.logger.Info("alert emitted",
		zap.String("alert_id", alert.ID),
		zap.String("alert_type", alert.AlertType),
		zap.String("machine_id", machineID),
		zap.Int("anomalies", len(anomalies)))

	for _, sink := range a.sinks {
		if err := sink.Send(ctx, alert); err != nil {
			metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			a.logger.Warn("alert sink failed",
				zap.String("sink", sink.Name()),
				zap.String("alert_id", alert.ID),
				zap.Error(err))
		}
	}
	return alert
}
