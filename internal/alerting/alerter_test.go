package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/storage"
)

type recordingSink struct {
	mu     sync.Mutex
	alerts []*data.Alert
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, alert *data.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return s.err
}

var (
	highTemp  = data.Anomaly{Type: "HIGH_TEMP", Severity: data.SeverityCritical}
	highPower = data.Anomaly{Type: "HIGH_POWER_DRAW", Severity: data.SeverityCritical}
)

func TestAlertType(t *testing.T) {
	assert.Equal(t, "HIGH_TEMP", AlertType([]data.Anomaly{highTemp}))
	assert.Equal(t, data.MultipleAnomalies, AlertType([]data.Anomaly{highTemp, highPower}))
}

func TestAggregate(t *testing.T) {
	sink := &recordingSink{}
	history := storage.NewAlertHistory(50)
	agg := NewAggregator(history, zap.NewNop(), sink)
	agg.now = func() time.Time { return time.Unix(1700000000, 0) }

	cycle := int64(12)
	alert := agg.Aggregate(context.Background(), "CNC1", &cycle, []data.Anomaly{highTemp, highPower})
	require.NotNil(t, alert)

	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, data.MultipleAnomalies, alert.AlertType)
	assert.Equal(t, "CNC1", alert.MachineID)
	assert.Equal(t, []data.Anomaly{highTemp, highPower}, alert.Anomalies)
	assert.Equal(t, int64(12), *alert.CycleID)
	assert.Equal(t, 1700000000.0, alert.Timestamp)

	assert.Equal(t, []*data.Alert{alert}, sink.alerts)
	assert.Equal(t, []*data.Alert{alert}, history.GetAll())
}

func TestAggregateSingleAnomaly(t *testing.T) {
	agg := NewAggregator(storage.NewAlertHistory(50), zap.NewNop())
	alert := agg.Aggregate(context.Background(), "CNC1", nil, []data.Anomaly{highPower})
	assert.Equal(t, "HIGH_POWER_DRAW", alert.AlertType)
	assert.Nil(t, alert.CycleID)
}

func TestAggregateIgnoresEmptyList(t *testing.T) {
	sink := &recordingSink{}
	history := storage.NewAlertHistory(50)
	agg := NewAggregator(history, zap.NewNop(), sink)
	assert.Nil(t, agg.Aggregate(context.Background(), "CNC1", nil, nil))
	assert.Empty(t, sink.alerts)
	assert.Empty(t, history.GetAll())
}

func TestAggregateHistoryIsBounded(t *testing.T) {
	history := storage.NewAlertHistory(50)
	agg := NewAggregator(history, zap.NewNop())
	first := agg.Aggregate(context.Background(), "CNC1", nil, []data.Anomaly{highTemp})
	for i := 0; i < 50; i++ {
		agg.Aggregate(context.Background(), "CNC1", nil, []data.Anomaly{highPower})
	}
	kept := history.GetAll()
	assert.Len(t, kept, 50)
	assert.NotContains(t, kept, first)
}

func TestSinkFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	failing := &recordingSink{err: errors.New("disk full")}
	healthy := &recordingSink{}
	history := storage.NewAlertHistory(50)
	agg := NewAggregator(history, zap.New(core), failing, healthy)

	alert := agg.Aggregate(context.Background(), "CNC1", nil, []data.Anomaly{highTemp})
	require.NotNil(t, alert)
	assert.Len(t, healthy.alerts, 1)
	assert.Equal(t, 1, history.Len())

	entries := logs.FilterMessage("alert sink failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "recording", entries[0].ContextMap()["sink"])
}

func TestAggregateCopiesAnomalies(t *testing.T) {
	agg := NewAggregator(storage.NewAlertHistory(50), zap.NewNop())
	in := []data.Anomaly{highTemp}
	alert := agg.Aggregate(context.Background(), "CNC1", nil, in)
	in[0] = highPower
	assert.Equal(t, highTemp, alert.Anomalies[0])
}
