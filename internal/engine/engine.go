// Package engine runs one telemetry record through detection, alert
// aggregation and KG classification.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"digiforge-analytics/internal/alerting"
	"digiforge-analytics/internal/anomaly"
	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/kg"
	"digiforge-analytics/internal/metrics"
)

// Record outcomes reported in the records-processed metric.
const (
	statusOK        = "ok"
	statusAlert     = "alert"
	statusMalformed = "malformed"
	statusDropped   = "dropped"
)

// RecordSink receives every classified record.
type RecordSink interface {
	Name() string
	Emit(ctx context.Context, rec *data.ClassifiedRecord) error
}

// Result is what processing one record produced. Alert is nil when no
// detector fired.
type Result struct {
	Record     *data.TelemetryRecord
	Anomalies  []data.Anomaly
	Alert      *data.Alert
	Classified *data.ClassifiedRecord
}

type Engine struct {
	detector   *anomaly.Detector
	aggregator *alerting.Aggregator
	classifier *kg.Classifier
	tables     *kg.Tables
	sinks      []RecordSink
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	detector *anomaly.Detector,
	aggregator *alerting.Aggregator,
	classifier *kg.Classifier,
	tables *kg.Tables,
	logger *zap.Logger,
	sinks ...RecordSink,
) *Engine {
	return &Engine{
		detector:   detector,
		aggregator: aggregator,
		classifier: classifier,
		tables:     tables,
		sinks:      sinks,
		logger:     logger,
		now:        time.Now,
	}
}

type processOptions struct {
	source         string
	defaultMachine string
}

type ProcessOption func(*processOptions)

// WithSource names the transport in logs and metrics.
func WithSource(source string) ProcessOption {
	return func(o *processOptions) { o.source = source }
}

// WithDefaultMachine substitutes id for a missing machine identifier instead of
// dropping the record.
func WithDefaultMachine(id string) ProcessOption {
	return func(o *processOptions) { o.defaultMachine = id }
}

func buildOptions(opts []ProcessOption) processOptions {
	o := processOptions{source: "direct"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProcessRecord parses raw and processes it. It returns an error wrapping
// data.ErrMalformedRecord or data.ErrMissingMachineID when the record was not
// processed; no engine state is touched in that case.
func (e *Engine) ProcessRecord(ctx context.Context, raw []byte, opts ...ProcessOption) (*Result, error) {
	o := buildOptions(opts)
	log := e.logger.With(zap.String("source", o.source))

	rec, invalid, err := data.Parse(raw, e.now())
	if err != nil {
		metrics.RecordsProcessed.WithLabelValues(o.source, statusMalformed).Inc()
		log.Warn("malformed record", zap.ByteString("payload", raw), zap.Error(err))
		return nil, err
	}
	if len(invalid) > 0 {
		log.Warn("ignoring fields with unexpected types",
			zap.String("machine_id", rec.MachineID),
			zap.Strings("fields", invalid))
	}

	if rec.MachineID == "" {
		if o.defaultMachine == "" {
			metrics.RecordsProcessed.WithLabelValues(o.source, statusDropped).Inc()
			log.Warn("dropping record without machine id", zap.ByteString("payload", raw))
			return nil, fmt.Errorf("process record: %w", data.ErrMissingMachineID)
		}
		rec.MachineID = o.defaultMachine
	}

	return e.process(ctx, rec, o, log), nil
}

// Process runs a record built in code. rec.MachineID must be set; a zero
// timestamp is set to the current time.
func (e *Engine) Process(ctx context.Context, rec *data.TelemetryRecord, opts ...ProcessOption) *Result {
	o := buildOptions(opts)
	if rec.Timestamp == 0 {
		rec.Timestamp = data.EpochSeconds(e.now())
	}
	return e.process(ctx, rec, o, e.logger.With(zap.String("source", o.source)))
}

func (e *Engine) process(ctx context.Context, rec *data.TelemetryRecord, o processOptions, log *zap.Logger) *Result {
	start := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	res := &Result{Record: rec}
	res.Anomalies = e.detector.Check(rec)
	if len(res.Anomalies) > 0 {
		res.Alert = e.aggregator.Aggregate(ctx, rec.MachineID, rec.CycleID, res.Anomalies)
	}

	res.Classified = e.classifier.ClassifyAndResolve(rec, e.tables)
	log.Debug("record classified",
		zap.String("machine_id", rec.MachineID),
		zap.String("kg_node", res.Classified.Label),
		zap.Bool("resolved", res.Classified.Triple != nil))

	for _, sink := range e.sinks {
		if err := sink.Emit(ctx, res.Classified); err != nil {
			metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			log.Warn("record sink failed", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}

	status := statusOK
	if res.Alert != nil {
		status = statusAlert
	}
	metrics.RecordsProcessed.WithLabelValues(o.source, status).Inc()
	return res
}
