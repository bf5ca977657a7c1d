// internal/anomaly/detector.go
package anomaly

import (
	"math"

	"go.uber.org/zap"

	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/metrics"
	"digiforge-analytics/internal/stats"
)

// Anomaly type tags.
const (
	HighTemp                = "HIGH_TEMP"
	TempZSpike              = "TEMP_Z_SPIKE"
	HighVibration           = "HIGH_VIBRATION"
	VibrationZSpike         = "VIBRATION_Z_SPIKE"
	HighPowerDraw           = "HIGH_POWER_DRAW"
	PowerZSpike             = "POWER_Z_SPIKE"
	MajorPositionDrift      = "MAJOR_POSITION_DRIFT"
	MinorPositionDrift      = "MINOR_POSITION_DRIFT"
	RepeatedInspectionFails = "REPEATED_INSPECTION_FAILS"
)

// Rolling window metric names.
const (
	MetricTemp      = "temp"
	MetricVibration = "vibration"
	MetricPower     = "power"
)

// thresholdDetector checks a reading against CRITICAL then WARNING limits and
// falls back to the rolling z-score when neither is exceeded.
type thresholdDetector struct {
	metric    string
	highType  string
	spikeType string
	limits    config.Thresholds
}

func (t thresholdDetector) check(store *stats.Store, machineID string, value float64) (*data.Anomaly, stats.Result) {
	switch {
	case value > t.limits.Crit:
		return &data.Anomaly{Type: t.highType, Severity: data.SeverityCritical}, stats.Result{}
	case value > t.limits.Warn:
		return &data.Anomaly{Type: t.highType, Severity: data.SeverityWarning}, stats.Result{}
	}
	res := store.Observe(machineID, t.metric, value)
	if res.Anomalous {
		return &data.Anomaly{Type: t.spikeType, Severity: data.SeverityWarning}, res
	}
	return nil, res
}

// Detector runs every metric detector for a record against a shared stats store.
type Detector struct {
	cfg    config.DetectionConfig
	store  *stats.Store
	logger *zap.Logger

	temperature thresholdDetector
	vibration   thresholdDetector
	power       thresholdDetector
}

func NewDetector(cfg config.DetectionConfig, store *stats.Store, logger *zap.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		store:  store,
		logger: logger,
		temperature: thresholdDetector{
			metric: MetricTemp, highType: HighTemp, spikeType: TempZSpike, limits: cfg.Temperature,
		},
		vibration: thresholdDetector{
			metric: MetricVibration, highType: HighVibration, spikeType: VibrationZSpike, limits: cfg.Vibration,
		},
		power: thresholdDetector{
			metric: MetricPower, highType: HighPowerDraw, spikeType: PowerZSpike, limits: cfg.Power,
		},
	}
}

func (d *Detector) Temperature(machineID string, temp float64) *data.Anomaly {
	return d.threshold(d.temperature, machineID, temp)
}

func (d *Detector) Vibration(machineID string, vib float64) *data.Anomaly {
	return d.threshold(d.vibration, machineID, vib)
}

func (d *Detector) Power(machineID string, power float64) *data.Anomaly {
	return d.threshold(d.power, machineID, power)
}

func (d *Detector) threshold(t thresholdDetector, machineID string, value float64) *data.Anomaly {
	a, res := t.check(d.store, machineID, value)
	if res.Anomalous {
		d.logger.Debug("z-score spike",
			zap.String("machine_id", machineID),
			zap.String("metric", t.metric),
			zap.Float64("value", value),
			zap.Float64("mean", res.Mean),
			zap.Float64("z", res.Z))
	}
	return a
}

// Position flags drift of the largest axis deviation from the nominal position.
// A deviation equal to a tolerance is not flagged.
func (d *Detector) Position(pos data.Position) *data.Anomaly {
	maxDev := MaxDeviation(pos, d.cfg.Position.Expected)
	switch {
	case maxDev > d.cfg.Position.CriticalTolerance:
		return &data.Anomaly{Type: MajorPositionDrift, Severity: data.SeverityCritical}
	case maxDev > d.cfg.Position.WarningTolerance:
		return &data.Anomaly{Type: MinorPositionDrift, Severity: data.SeverityWarning}
	}
	return nil
}

// Inspection records the outcome and flags the machine once its recent window
// holds at least the configured number of failures.
func (d *Detector) Inspection(machineID, result string) *data.Anomaly {
	fails := d.store.RecordInspection(machineID, result == data.InspectionFail)
	if fails >= d.cfg.InspectionFailLimit {
		return &data.Anomaly{Type: RepeatedInspectionFails, Severity: data.SeverityCritical}
	}
	return nil
}

// Check runs the detectors for every metric present in rec, in a fixed order:
// temperature, vibration, power, position, inspection.
func (d *Detector) Check(rec *data.TelemetryRecord) []data.Anomaly {
	var anomalies []data.Anomaly
	add := func(a *data.Anomaly) {
		if a == nil {
			return
		}
		anomalies = append(anomalies, *a)
		metrics.AnomaliesDetected.WithLabelValues(a.Type, string(a.Severity)).Inc()
	}

	if rec.SpindleTemp != nil {
		add(d.Temperature(rec.MachineID, *rec.SpindleTemp))
	}
	if rec.Vibration != nil {
		add(d.Vibration(rec.MachineID, *rec.Vibration))
	}
	if rec.PowerDraw != nil {
		add(d.Power(rec.MachineID, *rec.PowerDraw))
	}
	if rec.Position != nil {
		add(d.Position(*rec.Position))
	}
	if rec.Inspection != nil {
		add(d.Inspection(rec.MachineID, *rec.Inspection))
	}
	return anomalies
}

// MaxDeviation returns the largest absolute per-axis distance between pos and expected.
func MaxDeviation(pos data.Position, expected config.Axes) float64 {
	return math.Max(
		math.Abs(pos.X-expected.X),
		math.Max(math.Abs(pos.Y-expected.Y), math.Abs(pos.Z-expected.Z)),
	)
}
