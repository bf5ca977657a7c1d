package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/stats"
)

func newTestDetector() (*Detector, *stats.Store) {
	cfg := config.DefaultConfig().Detection
	store := stats.NewStore(cfg.StatsConfig())
	return NewDetector(cfg, store, zap.NewNop()), store
}

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func TestThresholdSeverities(t *testing.T) {
	d, _ := newTestDetector()

	tests := []struct {
		name  string
		check func(string, float64) *data.Anomaly
		value float64
		want  *data.Anomaly
	}{
		{"temp critical", d.Temperature, 90.01, &data.Anomaly{Type: HighTemp, Severity: data.SeverityCritical}},
		{"temp at crit is warning", d.Temperature, 90, &data.Anomaly{Type: HighTemp, Severity: data.SeverityWarning}},
		{"temp warning", d.Temperature, 75.5, &data.Anomaly{Type: HighTemp, Severity: data.SeverityWarning}},
		{"temp at warn is clear", d.Temperature, 75, nil},
		{"vibration critical", d.Vibration, 3.6, &data.Anomaly{Type: HighVibration, Severity: data.SeverityCritical}},
		{"vibration warning", d.Vibration, 2.1, &data.Anomaly{Type: HighVibration, Severity: data.SeverityWarning}},
		{"vibration clear", d.Vibration, 1.0, nil},
		{"power critical", d.Power, 410, &data.Anomaly{Type: HighPowerDraw, Severity: data.SeverityCritical}},
		{"power warning", d.Power, 399, &data.Anomaly{Type: HighPowerDraw, Severity: data.SeverityWarning}},
		{"power clear", d.Power, 300, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check("CNC1", tt.value))
		})
	}
}

func TestAboveCriticalIsAlwaysCritical(t *testing.T) {
	d, _ := newTestDetector()
	for _, v := range []float64{90.0001, 95, 1e9} {
		assert.Equal(t, data.SeverityCritical, d.Temperature("CNC1", v).Severity)
	}
	for _, v := range []float64{3.5001, 10} {
		assert.Equal(t, data.SeverityCritical, d.Vibration("CNC1", v).Severity)
	}
	for _, v := range []float64{400.1, 5000} {
		assert.Equal(t, data.SeverityCritical, d.Power("CNC1", v).Severity)
	}
}

func TestThresholdBreachesSkipRollingWindow(t *testing.T) {
	d, store := newTestDetector()
	d.Temperature("CNC1", 95)
	d.Temperature("CNC1", 80)
	assert.Empty(t, store.Readings("CNC1", MetricTemp))

	d.Temperature("CNC1", 60)
	assert.Equal(t, []float64{60}, store.Readings("CNC1", MetricTemp))
}

func TestZSpike(t *testing.T) {
	d, _ := newTestDetector()
	for i := 0; i < 9; i++ {
		require.Nil(t, d.Temperature("CNC1", 40))
	}
	assert.Equal(t, &data.Anomaly{Type: TempZSpike, Severity: data.SeverityWarning}, d.Temperature("CNC1", 70))

	for i := 0; i < 9; i++ {
		require.Nil(t, d.Vibration("CNC1", 0.5))
	}
	assert.Equal(t, &data.Anomaly{Type: VibrationZSpike, Severity: data.SeverityWarning}, d.Vibration("CNC1", 1.9))

	for i := 0; i < 9; i++ {
		require.Nil(t, d.Power("CNC1", 250))
	}
	assert.Equal(t, &data.Anomaly{Type: PowerZSpike, Severity: data.SeverityWarning}, d.Power("CNC1", 340))
}

func TestPositionDrift(t *testing.T) {
	d, _ := newTestDetector()

	tests := []struct {
		name string
		pos  data.Position
		want *data.Anomaly
	}{
		{"nominal", data.Position{X: 50, Y: 30, Z: 10}, nil},
		{"exactly warning tolerance", data.Position{X: 55, Y: 30, Z: 10}, nil},
		{"just over warning", data.Position{X: 50, Y: 24.9, Z: 10}, &data.Anomaly{Type: MinorPositionDrift, Severity: data.SeverityWarning}},
		{"exactly critical tolerance", data.Position{X: 50, Y: 30, Z: 20}, &data.Anomaly{Type: MinorPositionDrift, Severity: data.SeverityWarning}},
		{"just over critical", data.Position{X: 39.9, Y: 30, Z: 10}, &data.Anomaly{Type: MajorPositionDrift, Severity: data.SeverityCritical}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Position(tt.pos))
		})
	}
}

func TestMaxDeviation(t *testing.T) {
	assert.Equal(t, 7.0, MaxDeviation(data.Position{X: 53, Y: 23, Z: 11}, config.Axes{X: 50, Y: 30, Z: 10}))
}

func TestInspectionFailures(t *testing.T) {
	d, _ := newTestDetector()
	var last *data.Anomaly
	for _, r := range []string{"FAIL", "PASS", "FAIL", "PASS", "FAIL"} {
		last = d.Inspection("CNC1", r)
	}
	assert.Equal(t, &data.Anomaly{Type: RepeatedInspectionFails, Severity: data.SeverityCritical}, last)

	for _, r := range []string{"FAIL", "FAIL", "PASS", "PASS", "PASS"} {
		last = d.Inspection("CNC2", r)
	}
	assert.Nil(t, last)
}

func TestInspectionOnlyExactFailCounts(t *testing.T) {
	d, _ := newTestDetector()
	var last *data.Anomaly
	for _, r := range []string{"FAIL", "fail", "FAIL", "UNKNOWN", "Fail"} {
		last = d.Inspection("CNC1", r)
	}
	assert.Nil(t, last)

	// window is now [fail FAIL UNKNOWN Fail FAIL]: the non-FAIL results still hold slots
	assert.Nil(t, d.Inspection("CNC1", "FAIL"))
	last = d.Inspection("CNC1", "FAIL")
	assert.Equal(t, &data.Anomaly{Type: RepeatedInspectionFails, Severity: data.SeverityCritical}, last)
}

func TestCheckOrderAndSkipping(t *testing.T) {
	d, _ := newTestDetector()

	rec := &data.TelemetryRecord{
		MachineID:   "CNC1",
		SpindleTemp: f(95),
		Vibration:   f(2.5),
		PowerDraw:   f(410),
		Position:    &data.Position{X: 70, Y: 30, Z: 10},
	}
	assert.Equal(t, []data.Anomaly{
		{Type: HighTemp, Severity: data.SeverityCritical},
		{Type: HighVibration, Severity: data.SeverityWarning},
		{Type: HighPowerDraw, Severity: data.SeverityCritical},
		{Type: MajorPositionDrift, Severity: data.SeverityCritical},
	}, d.Check(rec))

	assert.Empty(t, d.Check(&data.TelemetryRecord{MachineID: "CNC1"}))
	assert.Empty(t, d.Check(&data.TelemetryRecord{MachineID: "CNC1", Inspection: s("FAIL")}))
}
