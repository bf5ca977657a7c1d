package kg

import (
	"strconv"

	"digiforge-analytics/internal/anomaly"
	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/metrics"
)

// Rule cut-points of the KG taxonomy, separate from the detector thresholds.
const (
	tempNormalBelow  = 75.0
	tempOverheatMax  = 90.0
	glitchPowerAbove = 350.0
	likelyGlitchFrom = 400.0
	vibNormalBelow   = 1.5
	vibSabotageMax   = 3.5
	powerNormalBelow = 350.0
	powerHighFrom    = 400.0
)

var knownTools = map[int64]bool{1: true, 2: true, 3: true}

// rule returns a label and true when it decides the classification.
type rule struct {
	name  string
	match func(rec *data.TelemetryRecord) (string, bool)
}

// Classifier walks an ordered rule chain; the first rule that matches wins.
//
// The temperature rule covers every reading except exactly 75, so the later
// rules only decide records that lack a spindle temperature (or sit exactly on
// that boundary). The position rule's "good" condition can never hold. Both are
// kept as observed in the production taxonomy until its owner settles them.
type Classifier struct {
	position config.PositionConfig
	rules    []rule
}

func NewClassifier(position config.PositionConfig) *Classifier {
	c := &Classifier{position: position}
	c.rules = []rule{
		{"temperature", c.temperature},
		{"vibration", c.vibration},
		{"power", c.power},
		{"position", c.positionRule},
		{"tool", c.tool},
		{"inspection", c.inspection},
	}
	return c
}

// Classify returns the KG label for rec.
func (c *Classifier) Classify(rec *data.TelemetryRecord) string {
	label, _ := c.classify(rec)
	return label
}

// classify also reports the deciding rule, "fallback" when none matched.
func (c *Classifier) classify(rec *data.TelemetryRecord) (string, string) {
	for _, r := range c.rules {
		if label, ok := r.match(rec); ok {
			return label, r.name
		}
	}
	return OperationNormal, "fallback"
}

func (c *Classifier) temperature(rec *data.TelemetryRecord) (string, bool) {
	if rec.SpindleTemp == nil {
		return "", false
	}
	temp := *rec.SpindleTemp
	switch {
	case temp < tempNormalBelow:
		return TemperatureNormal, true
	case temp > tempNormalBelow && temp <= tempOverheatMax:
		return PossibleOverheating, true
	case temp > tempOverheatMax:
		if rec.PowerDraw != nil {
			power := *rec.PowerDraw
			if power > glitchPowerAbove && power < likelyGlitchFrom {
				return PossibleGlitch, true
			}
			if power >= likelyGlitchFrom {
				return LikelyGlitch, true
			}
		}
		return SpindleOverheat, true
	}
	return "", false
}

func (c *Classifier) vibration(rec *data.TelemetryRecord) (string, bool) {
	if rec.Vibration == nil {
		return "", false
	}
	vib := *rec.Vibration
	switch {
	case vib < vibNormalBelow:
		return VibrationNormal, true
	case vib > vibNormalBelow && vib <= vibSabotageMax:
		return PossibleSabotage, true
	case vib > vibSabotageMax:
		return LikelySabotage, true
	}
	return "", false
}

func (c *Classifier) power(rec *data.TelemetryRecord) (string, bool) {
	if rec.PowerDraw == nil {
		return "", false
	}
	power := *rec.PowerDraw
	switch {
	case power < powerNormalBelow:
		return PowerNormal, true
	case power >= powerNormalBelow && power < powerHighFrom:
		return PossibleElevatedLoad, true
	default:
		return HighPowerConsumption, true
	}
}

func (c *Classifier) positionRule(rec *data.TelemetryRecord) (string, bool) {
	if rec.Position == nil {
		return "", false
	}
	maxDev := anomaly.MaxDeviation(*rec.Position, c.position.Expected)
	warn, crit := c.position.WarningTolerance, c.position.CriticalTolerance
	switch {
	case maxDev < warn && maxDev > crit:
		return PositionEncoderGood, true
	case maxDev > warn && maxDev <= crit:
		return MinorPositionDrift, true
	case maxDev > crit:
		return MajorPositionChange, true
	}
	return "", false
}

func (c *Classifier) tool(rec *data.TelemetryRecord) (string, bool) {
	if rec.ToolID == nil || *rec.ToolID == 0 || knownTools[*rec.ToolID] {
		return "", false
	}
	return ToolChange, true
}

func (c *Classifier) inspection(rec *data.TelemetryRecord) (string, bool) {
	if rec.Inspection == nil || *rec.Inspection != data.InspectionFail {
		return "", false
	}
	return InspectionFail, true
}

// ClassifyAndResolve labels rec and attaches the triple resolved from tables.
func (c *Classifier) ClassifyAndResolve(rec *data.TelemetryRecord, tables *Tables) *data.ClassifiedRecord {
	label := c.Classify(rec)
	out := &data.ClassifiedRecord{Record: rec, Label: label}
	if tables != nil {
		out.Triple = tables.Resolve(label)
	}
	category, _ := CategoryOf(label)
	metrics.Classifications.WithLabelValues(string(category), strconv.FormatBool(out.Triple != nil)).Inc()
	return out
}
