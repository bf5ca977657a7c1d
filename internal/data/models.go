// internal/data/models.go
package data

import (
	"encoding/json"
	"time"
)

// Severity of a single anomaly. CRITICAL outranks WARNING.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Inspection results reported by the vision QC station.
const (
	InspectionPass = "PASS"
	InspectionFail = "FAIL"
)

// MultipleAnomalies is the alert type used when one record produced more than one anomaly.
const MultipleAnomalies = "MULTIPLE_ANOMALIES"

// Position is a position encoder reading in mm.
type Position struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
}

// TelemetryRecord is one machine cycle as delivered by a transport.
// Nil metric fields mean the reading was absent and its detector is skipped.
type TelemetryRecord struct {
	MachineID   string    `json:"machine_id"`
	CycleID     *int64    `json:"cycle_id,omitempty"`
	Timestamp   float64   `json:"timestamp"`
	SpindleTemp *float64  `json:"spindle_temp,omitempty"`
	Vibration   *float64  `json:"vibration,omitempty"`
	PowerDraw   *float64  `json:"power_draw,omitempty"`
	Position    *Position `json:"position,omitempty"`
	Inspection  *string   `json:"inspection,omitempty"`
	ToolID      *int64    `json:"tool_id,omitempty"`

	// Fields holds the decoded payload so classified output keeps every input key.
	Fields          map[string]interface{} `json:"-"`
	OriginalPayload []byte                 `json:"-"`
}

// Anomaly is a single detector finding.
type Anomaly struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
}

// Alert aggregates every anomaly found for one record.
type Alert struct {
	ID        string    `json:"alert_id"`
	AlertType string    `json:"alert_type"`
	MachineID string    `json:"machine_id"`
	Anomalies []Anomaly `json:"anomalies"`
	CycleID   *int64    `json:"cycle_id"`
	Timestamp float64   `json:"timestamp"`
}

// Triple is a knowledge-graph relationship resolved from a classification label.
type Triple struct {
	Relationship string `json:"relationship"`
	TargetEntity string `json:"target_entity"`
}

// ClassifiedRecord is a record augmented with its KG label and resolved triple.
type ClassifiedRecord struct {
	Record *TelemetryRecord
	Label  string
	Triple *Triple
}

// MarshalJSON emits the original payload fields plus kg_node and kg_triple.
func (c ClassifiedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Record.Fields)+4)
	for k, v := range c.Record.Fields {
		out[k] = v
	}
	c.Record.addTypedFields(out)
	if c.Record.MachineID != "" {
		out["machine_id"] = c.Record.MachineID
	}
	out["timestamp"] = c.Record.Timestamp
	out["kg_node"] = c.Label
	if c.Triple != nil {
		out["kg_triple"] = c.Triple
	} else {
		out["kg_triple"] = nil
	}
	return json.Marshal(out)
}

// addTypedFields sets the decoded readings under their wire keys unless the
// payload already carried that key. Records built in code have no Fields.
func (r *TelemetryRecord) addTypedFields(out map[string]interface{}) {
	set := func(key string, present bool, v interface{}) {
		if _, ok := out[key]; !ok && present {
			out[key] = v
		}
	}
	set("cycle_id", r.CycleID != nil, r.CycleID)
	set("spindle_temp", r.SpindleTemp != nil, r.SpindleTemp)
	set("vibration", r.Vibration != nil, r.Vibration)
	set("power_draw", r.PowerDraw != nil, r.PowerDraw)
	set("position", r.Position != nil, r.Position)
	set("inspection", r.Inspection != nil, r.Inspection)
	set("tool_id", r.ToolID != nil, r.ToolID)
}

// EpochSeconds converts t to float seconds since the epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
