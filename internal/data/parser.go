// internal/data/parser.go
package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

var (
	// ErrMalformedRecord is returned when the payload is not a JSON object.
	ErrMalformedRecord = errors.New("malformed telemetry record")
	// ErrMissingMachineID is returned when a record carries no machine identifier.
	ErrMissingMachineID = errors.New("telemetry record missing machine id")
)

// Parse unmarshals a raw payload into a TelemetryRecord.
// Fields that are present but carry the wrong type are left nil and listed in the
// returned invalid slice; only a payload that is not a JSON object is an error.
func Parse(rawData []byte, now time.Time) (*TelemetryRecord, []string, error) {
	var genericPayload map[string]interface{}
	if err := json.Unmarshal(rawData, &genericPayload); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if genericPayload == nil {
		return nil, nil, fmt.Errorf("%w: payload is null", ErrMalformedRecord)
	}

	rec := &TelemetryRecord{
		Fields:          genericPayload,
		OriginalPayload: rawData,
	}
	var invalid []string

	if id, ok := genericPayload["machine_id"].(string); ok && id != "" {
		rec.MachineID = id
	} else if id, ok := genericPayload["machine"].(string); ok {
		rec.MachineID = id
	}

	if v, present := genericPayload["cycle_id"]; present && v != nil {
		if n, ok := integer(v); ok {
			rec.CycleID = &n
		} else {
			invalid = append(invalid, "cycle_id")
		}
	}

	rec.Timestamp = EpochSeconds(now)
	if v, present := genericPayload["timestamp"]; present {
		if ts, ok := finite(v); ok {
			rec.Timestamp = ts
		} else {
			invalid = append(invalid, "timestamp")
		}
	}

	for key, dst := range map[string]**float64{
		"spindle_temp": &rec.SpindleTemp,
		"vibration":    &rec.Vibration,
		"power_draw":   &rec.PowerDraw,
	} {
		v, present := genericPayload[key]
		if !present {
			continue
		}
		if f, ok := finite(v); ok {
			*dst = &f
		} else {
			invalid = append(invalid, key)
		}
	}

	if v, present := genericPayload["position"]; present {
		if pos, ok := position(v); ok {
			rec.Position = pos
		} else {
			invalid = append(invalid, "position")
		}
	}

	// Only an exact "FAIL" counts as a failure; any other string is a pass.
	if v, present := genericPayload["inspection"]; present {
		if s, ok := v.(string); ok {
			rec.Inspection = &s
		} else {
			invalid = append(invalid, "inspection")
		}
	}

	if v, present := genericPayload["tool_id"]; present && v != nil {
		if n, ok := integer(v); ok {
			rec.ToolID = &n
		} else {
			invalid = append(invalid, "tool_id")
		}
	}

	sort.Strings(invalid)
	return rec, invalid, nil
}

func finite(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func integer(v interface{}) (int64, bool) {
	f, ok := finite(v)
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func position(v interface{}) (*Position, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	var axes [3]float64
	for i, axis := range []string{"X", "Y", "Z"} {
		raw, present := m[axis]
		if !present {
			raw, present = m[strings.ToLower(axis)]
		}
		if !present {
			return nil, false
		}
		f, ok := finite(raw)
		if !ok {
			return nil, false
		}
		axes[i] = f
	}
	return &Position{X: axes[0], Y: axes[1], Z: axes[2]}, true
}
