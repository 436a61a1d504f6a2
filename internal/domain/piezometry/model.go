package piezometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeRange names one of the classification windows offered by the map.
type TimeRange string

const (
	RangeLatest        TimeRange = "latest"
	RangeLastYear      TimeRange = "lastYear"
	RangeInitYear      TimeRange = "initYear"
	RangeInitHydroYear TimeRange = "initHydroYear"
	RangeInitControl   TimeRange = "initControl"
)

// Ranges lists the time ranges in the order the UI presents them.
var Ranges = []TimeRange{RangeLatest, RangeLastYear, RangeInitYear, RangeInitHydroYear, RangeInitControl}

// Target selects between single piezometer and aggregated aquifer rules.
type Target string

const (
	TargetPiezometer Target = "piezometer"
	TargetAquifer    Target = "aquifer"
)

// Reading is one water level observation (PNP) of a piezometer variable.
type Reading struct {
	Time         time.Time
	Value        float64
	VariableCode string
	// Type is only set for exported series (real, predicted, simulated).
	Type string
}

// Valid mirrors the upstream truthiness check: both time and value must be set.
func (r Reading) Valid() bool {
	return !r.Time.IsZero() && r.Value != 0 && !math.IsNaN(r.Value)
}

type readingWire struct {
	Time         json.RawMessage `json:"_time"`
	Value        float64         `json:"_value"`
	VariableCode string          `json:"variableCode"`
	Type         string          `json:"type,omitempty"`
}

// MarshalJSON writes the backend wire shape with epoch milliseconds.
func (r Reading) MarshalJSON() ([]byte, error) {
	var ts json.RawMessage = []byte("null")
	if !r.Time.IsZero() {
		ts = []byte(strconv.FormatInt(r.Time.UnixMilli(), 10))
	}
	return json.Marshal(readingWire{Time: ts, Value: r.Value, VariableCode: r.VariableCode, Type: r.Type})
}

// UnmarshalJSON accepts `_time` as epoch milliseconds or an ISO-8601 string.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var wire readingWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	ts, err := parseWireTime(wire.Time)
	if err != nil {
		return err
	}
	*r = Reading{Time: ts, Value: wire.Value, VariableCode: wire.VariableCode, Type: wire.Type}
	return nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

func parseWireTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] != '"' {
		var millis float64
		if err := json.Unmarshal(raw, &millis); err != nil {
			return time.Time{}, fmt.Errorf("decode _time: %w", err)
		}
		if millis == 0 {
			return time.Time{}, nil
		}
		return time.UnixMilli(int64(millis)).UTC(), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return time.Time{}, fmt.Errorf("decode _time: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, nil
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported _time format %q", text)
}

// Series is a list of readings. Backend responses are ordered by time
// descending (index 0 is the most recent), except for "initial" requests
// which list the first reading of each variable before its latest one.
type Series []Reading

// Piezometer is a catalog entry of the corporate piezometer network.
type Piezometer struct {
	Code        string  `json:"COD_CHS"`
	Elevation   float64 `json:"Z"`
	Aquifer     string  `json:"ACUIFERO"`
	WaterBody   string  `json:"MSBT_Nombre"`
	DemCode     string  `json:"COD_MASA_DEM"`
	WaterBodyID string  `json:"CodMasa"`
}

// Aquifer groups the piezometers that sample one groundwater body.
type Aquifer struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PiezometerIDs []string `json:"piezometerIds"`
}

// LegendItem pairs a state color with the text describing its bucket.
type LegendItem struct {
	Color Color  `json:"color"`
	Text  string `json:"text"`
}

// DateRange bounds a custom backend query.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RequestBody is the query payload the backend expects for a time range.
type RequestBody struct {
	Type  string     `json:"type"`
	Range *DateRange `json:"range,omitempty"`
}

// Aggregate is the representative init/end pair of an aquifer.
type Aggregate struct {
	AvgInit float64 `json:"avgInit"`
	AvgEnd  float64 `json:"avgEnd"`
	Delta   float64 `json:"delta"`
}
