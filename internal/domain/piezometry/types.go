package piezometry

import (
	"time"

	"github.com/hydrotwin/hydrotwin-api/pkg/metrics"
)

// Config wires runtime knobs for the piezometry service.
type Config struct {
	Location   *time.Location
	DateLayout string
	CacheTTL   time.Duration
	// ExportDateLayout formats reading dates in CSV exports.
	ExportDateLayout string
}

// TimeRangeView describes one range for the range selector and legend.
type TimeRangeView struct {
	Range       TimeRange    `json:"range"`
	Target      Target       `json:"target"`
	RequestBody RequestBody  `json:"reqBody"`
	DiffDays    *int         `json:"diffDays,omitempty"`
	Legend      []LegendItem `json:"legend"`
}

// StateRequest asks for the state of individual piezometers.
type StateRequest struct {
	Range     TimeRange `json:"range"`
	Variables []string  `json:"variables"`
}

// State is the classification of one map feature.
type State struct {
	ID       string   `json:"id"`
	Color    Color    `json:"color"`
	Info     string   `json:"info"`
	Delta    *float64 `json:"delta,omitempty"`
	Readings int      `json:"readings"`
}

// StatesResponse lists piezometer states for a range.
type StatesResponse struct {
	Range       TimeRange    `json:"range"`
	GeneratedAt string       `json:"generatedAt"`
	DiffDays    *int         `json:"diffDays,omitempty"`
	Legend      []LegendItem `json:"legend"`
	States      []State      `json:"states"`
}

// AquiferStateRequest asks for aquifer states. Without aquifers the service
// derives them from the piezometer catalog.
type AquiferStateRequest struct {
	Range    TimeRange `json:"range"`
	Aquifers []Aquifer `json:"aquifers"`
}

// AquiferState is the aggregated classification of an aquifer.
type AquiferState struct {
	State
	Name           string `json:"name"`
	NumPiezometers int    `json:"numPiezometers"`
}

// AquiferStatesResponse lists aquifer states for a range.
type AquiferStatesResponse struct {
	Range       TimeRange        `json:"range"`
	GeneratedAt string           `json:"generatedAt"`
	DiffDays    *int             `json:"diffDays,omitempty"`
	Legend      []LegendItem     `json:"legend"`
	Aquifers    []AquiferState   `json:"aquifers"`
	Coverage    metrics.Coverage `json:"coverage"`
}

// ClassifyRequest classifies caller supplied readings without fetching.
// Readings must follow the backend ordering for the range.
type ClassifyRequest struct {
	Target         Target    `json:"target"`
	Range          TimeRange `json:"range"`
	Readings       Series    `json:"readings"`
	NumPiezometers int       `json:"numPiezometers"`
}

// Classification is the result of ClassifyRequest.
type Classification struct {
	Target   Target       `json:"target"`
	Range    TimeRange    `json:"range"`
	Color    Color        `json:"color"`
	Info     string       `json:"info"`
	Delta    *float64     `json:"delta,omitempty"`
	DiffDays *int         `json:"diffDays,omitempty"`
	Legend   []LegendItem `json:"legend"`
}

// ExportRequest selects the series to export as CSV.
type ExportRequest struct {
	VariableCode string    `json:"variableCode"`
	Range        TimeRange `json:"range"`
}

// ExportResult carries the rendered CSV.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
	ArchiveKey  string
}
