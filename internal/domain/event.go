package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the request topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the summary topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ScenarioRequest asks for a diagnostics run of one scenario.
type ScenarioRequest struct {
	Scenario
	Pathways  []Pathway `json:"pathways,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`  // USD; zones must exceed it
	BufferDeg float64   `json:"buffer_deg,omitempty"` // exposure window around the track
	Synthetic bool      `json:"synthetic,omitempty"`  // use the synthetic Bhola track
}

// ImpactZone is an exposure point whose modelled loss exceeds the threshold.
type ImpactZone struct {
	ExposureID  string  `json:"exposure_id"`
	Lat         float64 `json:"latitude"`
	Lon         float64 `json:"longitude"`
	ImpactUSD   float64 `json:"impact_usd"`
	IntensityMS float64 `json:"intensity_ms"`
}

// PathwaySummary reports the outcome of one pathway of a run.
type PathwaySummary struct {
	Pathway             Pathway                 `json:"pathway"`
	Label               string                  `json:"label"`
	Modifier            ClimateModifier         `json:"modifier"`
	PeakWindKn          float64                 `json:"peak_wind_kn"`
	ExposurePoints      int                     `json:"exposure_points"`
	TotalImpactUSD      float64                 `json:"total_impact_usd"`
	ThresholdImpactUSD  float64                 `json:"threshold_impact_usd"`
	ZonesAboveThreshold int                     `json:"zones_above_threshold"`
	Skipped             bool                    `json:"skipped"`
	Artifacts           map[ArtifactKind]string `json:"artifacts,omitempty"`
}

// RunSummary is the result of a scenario run, published to the summary topic
// and recorded in the run ledger.
type RunSummary struct {
	RunID       string           `json:"run_id"`
	Scenario    Scenario         `json:"scenario"`
	StormSID    string           `json:"storm_sid"`
	StormName   string           `json:"storm_name"`
	Threshold   float64          `json:"threshold"`
	Pathways    []PathwaySummary `json:"pathways"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}
