package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// DefaultThreshold is the loss (USD) an exposure point must exceed to be
	// reported as an impact zone.
	DefaultThreshold = 1e6

	// DefaultBufferDeg pads the track extent when selecting exposure.
	DefaultBufferDeg = 3.0
)

// RequestDefaults fill the optional fields of a scenario request.
type RequestDefaults struct {
	Pathways  []Pathway
	Threshold float64
	BufferDeg float64
}

// requestMessage is the wire form of a ScenarioRequest. Pointer fields tell
// an explicit zero apart from an absent field.
type requestMessage struct {
	Scenario
	Pathways  []Pathway `json:"pathways"`
	Threshold *float64  `json:"threshold"`
	BufferDeg *float64  `json:"buffer_deg"`
	Synthetic bool      `json:"synthetic"`
}

// ParseScenarioRequest deserializes and validates a request message. Absent
// options take the defaults; present ones are kept as given, zero included.
func ParseScenarioRequest(raw RawEvent, defaults RequestDefaults) (ScenarioRequest, error) {
	var msg requestMessage
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		return ScenarioRequest{}, fmt.Errorf("parse scenario request: %w", err)
	}
	req := ScenarioRequest{
		Scenario:  msg.Scenario,
		Pathways:  msg.Pathways,
		Synthetic: msg.Synthetic,
	}.WithDefaults(defaults)
	if msg.Threshold != nil {
		req.Threshold = *msg.Threshold
	}
	if msg.BufferDeg != nil {
		req.BufferDeg = *msg.BufferDeg
	}
	if err := req.Validate(); err != nil {
		return ScenarioRequest{}, err
	}
	return req, nil
}

// WithDefaults normalizes the scenario and fills options left at their zero
// value. Callers holding an explicit zero set it after this call.
func (r ScenarioRequest) WithDefaults(d RequestDefaults) ScenarioRequest {
	r.Scenario = r.Scenario.Normalize()
	if len(r.Pathways) == 0 {
		r.Pathways = d.Pathways
	}
	if len(r.Pathways) == 0 {
		r.Pathways = DefaultPathways
	}
	if r.Threshold == 0 {
		r.Threshold = d.Threshold
	}
	if r.Threshold == 0 {
		r.Threshold = DefaultThreshold
	}
	if r.BufferDeg == 0 {
		r.BufferDeg = d.BufferDeg
	}
	if r.BufferDeg == 0 {
		r.BufferDeg = DefaultBufferDeg
	}
	return r
}

// Validate checks the scenario and the run options, wrapping problems in
// ErrInvalidScenario. It expects a normalized scenario.
func (r ScenarioRequest) Validate() error {
	if err := r.Scenario.Validate(); err != nil {
		return err
	}
	if r.Threshold < 0 || math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return fmt.Errorf("%w: threshold %g must be a non-negative amount", ErrInvalidScenario, r.Threshold)
	}
	if r.BufferDeg < 0 || math.IsNaN(r.BufferDeg) || r.BufferDeg > 90 {
		return fmt.Errorf("%w: buffer_deg %g outside [0, 90]", ErrInvalidScenario, r.BufferDeg)
	}
	return nil
}

// SerializeRunSummary marshals a run summary into an output event keyed by
// run ID.
func SerializeRunSummary(s RunSummary) (OutputEvent, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize run summary: %w", err)
	}
	return OutputEvent{
		Key:   []byte(s.RunID),
		Value: data,
		Headers: map[string]string{
			"storm":        s.Scenario.Slug(),
			"run_id":       s.RunID,
			"completed_at": s.CompletedAt.Format(time.RFC3339),
		},
	}, nil
}
