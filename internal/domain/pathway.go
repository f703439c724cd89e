package domain

import (
	"fmt"
	"strings"
)

// Pathway is a climate scenario tag applied to a run's outputs.
type Pathway string

const (
	PathwayHistorical Pathway = "historical"
	PathwaySSP126     Pathway = "ssp126"
	PathwaySSP245     Pathway = "ssp245"
	PathwaySSP370     Pathway = "ssp370"
	PathwaySSP585     Pathway = "ssp585"
)

// ClimateModifier scales storm intensity and size for a warmer climate.
type ClimateModifier struct {
	WindBoost float64 `json:"wind_boost"`
	RMWShrink float64 `json:"rmw_shrink"`
}

// Identity reports whether the modifier leaves a track unchanged.
func (m ClimateModifier) Identity() bool {
	return m.WindBoost == 1 && m.RMWShrink == 1
}

type pathwayInfo struct {
	label    string
	modifier ClimateModifier
}

var pathways = map[Pathway]pathwayInfo{
	PathwayHistorical: {label: "Historical", modifier: ClimateModifier{WindBoost: 1.00, RMWShrink: 1.00}},
	PathwaySSP126:     {label: "SSP1-2.6", modifier: ClimateModifier{WindBoost: 1.03, RMWShrink: 0.97}},
	PathwaySSP245:     {label: "SSP2-4.5", modifier: ClimateModifier{WindBoost: 1.05, RMWShrink: 0.95}},
	PathwaySSP370:     {label: "SSP3-7.0", modifier: ClimateModifier{WindBoost: 1.10, RMWShrink: 0.90}},
	PathwaySSP585:     {label: "SSP5-8.5", modifier: ClimateModifier{WindBoost: 1.15, RMWShrink: 0.85}},
}

// DefaultPathways are run when a request names none.
var DefaultPathways = []Pathway{PathwaySSP245, PathwaySSP370, PathwaySSP585}

// ParsePathway accepts "SSP2-4.5", "ssp245", "SSP2_45", "historical" and
// similar spellings; case, '-', '.', '_' and spaces are ignored.
func ParsePathway(s string) (Pathway, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	p := Pathway(key)
	if _, ok := pathways[p]; !ok {
		return "", fmt.Errorf("unknown pathway %q", s)
	}
	return p, nil
}

// ParsePathways parses a comma-separated pathway list, dropping duplicates.
func ParsePathways(list string) ([]Pathway, error) {
	var out []Pathway
	seen := map[Pathway]bool{}
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := ParsePathway(part)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// UnmarshalText lets JSON requests use any spelling ParsePathway accepts.
func (p *Pathway) UnmarshalText(text []byte) error {
	v, err := ParsePathway(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Label is the display form, e.g. "SSP2-4.5".
func (p Pathway) Label() string {
	if info, ok := pathways[p]; ok {
		return info.label
	}
	return string(p)
}

// Modifier returns the climate modifier for the pathway. Unknown pathways
// get the identity modifier.
func (p Pathway) Modifier() ClimateModifier {
	if info, ok := pathways[p]; ok {
		return info.modifier
	}
	return ClimateModifier{WindBoost: 1, RMWShrink: 1}
}

// ArtifactKind names one of the GeoJSON outputs of a pathway run.
type ArtifactKind string

const (
	ArtifactExposure ArtifactKind = "exposure"
	ArtifactImpact   ArtifactKind = "impact"
	ArtifactTrack    ArtifactKind = "track"
	ArtifactBoundary ArtifactKind = "boundary"
)

// ArtifactName returns "<kind>_<pathway>.geojson".
func ArtifactName(kind ArtifactKind, p Pathway) string {
	return fmt.Sprintf("%s_%s.geojson", kind, p)
}
