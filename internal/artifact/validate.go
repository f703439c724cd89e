package artifact

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

var requiredProperties = map[domain.ArtifactKind][]string{
	domain.ArtifactTrack:    {"time", "max_sustained_wind", "central_pressure", "radius_max_wind", "category"},
	domain.ArtifactExposure: {"id", "value", "country"},
	domain.ArtifactImpact:   {"exposure_id", "impact_usd", "intensity_ms"},
}

// Validate checks a decoded artifact against the layout Track, Exposure,
// Impact and Boundary produce. It returns one message per problem found.
func Validate(fc *geojson.FeatureCollection, threshold float64) []string {
	var problems []string
	errorf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	kind := Kind(fc)
	for _, member := range []string{"scenario", "pathway", "kind"} {
		if fc.ExtraMembers.MustString(member, "") == "" {
			errorf("missing collection member %q", member)
		}
	}
	if p := fc.ExtraMembers.MustString("pathway", ""); p != "" {
		if _, err := domain.ParsePathway(p); err != nil {
			errorf("collection member pathway: %v", err)
		}
	}

	switch kind {
	case domain.ArtifactTrack, domain.ArtifactExposure, domain.ArtifactImpact:
		if len(fc.Features) == 0 {
			errorf("%s artifact has no features", kind)
		}
	case domain.ArtifactBoundary:
	default:
		errorf("unknown artifact kind %q", kind)
		return problems
	}

	for i, f := range fc.Features {
		if kind != domain.ArtifactBoundary {
			p, ok := f.Geometry.(orb.Point)
			if f.Geometry == nil {
				errorf("feature %d: missing geometry", i)
				continue
			}
			if !ok {
				errorf("feature %d: geometry is %s, want Point", i, f.Geometry.GeoJSONType())
				continue
			}
			if math.Abs(p.Lat()) > 90 || math.Abs(p.Lon()) > 180 {
				errorf("feature %d: coordinates %v out of range", i, p)
			}
		}
		for _, prop := range requiredProperties[kind] {
			if _, ok := f.Properties[prop]; !ok {
				errorf("feature %d: missing property %q", i, prop)
			}
		}
		if kind == domain.ArtifactImpact && threshold > 0 {
			if v := f.Properties.MustFloat64("impact_usd", 0); v <= threshold {
				errorf("feature %d: impact_usd %g not above threshold %g", i, v, threshold)
			}
		}
	}
	return problems
}
