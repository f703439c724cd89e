// Package artifact encodes run outputs as GeoJSON feature collections.
//
// Every collection carries foreign members identifying the scenario,
// pathway and artifact kind so files remain self-describing once copied out
// of their directory. Coordinates are WGS-84 longitude/latitude.
package artifact

import (
	"fmt"
	"path"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// Meta tags a collection with the run it belongs to.
type Meta struct {
	Scenario domain.Scenario
	Pathway  domain.Pathway
	StormSID string
}

// Key is the store-relative location of an artifact:
// "<scenario-slug>/<kind>_<pathway>.geojson".
func Key(s domain.Scenario, kind domain.ArtifactKind, p domain.Pathway) string {
	return path.Join(s.Slug(), domain.ArtifactName(kind, p))
}

func newCollection(meta Meta, kind domain.ArtifactKind) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"scenario":      meta.Scenario.Slug(),
		"pathway":       string(meta.Pathway),
		"pathway_label": meta.Pathway.Label(),
		"kind":          string(kind),
		"storm_sid":     meta.StormSID,
	}
	return fc
}

// Track encodes one point feature per track fix.
func Track(meta Meta, track domain.Track) *geojson.FeatureCollection {
	fc := newCollection(meta, domain.ArtifactTrack)
	for _, p := range track.Points {
		f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
		f.Properties = geojson.Properties{
			"time":               p.Time.UTC().Format(time.RFC3339),
			"lon":                p.Lon,
			"lat":                p.Lat,
			"max_sustained_wind": p.MaxSustainedWind,
			"central_pressure":   p.CentralPressure,
			"radius_max_wind":    p.RadiusMaxWind,
			"category":           domain.Category(p.MaxSustainedWind),
		}
		fc.Append(f)
	}
	return fc
}

// Exposure encodes the exposure points used in the run.
func Exposure(meta Meta, points []domain.ExposurePoint) *geojson.FeatureCollection {
	fc := newCollection(meta, domain.ArtifactExposure)
	for _, e := range points {
		f := geojson.NewFeature(e.Point())
		f.Properties = geojson.Properties{
			"id":        e.ID,
			"value":     e.Value,
			"country":   e.Country,
			"region_id": e.RegionID,
			"latitude":  e.Lat,
			"longitude": e.Lon,
		}
		fc.Append(f)
	}
	return fc
}

// Impact encodes the zones above the loss threshold.
func Impact(meta Meta, zones []domain.ImpactZone) *geojson.FeatureCollection {
	fc := newCollection(meta, domain.ArtifactImpact)
	for _, z := range zones {
		f := geojson.NewFeature(orb.Point{z.Lon, z.Lat})
		f.Properties = geojson.Properties{
			"exposure_id":  z.ExposureID,
			"impact_usd":   z.ImpactUSD,
			"intensity_ms": z.IntensityMS,
			"latitude":     z.Lat,
			"longitude":    z.Lon,
		}
		fc.Append(f)
	}
	return fc
}

// Boundary retags a boundary overlay collection for the run.
func Boundary(meta Meta, overlay *geojson.FeatureCollection) *geojson.FeatureCollection {
	fc := newCollection(meta, domain.ArtifactBoundary)
	if overlay != nil {
		fc.Features = append(fc.Features, overlay.Features...)
	}
	return fc
}

// Encode marshals a collection.
func Encode(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

// Decode parses a collection previously written by Encode.
func Decode(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return fc, nil
}

// Kind returns the artifact kind recorded on a decoded collection.
func Kind(fc *geojson.FeatureCollection) domain.ArtifactKind {
	return domain.ArtifactKind(fc.ExtraMembers.MustString("kind", ""))
}
