// Package boundary overlays country outlines (Natural Earth admin-0) on the
// impact zone of a run.
package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// DefaultBufferDeg is the distance around impact points kept in the overlay.
const DefaultBufferDeg = 0.5

var matchProperties = []string{"ADMIN", "ISO_A3", "ADM0_A3", "NAME"}

// Overlay serves boundary features from a GeoJSON file, loaded on first use.
type Overlay struct {
	path      string
	bufferDeg float64
	logger    *slog.Logger

	once     sync.Once
	features []*geojson.Feature
	loadErr  error
}

// NewOverlay creates an overlay reading the Natural Earth GeoJSON at path.
func NewOverlay(path string, logger *slog.Logger) *Overlay {
	return &Overlay{path: path, bufferDeg: DefaultBufferDeg, logger: logger}
}

// Boundary returns the outlines of the requested countries (matched on
// ADMIN, ISO_A3, ADM0_A3 or NAME) cut down to the impact zone. With no
// zones the outlines are returned whole. Failures are logged and yield an
// empty collection.
func (o *Overlay) Boundary(_ context.Context, countries []string, zones []domain.ImpactZone) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()

	features, err := o.load()
	if err != nil {
		o.logger.Warn("boundary overlay unavailable", "path", o.path, "error", err)
		return out
	}

	wanted := make(map[string]bool, len(countries))
	for _, c := range countries {
		wanted[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	var zone *impactZone
	if len(zones) > 0 {
		zone = newImpactZone(zones, o.bufferDeg)
	}

	for _, f := range features {
		if !matches(f, wanted) {
			continue
		}
		geom := f.Geometry
		if zone != nil {
			geom = zone.cut(geom)
			if geom == nil {
				continue
			}
		}
		nf := geojson.NewFeature(geom)
		nf.Properties = f.Properties.Clone()
		out.Append(nf)
	}
	return out
}

func (o *Overlay) load() ([]*geojson.Feature, error) {
	o.once.Do(func() {
		data, err := os.ReadFile(o.path)
		if err != nil {
			o.loadErr = err
			return
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			o.loadErr = fmt.Errorf("decode %s: %w", o.path, err)
			return
		}
		o.features = fc.Features
	})
	return o.features, o.loadErr
}

func matches(f *geojson.Feature, wanted map[string]bool) bool {
	for _, prop := range matchProperties {
		if v, ok := f.Properties[prop].(string); ok && wanted[strings.ToUpper(v)] {
			return true
		}
	}
	return false
}

// impactZone approximates the union of buffers around impact points: a
// padded bounding box for clipping plus one spherical cap per point.
type impactZone struct {
	bound  orb.Bound
	points []orb.Point
	caps   []s2.Cap
}

func newImpactZone(zones []domain.ImpactZone, bufferDeg float64) *impactZone {
	z := &impactZone{}
	for i, iz := range zones {
		p := orb.Point{iz.Lon, iz.Lat}
		if i == 0 {
			z.bound = p.Bound()
		} else {
			z.bound = z.bound.Extend(p)
		}
		z.points = append(z.points, p)
		z.caps = append(z.caps, s2.CapFromCenterAngle(toS2(p), s1.Angle(bufferDeg)*s1.Degree))
	}
	z.bound = z.bound.Pad(bufferDeg)
	return z
}

// cut clips g to the zone and drops polygons that neither reach within the
// buffer of an impact point nor contain one.
func (z *impactZone) cut(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	clipped := clip.Geometry(z.bound, g)
	if clipped == nil {
		return nil
	}

	var polys orb.MultiPolygon
	switch c := clipped.(type) {
	case orb.Polygon:
		polys = orb.MultiPolygon{c}
	case orb.MultiPolygon:
		polys = c
	default:
		return clipped
	}

	var kept orb.MultiPolygon
	for _, p := range polys {
		if len(p) > 0 && len(p[0]) > 0 && z.touches(p) {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return kept
	}
}

func (z *impactZone) touches(p orb.Polygon) bool {
	for _, ring := range p {
		for _, v := range ring {
			sp := toS2(v)
			for _, c := range z.caps {
				if c.ContainsPoint(sp) {
					return true
				}
			}
		}
	}
	for _, ip := range z.points {
		if planar.PolygonContains(p, ip) {
			return true
		}
	}
	return false
}

func toS2(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
}
