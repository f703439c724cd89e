package domain

import (
	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
)

// exposureIDPrecision gives ~5 m cells, well below the LitPop grid spacing.
const exposureIDPrecision = 9

// ExposurePoint is one gridded asset value.
type ExposurePoint struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Value    float64 `json:"value"` // USD
	Country  string  `json:"country"`
	RegionID int     `json:"region_id,omitempty"`
}

// Point returns the exposure location as an orb point (lon, lat).
func (e ExposurePoint) Point() orb.Point {
	return orb.Point{e.Lon, e.Lat}
}

// ExposureID derives the stable identifier of an exposure location.
func ExposureID(lat, lon float64) string {
	return geohash.EncodeWithPrecision(lat, lon, exposureIDPrecision)
}

// ClipExposure keeps the points inside the bound (edges inclusive).
func ClipExposure(points []ExposurePoint, b orb.Bound) []ExposurePoint {
	out := make([]ExposurePoint, 0, len(points))
	for _, p := range points {
		if b.Contains(p.Point()) {
			out = append(out, p)
		}
	}
	return out
}

// MergeExposure concatenates per-country exposure sets. A location already
// seen for the same country is dropped; points are assigned IDs when missing.
func MergeExposure(sets ...[]ExposurePoint) []ExposurePoint {
	var total int
	for _, s := range sets {
		total += len(s)
	}

	out := make([]ExposurePoint, 0, total)
	seen := make(map[string]bool, total)
	for _, set := range sets {
		for _, p := range set {
			if p.ID == "" {
				p.ID = ExposureID(p.Lat, p.Lon)
			}
			key := p.Country + "|" + p.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	return out
}

// TotalValue sums the asset value of the points.
func TotalValue(points []ExposurePoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}
