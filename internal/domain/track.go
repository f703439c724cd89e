package domain

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

const (
	// DefaultEnvironmentalPressure is used when the outermost closed isobar
	// is not reported.
	DefaultEnvironmentalPressure = 1010.0

	nauticalMileKm = 1.852
)

// TrackPoint is one best-track fix.
type TrackPoint struct {
	Time                  time.Time `json:"time"`
	Lat                   float64   `json:"lat"`
	Lon                   float64   `json:"lon"`
	MaxSustainedWind      float64   `json:"max_sustained_wind"`     // kn
	CentralPressure       float64   `json:"central_pressure"`       // mb
	EnvironmentalPressure float64   `json:"environmental_pressure"` // mb
	RadiusMaxWind         float64   `json:"radius_max_wind"`        // km, 0 when unknown
	TimeStep              float64   `json:"time_step"`              // h
}

// Track is a cyclone trajectory plus its identifying metadata.
type Track struct {
	SID           string       `json:"sid"`
	Name          string       `json:"name"`
	Season        int          `json:"season,omitempty"`
	Basin         string       `json:"basin"`
	Agency        string       `json:"agency,omitempty"`
	Scenario      string       `json:"scenario,omitempty"`
	OrigEventFlag bool         `json:"orig_event_flag"`
	Category      int          `json:"category"`
	Points        []TrackPoint `json:"points"`
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	c := t
	c.Points = append([]TrackPoint(nil), t.Points...)
	return c
}

// Bounds returns the track extent padded by bufferDeg on every side.
func (t Track) Bounds(bufferDeg float64) (orb.Bound, error) {
	if len(t.Points) == 0 {
		return orb.Bound{}, ErrEmptyTrack
	}
	b := orb.Bound{
		Min: orb.Point{t.Points[0].Lon, t.Points[0].Lat},
		Max: orb.Point{t.Points[0].Lon, t.Points[0].Lat},
	}
	for _, p := range t.Points[1:] {
		b = b.Extend(orb.Point{p.Lon, p.Lat})
	}
	return b.Pad(bufferDeg), nil
}

// PeakWind returns the maximum sustained wind along the track in knots.
func (t Track) PeakWind() float64 {
	var peak float64
	for _, p := range t.Points {
		peak = math.Max(peak, p.MaxSustainedWind)
	}
	return peak
}

// MeanPosition returns the mean latitude and longitude of the track.
func (t Track) MeanPosition() (lat, lon float64) {
	if len(t.Points) == 0 {
		return 0, 0
	}
	for _, p := range t.Points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(t.Points))
	return lat / n, lon / n
}

// Interpolate resamples the track at the given step, linearly interpolating
// every numeric field. Pressures and RMW stay 0 (unknown) between fixes
// where either end is unknown. Tracks with fewer than two points, missing times or
// non-increasing times are returned unchanged.
func (t Track) Interpolate(step time.Duration) Track {
	if step <= 0 || len(t.Points) < 2 || !increasingTimes(t.Points) {
		return t.Clone()
	}

	out := t
	out.Points = make([]TrackPoint, 0, len(t.Points))
	stepHours := step.Hours()

	for i := 0; i < len(t.Points)-1; i++ {
		a, b := t.Points[i], t.Points[i+1]
		span := b.Time.Sub(a.Time)
		for ts := a.Time; ts.Before(b.Time); ts = ts.Add(step) {
			p := a
			if ts.After(a.Time) {
				p = lerpPoint(a, b, float64(ts.Sub(a.Time))/float64(span))
			}
			p.Time = ts
			p.TimeStep = stepHours
			out.Points = append(out.Points, p)
		}
	}
	last := t.Points[len(t.Points)-1]
	last.TimeStep = stepHours
	out.Points = append(out.Points, last)
	return out
}

func increasingTimes(points []TrackPoint) bool {
	for i, p := range points {
		if p.Time.IsZero() {
			return false
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return false
		}
	}
	return true
}

func lerpPoint(a, b TrackPoint, f float64) TrackPoint {
	return TrackPoint{
		Lat:                   lerp(a.Lat, b.Lat, f),
		Lon:                   lerp(a.Lon, b.Lon, f),
		MaxSustainedWind:      lerp(a.MaxSustainedWind, b.MaxSustainedWind, f),
		CentralPressure:       lerpKnown(a.CentralPressure, b.CentralPressure, f),
		EnvironmentalPressure: lerpKnown(a.EnvironmentalPressure, b.EnvironmentalPressure, f),
		RadiusMaxWind:         lerpKnown(a.RadiusMaxWind, b.RadiusMaxWind, f),
	}
}

// lerpKnown interpolates fields where 0 means unknown; the result stays
// unknown unless both ends are known.
func lerpKnown(a, b, f float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return lerp(a, b, f)
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}

// Category maps a maximum sustained wind in knots to the Saffir-Simpson
// scale: -1 tropical depression, 0 tropical storm, 1-5 hurricane categories.
func Category(windKn float64) int {
	switch {
	case windKn < 34:
		return -1
	case windKn < 64:
		return 0
	case windKn < 83:
		return 1
	case windKn < 96:
		return 2
	case windKn < 113:
		return 3
	case windKn < 137:
		return 4
	default:
		return 5
	}
}

// PressureFromWind applies the parametric wind-pressure rule used for
// synthetic and warmed tracks.
func PressureFromWind(windKn float64) float64 {
	return 1000 - 0.5*windKn
}

// WindFromPressure inverts PressureFromWind, never returning a negative wind.
func WindFromPressure(pressure float64) float64 {
	return math.Max(0, (1000-pressure)*2)
}

// rmwPressure / rmwNmi are breakpoints of the piecewise-linear relation
// between central pressure (mb) and radius of maximum wind (nmi).
var (
	rmwPressure = []float64{872, 940, 980, 1021}
	rmwNmi      = []float64{14.907318, 15.726927, 25.742142, 56.856522}
)

// EstimateRMW estimates the radius of maximum wind in km from the central
// pressure. Pressures outside the breakpoints are clamped.
func EstimateRMW(centralPressure float64) float64 {
	cp := centralPressure
	if cp <= rmwPressure[0] {
		return rmwNmi[0] * nauticalMileKm
	}
	for i := 1; i < len(rmwPressure); i++ {
		if cp <= rmwPressure[i] {
			f := (cp - rmwPressure[i-1]) / (rmwPressure[i] - rmwPressure[i-1])
			return lerp(rmwNmi[i-1], rmwNmi[i], f) * nauticalMileKm
		}
	}
	return rmwNmi[len(rmwNmi)-1] * nauticalMileKm
}

// NauticalMilesToKm converts a distance in nautical miles to kilometres.
func NauticalMilesToKm(nmi float64) float64 {
	return nmi * nauticalMileKm
}
