// Package hazard computes tropical cyclone wind intensity over exposure
// centroids and converts it into monetary impact.
package hazard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

const (
	knotsToMS  = 0.514444
	airDensity = 1.15 // kg/m^3

	// DefaultMaxDistanceKm bounds how far from the storm centre winds are
	// evaluated.
	DefaultMaxDistanceKm = 300.0

	// DefaultIntensityThreshold (m/s) is the gale-force cutoff; weaker winds
	// are reported as zero.
	DefaultIntensityThreshold = 17.5

	// DefaultTimeStep is the track resolution the model is evaluated at.
	DefaultTimeStep = time.Hour

	minCentroidsPerWorker = 256
)

// Model is a Holland parametric wind field.
type Model struct {
	MaxDistanceKm      float64
	IntensityThreshold float64
	TimeStep           time.Duration
	Workers            int
}

// DefaultModel returns the model used by pipeline runs.
func DefaultModel() Model {
	return Model{
		MaxDistanceKm:      DefaultMaxDistanceKm,
		IntensityThreshold: DefaultIntensityThreshold,
		TimeStep:           DefaultTimeStep,
		Workers:            4,
	}
}

// stormState holds the per-fix Holland parameters.
type stormState struct {
	centre orb.Point
	vmax   float64 // m/s
	rmwKm  float64
	b      float64
}

// Compute returns the lifetime maximum wind speed (m/s) at each centroid.
// Centroids never within MaxDistanceKm of the storm centre, or whose
// maximum stays below IntensityThreshold, get zero.
func (m Model) Compute(ctx context.Context, track domain.Track, centroids []orb.Point) ([]float64, error) {
	if len(track.Points) == 0 {
		return nil, domain.ErrEmptyTrack
	}
	intensity := make([]float64, len(centroids))
	if len(centroids) == 0 {
		return intensity, nil
	}

	if m.TimeStep > 0 {
		track = track.Interpolate(m.TimeStep)
	}
	states := make([]stormState, 0, len(track.Points))
	for _, p := range track.Points {
		if s, ok := newStormState(p); ok {
			states = append(states, s)
		}
	}

	workers := m.Workers
	if workers < 1 {
		workers = 1
	}
	chunk := (len(centroids) + workers - 1) / workers
	if chunk < minCentroidsPerWorker {
		chunk = minCentroidsPerWorker
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(centroids); start += chunk {
		end := min(start+chunk, len(centroids))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				intensity[i] = m.maxWind(states, centroids[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute wind field: %w", err)
	}
	return intensity, nil
}

func (m Model) maxWind(states []stormState, c orb.Point) float64 {
	maxDistM := m.MaxDistanceKm * 1000
	var peak float64
	for _, s := range states {
		d := geo.DistanceHaversine(s.centre, c)
		if m.MaxDistanceKm > 0 && d > maxDistM {
			continue
		}
		peak = math.Max(peak, s.windAt(d/1000))
	}
	if peak < m.IntensityThreshold {
		return 0
	}
	return peak
}

func newStormState(p domain.TrackPoint) (stormState, bool) {
	vmax := p.MaxSustainedWind * knotsToMS
	if vmax <= 0 {
		return stormState{}, false
	}

	penv := p.EnvironmentalPressure
	if penv <= 0 {
		penv = domain.DefaultEnvironmentalPressure
	}
	pcen := p.CentralPressure
	if pcen <= 0 {
		pcen = domain.PressureFromWind(p.MaxSustainedWind)
	}
	rmw := p.RadiusMaxWind
	if rmw <= 0 {
		rmw = domain.EstimateRMW(pcen)
	}

	return stormState{
		centre: orb.Point{p.Lon, p.Lat},
		vmax:   vmax,
		rmwKm:  rmw,
		b:      HollandB(vmax, penv-pcen),
	}, true
}

// HollandB returns the Holland shape parameter for a maximum wind (m/s) and
// pressure deficit (hPa), clamped to [1, 2.5].
func HollandB(vmax, deltaP float64) float64 {
	if deltaP <= 0 {
		return 1
	}
	b := airDensity * math.E * vmax * vmax / (deltaP * 100)
	return math.Min(math.Max(b, 1), 2.5)
}

// windAt evaluates the gradient wind profile at distance r km.
func (s stormState) windAt(rKm float64) float64 {
	if rKm <= 0 {
		return 0
	}
	x := math.Pow(s.rmwKm/rKm, s.b)
	return s.vmax * math.Sqrt(x*math.Exp(1-x))
}
