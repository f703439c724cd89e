package hazard

import (
	"fmt"
	"math"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// ImpactFunc is a sigmoidal damage curve in the Emanuel (2011) form.
type ImpactFunc struct {
	ID      string
	VThresh float64 // m/s, no damage below
	VHalf   float64 // m/s, half damage
	Scale   float64
}

// EmanuelUSA is the tropical cyclone damage curve calibrated for the USA.
func EmanuelUSA() ImpactFunc {
	return ImpactFunc{ID: "TC-emanuel-usa", VThresh: 25.7, VHalf: 74.7, Scale: 1}
}

// MDD is the mean damage degree at wind speed v (m/s).
func (f ImpactFunc) MDD(v float64) float64 {
	vn := math.Max(v-f.VThresh, 0) / (f.VHalf - f.VThresh)
	cube := vn * vn * vn
	return f.Scale * cube / (1 + cube)
}

// PAA is the percentage of affected assets, constant for this curve.
func (f ImpactFunc) PAA(float64) float64 {
	return 1
}

// Impact is the modelled loss at every exposure point.
type Impact struct {
	Exposure  []domain.ExposurePoint
	Intensity []float64 // m/s
	Loss      []float64 // USD
	Total     float64
}

// ComputeImpact applies the damage curve to each exposure point.
func ComputeImpact(exposure []domain.ExposurePoint, impf ImpactFunc, intensity []float64) (Impact, error) {
	if len(exposure) != len(intensity) {
		return Impact{}, fmt.Errorf("compute impact: %d exposure points but %d intensities", len(exposure), len(intensity))
	}

	imp := Impact{
		Exposure:  exposure,
		Intensity: intensity,
		Loss:      make([]float64, len(exposure)),
	}
	for i, e := range exposure {
		v := intensity[i]
		loss := e.Value * impf.MDD(v) * impf.PAA(v)
		imp.Loss[i] = loss
		imp.Total += loss
	}
	return imp, nil
}

// AboveThreshold returns the zones whose loss is strictly greater than
// threshold, in exposure order.
func (imp Impact) AboveThreshold(threshold float64) []domain.ImpactZone {
	var zones []domain.ImpactZone
	for i, loss := range imp.Loss {
		if loss <= threshold {
			continue
		}
		e := imp.Exposure[i]
		zones = append(zones, domain.ImpactZone{
			ExposureID:  e.ID,
			Lat:         e.Lat,
			Lon:         e.Lon,
			ImpactUSD:   loss,
			IntensityMS: imp.Intensity[i],
		})
	}
	return zones
}

// ZoneTotal sums the loss of the zones.
func ZoneTotal(zones []domain.ImpactZone) float64 {
	var sum float64
	for _, z := range zones {
		sum += z.ImpactUSD
	}
	return sum
}
