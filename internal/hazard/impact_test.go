package hazard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

func TestEmanuelUSA_MDD(t *testing.T) {
	f := EmanuelUSA()

	assert.Zero(t, f.MDD(0))
	assert.Zero(t, f.MDD(25.7))
	assert.InDelta(t, 0.5, f.MDD(74.7), 1e-12)
	assert.Less(t, f.MDD(40), f.MDD(60))
	assert.Less(t, f.MDD(200), 1.0)
	assert.Equal(t, 1.0, f.PAA(50))
}

func TestComputeImpact(t *testing.T) {
	exposure := []domain.ExposurePoint{
		{ID: "a", Lat: 22, Lon: 89, Value: 4e6},
		{ID: "b", Lat: 22.5, Lon: 89.5, Value: 1e7},
		{ID: "c", Lat: 23, Lon: 90, Value: 5e5},
	}
	intensity := []float64{74.7, 0, 74.7}

	imp, err := ComputeImpact(exposure, EmanuelUSA(), intensity)
	require.NoError(t, err)

	assert.InDelta(t, 2e6, imp.Loss[0], 1e-3)
	assert.Zero(t, imp.Loss[1])
	assert.InDelta(t, 2.5e5, imp.Loss[2], 1e-3)
	assert.InDelta(t, 2.25e6, imp.Total, 1e-3)

	zones := imp.AboveThreshold(1e6)
	require.Len(t, zones, 1)
	assert.Equal(t, "a", zones[0].ExposureID)
	assert.Equal(t, 74.7, zones[0].IntensityMS)
	assert.InDelta(t, 2e6, ZoneTotal(zones), 1e-3)

	assert.Empty(t, imp.AboveThreshold(2e6+1))
}

func TestComputeImpact_LengthMismatch(t *testing.T) {
	_, err := ComputeImpact([]domain.ExposurePoint{{Value: 1}}, EmanuelUSA(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 exposure points but 0 intensities")
}
