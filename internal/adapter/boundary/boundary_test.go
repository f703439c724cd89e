package boundary

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

const fixture = "testdata/admin0_sample.geojson"

func testOverlay(path string) (*Overlay, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewOverlay(path, logger), &buf
}

func TestBoundary_NoZonesReturnsWholeCountries(t *testing.T) {
	o, _ := testOverlay(fixture)

	fc := o.Boundary(context.Background(), []string{"bgd", "India"}, nil)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Bangladesh", fc.Features[0].Properties["ADMIN"])
	assert.Equal(t, "India", fc.Features[1].Properties["ADMIN"])

	mp, ok := fc.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestBoundary_ClipsToImpactZone(t *testing.T) {
	o, _ := testOverlay(fixture)
	zones := []domain.ImpactZone{{ExposureID: "x", Lat: 24, Lon: 90, ImpactUSD: 2e6}}

	fc := o.Boundary(context.Background(), []string{"BGD", "IND"}, zones)

	// India lies outside the padded zone; the Bangladesh island is inside the
	// box but beyond the buffer of the impact point.
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "BGD", fc.Features[0].Properties["ISO_A3"])

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok, "single remaining polygon should be unwrapped")
	b := poly.Bound()
	assert.InDelta(t, 89.5, b.Min.Lon(), 1e-9)
	assert.InDelta(t, 23.5, b.Min.Lat(), 1e-9)
	assert.InDelta(t, 90.2, b.Max.Lon(), 1e-9)
	assert.InDelta(t, 24.5, b.Max.Lat(), 1e-9)
}

func TestBoundary_UnrequestedCountriesExcluded(t *testing.T) {
	o, _ := testOverlay(fixture)

	fc := o.Boundary(context.Background(), []string{"NPL"}, nil)
	assert.Empty(t, fc.Features)
}

func TestBoundary_MissingFileYieldsEmptyCollection(t *testing.T) {
	o, logs := testOverlay("testdata/does_not_exist.geojson")

	fc := o.Boundary(context.Background(), []string{"BGD"}, nil)
	require.NotNil(t, fc)
	assert.Empty(t, fc.Features)
	assert.Contains(t, logs.String(), "boundary overlay unavailable")
}

func TestBoundary_PropertiesAreCopied(t *testing.T) {
	o, _ := testOverlay(fixture)

	fc := o.Boundary(context.Background(), []string{"IND"}, nil)
	require.Len(t, fc.Features, 1)
	fc.Features[0].Properties["ADMIN"] = "changed"

	again := o.Boundary(context.Background(), []string{"IND"}, nil)
	assert.Equal(t, "India", again.Features[0].Properties["ADMIN"])
}
