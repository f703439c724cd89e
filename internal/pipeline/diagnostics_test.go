package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyclone-impact-service/internal/artifact"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/hazard"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
	"github.com/couchcryptid/cyclone-impact-service/internal/pipeline"
)

// --- fakes ---

type fakeTracks struct {
	track domain.Track
	err   error
	query string
}

func (f *fakeTracks) FindStorm(_ context.Context, year int, basin, name string) (domain.Track, error) {
	f.query = fmt.Sprintf("%d/%s/%s", year, basin, name)
	if f.err != nil {
		return domain.Track{}, f.err
	}
	return f.track, nil
}

type fakeExposure struct {
	byCountry map[string][]domain.ExposurePoint
	err       error
}

func (f *fakeExposure) Exposure(_ context.Context, country string) ([]domain.ExposurePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	points, ok := f.byCountry[country]
	if !ok {
		return nil, fmt.Errorf("exposure %s: no LitPop table", country)
	}
	return points, nil
}

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.files[key] = data
	return "mem://" + key, nil
}

type fakeBoundary struct {
	fc        *geojson.FeatureCollection
	countries []string
}

func (f *fakeBoundary) Boundary(_ context.Context, countries []string, _ []domain.ImpactZone) *geojson.FeatureCollection {
	f.countries = countries
	return f.fc
}

type fakeRecorder struct {
	recorded []domain.RunSummary
	err      error
}

func (f *fakeRecorder) RecordRun(_ context.Context, s domain.RunSummary) error {
	f.recorded = append(f.recorded, s)
	return f.err
}

// bayOfBengal is exposure for the synthetic Bhola track: one asset next to
// the eyewall, one inside the track window but out of reach of the wind
// field, one outside the window.
func bayOfBengal() []domain.ExposurePoint {
	return []domain.ExposurePoint{
		{ID: domain.ExposureID(21.0, 90.3), Lat: 21.0, Lon: 90.3, Value: 1e9, Country: "BGD"},
		{ID: domain.ExposureID(25.5, 92.5), Lat: 25.5, Lon: 92.5, Value: 5e8, Country: "BGD"},
		{ID: domain.ExposureID(10.0, 80.0), Lat: 10.0, Lon: 80.0, Value: 7e8, Country: "BGD"},
	}
}

func syntheticRequest() domain.ScenarioRequest {
	return domain.ScenarioRequest{
		Scenario:  domain.Scenario{Name: "Synthetic Bhola", Year: 2035, Basin: "NI", Countries: []string{"BGD"}},
		Pathways:  []domain.Pathway{domain.PathwaySSP245, domain.PathwaySSP585},
		Threshold: domain.DefaultThreshold,
		BufferDeg: domain.DefaultBufferDeg,
		Synthetic: true,
	}
}

type runnerFixture struct {
	tracks   *fakeTracks
	exposure *fakeExposure
	store    *memStore
	recorder *fakeRecorder
	metrics  *observability.Metrics
}

func newRunnerFixture() *runnerFixture {
	return &runnerFixture{
		tracks:   &fakeTracks{},
		exposure: &fakeExposure{byCountry: map[string][]domain.ExposurePoint{"BGD": bayOfBengal()}},
		store:    newMemStore(),
		recorder: &fakeRecorder{},
		metrics:  newTestMetrics(),
	}
}

func (f *runnerFixture) runner(boundary pipeline.BoundarySource) *pipeline.Runner {
	return pipeline.NewRunner(pipeline.RunnerConfig{
		Tracks:      f.tracks,
		Exposure:    f.exposure,
		Store:       f.store,
		Boundary:    boundary,
		Recorder:    f.recorder,
		Parallelism: 2,
		Logger:      discardLogger(),
		Metrics:     f.metrics,
	})
}

func freezeClock(t *testing.T) clockwork.Clock {
	t.Helper()
	clk := clockwork.NewFakeClockAt(time.Date(2026, time.May, 20, 6, 0, 0, 0, time.UTC))
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(nil) })
	return clk
}

// --- tests ---

func TestRunner_SyntheticScenario(t *testing.T) {
	clk := freezeClock(t)
	f := newRunnerFixture()

	summary, err := f.runner(nil).Run(context.Background(), syntheticRequest())
	require.NoError(t, err)

	_, err = uuid.Parse(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "Synthetic_Bhola_2035", summary.StormSID)
	assert.Equal(t, "Synthetic Bhola", summary.StormName)
	assert.Equal(t, clk.Now(), summary.StartedAt)
	assert.Equal(t, clk.Now(), summary.CompletedAt)
	assert.Equal(t, 1e6, summary.Threshold)

	require.Len(t, summary.Pathways, 2)
	mid, high := summary.Pathways[0], summary.Pathways[1]
	assert.Equal(t, domain.PathwaySSP245, mid.Pathway)
	assert.Equal(t, "SSP2-4.5", mid.Label)
	assert.Equal(t, domain.PathwaySSP585, high.Pathway)

	for _, ps := range summary.Pathways {
		assert.False(t, ps.Skipped)
		assert.Equal(t, 2, ps.ExposurePoints, "point outside the track window is clipped")
		assert.Equal(t, 1, ps.ZonesAboveThreshold)
		assert.InDelta(t, ps.TotalImpactUSD, ps.ThresholdImpactUSD, 1e-6)
		assert.Len(t, ps.Artifacts, 3)
	}
	assert.InDelta(t, 145*1.05, mid.PeakWindKn, 1e-9)
	assert.InDelta(t, 145*1.15, high.PeakWindKn, 1e-9)
	assert.Greater(t, high.TotalImpactUSD, mid.TotalImpactUSD)

	wantKeys := []string{
		"synthetic-bhola_2035/exposure_ssp245.geojson",
		"synthetic-bhola_2035/exposure_ssp585.geojson",
		"synthetic-bhola_2035/impact_ssp245.geojson",
		"synthetic-bhola_2035/impact_ssp585.geojson",
		"synthetic-bhola_2035/track_ssp245.geojson",
		"synthetic-bhola_2035/track_ssp585.geojson",
	}
	assert.ElementsMatch(t, wantKeys, keys(f.store.files))
	assert.Equal(t, "mem://synthetic-bhola_2035/impact_ssp585.geojson", high.Artifacts[domain.ArtifactImpact])

	require.Len(t, f.recorder.recorded, 1)
	if diff := cmp.Diff(summary, f.recorder.recorded[0]); diff != "" {
		t.Fatalf("recorded summary mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("success")))
	assert.Equal(t, 6.0, sumArtifacts(f.metrics))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ZonesAboveThreshold.WithLabelValues("ssp585")))
}

func TestRunner_ArtifactsValidate(t *testing.T) {
	freezeClock(t)
	f := newRunnerFixture()
	req := syntheticRequest()

	_, err := f.runner(nil).Run(context.Background(), req)
	require.NoError(t, err)

	for key, data := range f.store.files {
		fc, err := artifact.Decode(data)
		require.NoError(t, err, key)
		assert.Empty(t, artifact.Validate(fc, req.Threshold), key)
		assert.Equal(t, "Synthetic_Bhola_2035", fc.ExtraMembers["storm_sid"], key)
	}

	fc, err := artifact.Decode(f.store.files["synthetic-bhola_2035/impact_ssp245.geojson"])
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{90.3, 21.0}, fc.Features[0].Geometry)

	track, err := artifact.Decode(f.store.files["synthetic-bhola_2035/track_ssp585.geojson"])
	require.NoError(t, err)
	assert.Len(t, track.Features, 15)
}

func TestRunner_SkipsPathwayBelowThreshold(t *testing.T) {
	freezeClock(t)
	f := newRunnerFixture()
	req := syntheticRequest()
	req.Threshold = 1e12

	summary, err := f.runner(nil).Run(context.Background(), req)
	require.NoError(t, err)

	for _, ps := range summary.Pathways {
		assert.True(t, ps.Skipped)
		assert.Zero(t, ps.ZonesAboveThreshold)
		assert.Empty(t, ps.Artifacts)
		assert.Positive(t, ps.TotalImpactUSD)
	}
	assert.Empty(t, f.store.files)
}

func TestRunner_HistoricalPathwayKeepsTrack(t *testing.T) {
	freezeClock(t)
	f := newRunnerFixture()
	req := syntheticRequest()
	req.Pathways = []domain.Pathway{domain.PathwayHistorical}

	summary, err := f.runner(nil).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, summary.Pathways, 1)
	assert.Equal(t, 145.0, summary.Pathways[0].PeakWindKn)
	assert.True(t, summary.Pathways[0].Modifier.Identity())
}

func TestRunner_TrackFromSource(t *testing.T) {
	freezeClock(t)
	f := newRunnerFixture()
	track := domain.SyntheticBholaTrack()
	track.SID = "1970305N13087"
	track.Name = "BHOLA"
	f.tracks.track = track

	req := syntheticRequest()
	req.Synthetic = false
	req.Scenario = domain.Scenario{Name: "bhola", Year: 1970, Basin: "ni", Countries: []string{"bgd"}}

	summary, err := f.runner(nil).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1970/NI/bhola", f.tracks.query)
	assert.Equal(t, "1970305N13087", summary.StormSID)
	assert.Contains(t, keys(f.store.files), "bhola_1970/impact_ssp245.geojson")
}

func TestRunner_BoundaryOverlay(t *testing.T) {
	freezeClock(t)

	t.Run("exported when non-empty", func(t *testing.T) {
		f := newRunnerFixture()
		overlay := geojson.NewFeatureCollection()
		feat := geojson.NewFeature(orb.Polygon{{{90, 21}, {91, 21}, {91, 22}, {90, 21}}})
		feat.Properties["ADMIN"] = "Bangladesh"
		overlay.Append(feat)
		b := &fakeBoundary{fc: overlay}

		summary, err := f.runner(b).Run(context.Background(), syntheticRequest())
		require.NoError(t, err)
		assert.Equal(t, []string{"BGD"}, b.countries)
		assert.Len(t, summary.Pathways[0].Artifacts, 4)
		assert.Contains(t, keys(f.store.files), "synthetic-bhola_2035/boundary_ssp245.geojson")
	})

	t.Run("omitted when empty", func(t *testing.T) {
		f := newRunnerFixture()
		b := &fakeBoundary{fc: geojson.NewFeatureCollection()}

		summary, err := f.runner(b).Run(context.Background(), syntheticRequest())
		require.NoError(t, err)
		assert.NotContains(t, summary.Pathways[0].Artifacts, domain.ArtifactBoundary)
	})
}

func TestRunner_RecorderFailureIsNotFatal(t *testing.T) {
	freezeClock(t)
	f := newRunnerFixture()
	f.recorder.err = errors.New("connection refused")

	_, err := f.runner(nil).Run(context.Background(), syntheticRequest())
	require.NoError(t, err)
	assert.Len(t, f.recorder.recorded, 1)
}

func TestRunner_Errors(t *testing.T) {
	freezeClock(t)

	tests := []struct {
		name    string
		mutate  func(f *runnerFixture, req *domain.ScenarioRequest)
		wantIs  error
		wantMsg string
	}{
		{
			name:   "invalid scenario",
			mutate: func(_ *runnerFixture, req *domain.ScenarioRequest) { req.Basin = "XX" },
			wantIs: domain.ErrInvalidScenario,
		},
		{
			name:   "no pathways",
			mutate: func(_ *runnerFixture, req *domain.ScenarioRequest) { req.Pathways = nil },
			wantIs: domain.ErrInvalidScenario,
		},
		{
			name: "storm not found",
			mutate: func(f *runnerFixture, req *domain.ScenarioRequest) {
				req.Synthetic = false
				f.tracks.err = fmt.Errorf("%w: NOPE", domain.ErrStormNotFound)
			},
			wantIs: domain.ErrStormNotFound,
		},
		{
			name: "empty track",
			mutate: func(f *runnerFixture, req *domain.ScenarioRequest) {
				req.Synthetic = false
				f.tracks.track = domain.Track{SID: "EMPTY"}
			},
			wantIs: domain.ErrEmptyTrack,
		},
		{
			name: "missing country table",
			mutate: func(_ *runnerFixture, req *domain.ScenarioRequest) {
				req.Countries = []string{"BGD", "MMR"}
			},
			wantMsg: "exposure MMR",
		},
		{
			name: "no exposure in window",
			mutate: func(f *runnerFixture, _ *domain.ScenarioRequest) {
				f.exposure.byCountry["BGD"] = bayOfBengal()[2:]
			},
			wantIs: domain.ErrNoExposure,
		},
		{
			name:    "store failure",
			mutate:  func(f *runnerFixture, _ *domain.ScenarioRequest) { f.store.err = errors.New("disk full") },
			wantMsg: "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunnerFixture()
			req := syntheticRequest()
			tt.mutate(f, &req)

			_, err := f.runner(nil).Run(context.Background(), req)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, f.recorder.recorded)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("error")))
		})
	}
}

func TestRunner_NoTrackSource(t *testing.T) {
	r := pipeline.NewRunner(pipeline.RunnerConfig{
		Exposure: &fakeExposure{},
		Store:    newMemStore(),
		Logger:   discardLogger(),
		Metrics:  newTestMetrics(),
	})
	req := syntheticRequest()
	req.Synthetic = false

	_, err := r.Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no track source")
}

func TestRunner_Cancelled(t *testing.T) {
	f := newRunnerFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner(nil).Run(ctx, syntheticRequest())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner_Defaults(t *testing.T) {
	// A zero model and impact function fall back to the defaults, so a run
	// with an explicit default model produces identical totals.
	freezeClock(t)
	a := newRunnerFixture()
	b := newRunnerFixture()

	explicit := pipeline.NewRunner(pipeline.RunnerConfig{
		Exposure:   b.exposure,
		Store:      b.store,
		Model:      hazard.DefaultModel(),
		ImpactFunc: hazard.EmanuelUSA(),
		Logger:     discardLogger(),
		Metrics:    b.metrics,
	})

	s1, err := a.runner(nil).Run(context.Background(), syntheticRequest())
	require.NoError(t, err)
	s2, err := explicit.Run(context.Background(), syntheticRequest())
	require.NoError(t, err)
	assert.Equal(t, s1.Pathways[1].TotalImpactUSD, s2.Pathways[1].TotalImpactUSD)
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sumArtifacts(m *observability.Metrics) float64 {
	var total float64
	for _, kind := range []domain.ArtifactKind{domain.ArtifactTrack, domain.ArtifactExposure, domain.ArtifactImpact, domain.ArtifactBoundary} {
		total += testutil.ToFloat64(m.ArtifactsWritten.WithLabelValues(string(kind)))
	}
	return total
}
