package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/store"
	"github.com/couchcryptid/cyclone-impact-service/internal/config"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		IBTrACSPath:        filepath.Join("..", "adapter", "ibtracs", "testdata", "ibtracs_sample.csv"),
		IBTrACSProvider:    "usa",
		ExposureDir:        t.TempDir(),
		ExposureCacheSize:  4,
		OutputDir:          t.TempDir(),
		WindFieldWorkers:   2,
		PathwayParallelism: 2,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_LocalDefaults(t *testing.T) {
	cfg := testConfig(t)

	c, err := Build(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	defer c.Close(discardLogger())

	assert.IsType(t, &store.LocalStore{}, c.Store)
	assert.Nil(t, c.Ledger)
	require.NotNil(t, c.Runner)

	track, err := c.Tracks.FindStorm(context.Background(), 2020, "NI", "amphan")
	require.NoError(t, err)
	assert.Equal(t, "AMPHAN", track.Name)
}

func TestBuild_SyntheticRunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	csv := "latitude,longitude,value\n21.0,90.3,1e9\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ExposureDir, "LitPop_BGD.csv"), []byte(csv), 0o644))

	c, err := Build(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	defer c.Close(discardLogger())

	req := domain.ScenarioRequest{
		Scenario:  domain.Scenario{Name: "Synthetic Bhola", Year: 2035, Basin: "NI", Countries: []string{"BGD"}},
		Synthetic: true,
	}.WithDefaults(cfg.RequestDefaults())
	req.Pathways = []domain.Pathway{domain.PathwaySSP245}

	summary, err := c.Runner.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, summary.Pathways, 1)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "synthetic-bhola_2035", "impact_ssp245.geojson"))
}

func TestBuild_InvalidRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not a url"

	_, err := Build(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}
