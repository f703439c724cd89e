package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/cyclone-impact-service/internal/artifact"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/hazard"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

// ArtifactStore persists encoded artifacts and returns their location.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// BoundarySource supplies country outlines around the impact zone. An
// empty collection means no overlay.
type BoundarySource interface {
	Boundary(ctx context.Context, countries []string, zones []domain.ImpactZone) *geojson.FeatureCollection
}

// RunRecorder keeps a ledger of completed runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, s domain.RunSummary) error
}

// RunnerConfig wires a Runner. Boundary and Recorder are optional.
type RunnerConfig struct {
	Tracks   domain.TrackSource
	Exposure domain.ExposureSource
	Store    ArtifactStore
	Boundary BoundarySource
	Recorder RunRecorder

	Model       hazard.Model
	ImpactFunc  hazard.ImpactFunc
	Parallelism int // pathways evaluated concurrently

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Runner executes scenario diagnostics: track, exposure, wind field and
// impact for every requested pathway, exporting the tagged artifacts.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a Runner. Zero-valued model settings fall back to
// hazard.DefaultModel and the Emanuel USA impact function.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Model == (hazard.Model{}) {
		cfg.Model = hazard.DefaultModel()
	}
	if cfg.ImpactFunc == (hazard.ImpactFunc{}) {
		cfg.ImpactFunc = hazard.EmanuelUSA()
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Runner{cfg: cfg}
}

// Run executes one scenario request. The request must already carry its
// defaults (see domain.ScenarioRequest.WithDefaults).
func (r *Runner) Run(ctx context.Context, req domain.ScenarioRequest) (summary domain.RunSummary, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		r.cfg.Metrics.Runs.WithLabelValues(outcome).Inc()
		r.cfg.Metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	req.Scenario = req.Scenario.Normalize()
	if err := req.Validate(); err != nil {
		return domain.RunSummary{}, err
	}
	if len(req.Pathways) == 0 {
		return domain.RunSummary{}, fmt.Errorf("%w: no pathways requested", domain.ErrInvalidScenario)
	}

	summary = domain.RunSummary{
		RunID:     uuid.NewString(),
		Scenario:  req.Scenario,
		Threshold: req.Threshold,
		StartedAt: domain.Now(),
	}
	logger := r.cfg.Logger.With("run_id", summary.RunID, "storm", req.Scenario.Slug())

	track, err := r.loadTrack(ctx, req)
	if err != nil {
		return domain.RunSummary{}, err
	}
	summary.StormSID = track.SID
	summary.StormName = track.Name

	bounds, err := track.Bounds(req.BufferDeg)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("track %s: %w", track.SID, err)
	}

	exposure, err := r.loadExposure(ctx, req.Countries, bounds)
	if err != nil {
		return domain.RunSummary{}, err
	}
	r.cfg.Metrics.ExposurePoints.Observe(float64(len(exposure)))
	logger.Info("scenario loaded",
		"storm_sid", track.SID,
		"track_points", len(track.Points),
		"exposure_points", len(exposure),
		"exposure_value", domain.FormatUSD(domain.TotalValue(exposure)),
	)

	centroids := make([]orb.Point, len(exposure))
	for i, e := range exposure {
		centroids[i] = e.Point()
	}

	results := make([]domain.PathwaySummary, len(req.Pathways))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for i, p := range req.Pathways {
		g.Go(func() error {
			ps, err := r.runPathway(gctx, logger, req, track, exposure, centroids, p)
			if err != nil {
				return fmt.Errorf("pathway %s: %w", p, err)
			}
			results[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RunSummary{}, err
	}

	summary.Pathways = results
	summary.CompletedAt = domain.Now()

	if r.cfg.Recorder != nil {
		if err := r.cfg.Recorder.RecordRun(ctx, summary); err != nil {
			logger.Warn("record run failed", "error", err)
		}
	}
	logger.Info("run completed", "pathways", len(results), "duration", time.Since(start))
	return summary, nil
}

func (r *Runner) loadTrack(ctx context.Context, req domain.ScenarioRequest) (domain.Track, error) {
	if req.Synthetic {
		return domain.SyntheticBholaTrack(), nil
	}
	if r.cfg.Tracks == nil {
		return domain.Track{}, errors.New("no track source configured")
	}
	track, err := r.cfg.Tracks.FindStorm(ctx, req.Year, req.Basin, req.Name)
	if err != nil {
		return domain.Track{}, fmt.Errorf("load track: %w", err)
	}
	return track, nil
}

// loadExposure fetches every country, clips each to bounds and merges them.
// A country that cannot be loaded fails the run.
func (r *Runner) loadExposure(ctx context.Context, countries []string, bounds orb.Bound) ([]domain.ExposurePoint, error) {
	sets := make([][]domain.ExposurePoint, 0, len(countries))
	for _, c := range countries {
		points, err := r.cfg.Exposure.Exposure(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("load exposure: %w", err)
		}
		sets = append(sets, domain.ClipExposure(points, bounds))
	}
	merged := domain.MergeExposure(sets...)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w within track bounds for %s", domain.ErrNoExposure, strings.Join(countries, ","))
	}
	return merged, nil
}

func (r *Runner) runPathway(
	ctx context.Context,
	logger *slog.Logger,
	req domain.ScenarioRequest,
	track domain.Track,
	exposure []domain.ExposurePoint,
	centroids []orb.Point,
	p domain.Pathway,
) (domain.PathwaySummary, error) {
	warmed := domain.ApplyPathway(track, p)

	intensity, err := r.cfg.Model.Compute(ctx, warmed, centroids)
	if err != nil {
		return domain.PathwaySummary{}, err
	}
	imp, err := hazard.ComputeImpact(exposure, r.cfg.ImpactFunc, intensity)
	if err != nil {
		return domain.PathwaySummary{}, err
	}
	zones := imp.AboveThreshold(req.Threshold)

	ps := domain.PathwaySummary{
		Pathway:             p,
		Label:               p.Label(),
		Modifier:            p.Modifier(),
		PeakWindKn:          warmed.PeakWind(),
		ExposurePoints:      len(exposure),
		TotalImpactUSD:      imp.Total,
		ThresholdImpactUSD:  hazard.ZoneTotal(zones),
		ZonesAboveThreshold: len(zones),
	}
	r.cfg.Metrics.PathwayImpact.WithLabelValues(string(p)).Set(imp.Total)
	r.cfg.Metrics.ZonesAboveThreshold.WithLabelValues(string(p)).Set(float64(len(zones)))

	logger.Info("total impact",
		"pathway", p.Label(),
		"total", domain.FormatUSD(imp.Total),
		"threshold", domain.FormatUSD(req.Threshold),
		"zones", len(zones),
	)

	if len(zones) == 0 {
		logger.Warn("no zones above threshold, skipping export", "pathway", p.Label())
		ps.Skipped = true
		return ps, nil
	}

	ps.Artifacts, err = r.export(ctx, req, warmed, exposure, zones, p)
	if err != nil {
		return domain.PathwaySummary{}, err
	}
	return ps, nil
}

func (r *Runner) export(
	ctx context.Context,
	req domain.ScenarioRequest,
	track domain.Track,
	exposure []domain.ExposurePoint,
	zones []domain.ImpactZone,
	p domain.Pathway,
) (map[domain.ArtifactKind]string, error) {
	meta := artifact.Meta{Scenario: req.Scenario, Pathway: p, StormSID: track.SID}
	collections := map[domain.ArtifactKind]*geojson.FeatureCollection{
		domain.ArtifactTrack:    artifact.Track(meta, track),
		domain.ArtifactExposure: artifact.Exposure(meta, exposure),
		domain.ArtifactImpact:   artifact.Impact(meta, zones),
	}
	if r.cfg.Boundary != nil {
		overlay := r.cfg.Boundary.Boundary(ctx, req.Countries, zones)
		if overlay != nil && len(overlay.Features) > 0 {
			collections[domain.ArtifactBoundary] = artifact.Boundary(meta, overlay)
		}
	}

	locations := make(map[domain.ArtifactKind]string, len(collections))
	for kind, fc := range collections {
		data, err := artifact.Encode(fc)
		if err != nil {
			return nil, err
		}
		loc, err := r.cfg.Store.Put(ctx, artifact.Key(req.Scenario, kind, p), data)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", kind, err)
		}
		locations[kind] = loc
		r.cfg.Metrics.ArtifactsWritten.WithLabelValues(string(kind)).Inc()
	}
	return locations, nil
}
