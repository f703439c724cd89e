// Package app builds the adapters and scenario runner shared by the
// service and the command-line tools from a Config.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/boundary"
	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/exposure"
	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/ibtracs"
	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/postgres"
	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/store"
	"github.com/couchcryptid/cyclone-impact-service/internal/config"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/hazard"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
	"github.com/couchcryptid/cyclone-impact-service/internal/pipeline"
)

const ibtracsDownloadTimeout = 10 * time.Minute

// Components are the wired dependencies of a scenario run.
type Components struct {
	Tracks   *ibtracs.Source
	Exposure domain.ExposureSource
	Store    pipeline.ArtifactStore
	Ledger   *postgres.Ledger // nil without DATABASE_URL
	Runner   *pipeline.Runner

	closers []func() error
}

// Build wires the track source, the exposure chain (client, optional Redis,
// in-memory LRU), the artifact store, the optional boundary overlay and run
// ledger, and the runner.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Components, error) {
	c := &Components{
		Tracks: ibtracs.NewSource(cfg.IBTrACSPath, cfg.IBTrACSURL, cfg.IBTrACSProvider, ibtracsDownloadTimeout, logger),
	}

	var src domain.ExposureSource = exposure.NewClient(cfg.ExposureDir, cfg.ExposureBaseURL, cfg.ExposureTimeout, metrics, logger)
	if cfg.RedisURL != "" {
		rdb, err := exposure.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rdb.Close)
		src = exposure.NewRedisSource(src, rdb, cfg.ExposureCacheTTL, metrics, logger)
		logger.Info("redis exposure cache enabled", "ttl", cfg.ExposureCacheTTL)
	}
	c.Exposure = exposure.NewCachedSource(src, cfg.ExposureCacheSize, metrics)

	if cfg.S3Bucket != "" {
		uploader, err := store.NewS3Uploader(cfg.AWSRegion)
		if err != nil {
			c.Close(logger)
			return nil, err
		}
		c.Store = store.NewS3Store(uploader, cfg.S3Bucket, cfg.S3Prefix)
		logger.Info("writing artifacts to s3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	} else {
		c.Store = store.NewLocalStore(cfg.OutputDir)
		logger.Info("writing artifacts to directory", "dir", cfg.OutputDir)
	}

	runnerCfg := pipeline.RunnerConfig{
		Tracks:   c.Tracks,
		Exposure: c.Exposure,
		Store:    c.Store,
		Model: hazard.Model{
			MaxDistanceKm:      hazard.DefaultMaxDistanceKm,
			IntensityThreshold: hazard.DefaultIntensityThreshold,
			TimeStep:           hazard.DefaultTimeStep,
			Workers:            cfg.WindFieldWorkers,
		},
		ImpactFunc:  hazard.EmanuelUSA(),
		Parallelism: cfg.PathwayParallelism,
		Logger:      logger,
		Metrics:     metrics,
	}

	if cfg.BoundaryPath != "" {
		runnerCfg.Boundary = boundary.NewOverlay(cfg.BoundaryPath, logger)
	}

	if cfg.DatabaseURL != "" {
		ledger, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			c.Close(logger)
			return nil, err
		}
		c.closers = append(c.closers, ledger.Close)
		if err := ledger.EnsureSchema(ctx); err != nil {
			c.Close(logger)
			return nil, err
		}
		c.Ledger = ledger
		runnerCfg.Recorder = ledger
		logger.Info("run ledger enabled")
	}

	c.Runner = pipeline.NewRunner(runnerCfg)
	return c, nil
}

// Close releases connections opened by Build.
func (c *Components) Close(logger *slog.Logger) {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("close components", "error", err)
	}
}
