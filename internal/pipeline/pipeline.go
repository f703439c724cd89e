package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

// BatchExtractor reads up to batchSize scenario requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a scenario request into a run summary event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader publishes run summaries.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Retry delays after extract or publish failures.
const (
	initialBackoff  = 200 * time.Millisecond
	maxBackoffDelay = 5 * time.Second
)

// Pipeline consumes scenario requests, runs them and publishes summaries.
// A request that fails to run is logged, counted and committed so it is
// not redelivered. Offsets of completed runs are committed only after
// their summaries are published.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a run summary has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no scenario run published yet")
	}
	return nil
}

// Run consumes request batches until the context is cancelled and then
// returns nil. Extract and publish failures are retried with backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := &backoff{delay: initialBackoff}
	for ctx.Err() == nil {
		if !p.step(ctx, retry) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// step handles one batch. It returns false when the pipeline must stop.
func (p *Pipeline) step(ctx context.Context, retry *backoff) bool {
	start := time.Now()

	requests, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	switch {
	case ctx.Err() != nil:
		return false
	case err != nil:
		p.logger.Error("extract batch failed", "error", err, "retry_in", retry.delay)
		return retry.wait(ctx)
	case len(requests) == 0:
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(requests)))
	p.metrics.BatchSize.Observe(float64(len(requests)))
	retry.reset()

	done, ok := p.runAll(ctx, requests)
	if !ok {
		return false
	}
	if len(done.summaries) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, done.summaries); err != nil {
		p.logger.Error("publish run summaries failed", "error", err, "count", len(done.summaries), "retry_in", retry.delay)
		return retry.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(done.summaries)))
	p.logger.Info("run summaries published", "count", len(done.summaries))

	for _, raw := range done.requests {
		p.commit(ctx, raw)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// completed pairs each published summary with the request that produced it.
type completed struct {
	summaries []domain.OutputEvent
	requests  []domain.RawEvent
}

// runAll runs every request of a batch in order. Failed requests are
// committed straight away. It reports false when shutdown interrupted a run;
// that request stays uncommitted for redelivery.
func (p *Pipeline) runAll(ctx context.Context, requests []domain.RawEvent) (completed, bool) {
	done := completed{
		summaries: make([]domain.OutputEvent, 0, len(requests)),
		requests:  make([]domain.RawEvent, 0, len(requests)),
	}

	for _, raw := range requests {
		started := time.Now()
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return completed{}, false
			}
			p.reject(raw, err)
			p.commit(ctx, raw)
			continue
		}
		p.logger.Debug("scenario run finished",
			"key", string(raw.Key),
			"offset", raw.Offset,
			"elapsed", time.Since(started),
		)
		done.summaries = append(done.summaries, out)
		done.requests = append(done.requests, raw)
	}
	return done, true
}

func (p *Pipeline) reject(raw domain.RawEvent, err error) {
	p.metrics.TransformErrors.Inc()
	msg := "scenario run failed, skipping request"
	if errors.Is(err, domain.ErrInvalidScenario) {
		msg = "invalid scenario request, skipping"
	}
	p.logger.Warn(msg,
		"error", err,
		"key", string(raw.Key),
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	)
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// backoff doubles its delay after every wait, up to maxBackoffDelay.
type backoff struct {
	delay time.Duration
}

func (b *backoff) reset() { b.delay = initialBackoff }

// wait sleeps for the current delay. It returns false if ctx ends first.
func (b *backoff) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	b.delay = min(b.delay*2, maxBackoffDelay)
	return true
}
