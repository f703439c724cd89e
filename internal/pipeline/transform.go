package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// ScenarioRunner executes one scenario request.
type ScenarioRunner interface {
	Run(ctx context.Context, req domain.ScenarioRequest) (domain.RunSummary, error)
}

// ScenarioTransformer implements Transformer: it decodes a scenario request,
// runs it and serializes the run summary.
type ScenarioTransformer struct {
	runner   ScenarioRunner
	defaults domain.RequestDefaults
	logger   *slog.Logger
}

// NewTransformer creates a ScenarioTransformer. defaults fill options the
// request leaves unset.
func NewTransformer(runner ScenarioRunner, defaults domain.RequestDefaults, logger *slog.Logger) *ScenarioTransformer {
	return &ScenarioTransformer{
		runner:   runner,
		defaults: defaults,
		logger:   logger,
	}
}

func (t *ScenarioTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseScenarioRequest(raw, t.defaults)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.logger.Info("scenario request received",
		"storm", req.Scenario.Slug(),
		"basin", req.Basin,
		"countries", req.Countries,
		"pathways", req.Pathways,
		"offset", raw.Offset,
	)

	summary, err := t.runner.Run(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return domain.SerializeRunSummary(summary)
}
