package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deanwagman/peregrine/internal/domain"
	"github.com/deanwagman/peregrine/internal/pipeline"
)

// Request describes one aggregation run.
type Request struct {
	Models     []string
	Properties []string
	// Command and User identify the run in the audit log.
	Command string
	User    string
}

// Report is the outcome of a run.
type Report struct {
	Result   domain.Result `json:"result"`
	Warnings []string      `json:"warnings,omitempty"`
	Entities int           `json:"entities"`
}

// Aggregator runs the filter-and-aggregate pipeline over an in-memory
// collection or a record source.
type Aggregator struct {
	source   RecordSource
	recorder InvocationRecorder
	logger   *zap.SugaredLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSource sets the record source used by FromStore.
func WithSource(source RecordSource) Option {
	return func(a *Aggregator) { a.source = source }
}

// WithRecorder sets the audit recorder.
func WithRecorder(recorder InvocationRecorder) Option {
	return func(a *Aggregator) { a.recorder = recorder }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FromEntities filters and aggregates a full entity collection.
func (a *Aggregator) FromEntities(ctx context.Context, entities []domain.Entity, req Request) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	outcome := pipeline.Run(entities, pipeline.Request{Models: req.Models, Properties: req.Properties})
	report := a.report(outcome)
	a.record(ctx, req)
	return report, nil
}

// FromStore pushes model and property filters down to the record source and
// aggregates what comes back. With no requested models every stored model is
// read. Models are queried concurrently; records are combined in model order.
func (a *Aggregator) FromStore(ctx context.Context, req Request) (Report, error) {
	if a.source == nil {
		return Report{}, errors.New("record source is not configured")
	}

	filters, skipped := pipeline.ParseFilters(req.Properties)

	models := req.Models
	if len(models) == 0 {
		all, err := a.source.Models(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("failed to list models: %w", err)
		}
		models = all
	}
	models = dedupe(models)

	slots := make([][]domain.Record, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, model := range models {
		g.Go(func() error {
			records, err := a.source.Query(gctx, model, filters)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", model, err)
			}
			slots[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var records []domain.Record
	for _, slot := range slots {
		records = append(records, slot...)
	}

	report := a.report(pipeline.RunRecords(records, skipped))
	a.record(ctx, req)
	return report, nil
}

func (a *Aggregator) report(outcome pipeline.Outcome) Report {
	report := Report{Result: outcome.Result, Entities: outcome.Matched}
	for _, skipped := range outcome.Skipped {
		a.logger.Warnw("Ignoring property filter", "expression", skipped.Expression, "reason", skipped.Reason)
		report.Warnings = append(report.Warnings, skipped.Error())
	}
	a.logger.Debugw("Aggregated entities", "entities", report.Entities, "properties", len(report.Result))
	return report
}

// record never fails the run.
func (a *Aggregator) record(ctx context.Context, req Request) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordInvocation(ctx, req.Command, req.User); err != nil {
		a.logger.Warnw("Failed to record invocation", "command", req.Command, "error", err)
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
