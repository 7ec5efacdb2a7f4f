package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/blockphrase/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of pages processed at once when
// WithConcurrency is not given.
const DefaultBatchConcurrency = 4

// BatchProcessor runs a fresh pipeline per target, several at a time.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for each target.
	pipelineFactory func() *Pipeline

	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages processed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs every target and returns their reports in target order.
// A failing page does not stop the others; its error is in its report.
// Targets not started because ctx was cancelled have a nil report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.PageReport, error) {
	results := make([]*model.PageReport, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.PageReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback runs every target and calls callback as each one
// finishes. callback is called from worker goroutines.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.PageReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_pages", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			run := NewRun(target)
			if err := bp.pipelineFactory().Execute(ctx, run); err != nil {
				bp.logger.Warn("page failed",
					"target", target,
					"error", err,
				)
			}
			callback(run.Report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_pages", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
