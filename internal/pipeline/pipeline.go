package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/blockphrase/internal/model"
	"github.com/nao1215/blockphrase/internal/page"
)

// Run is the state passed between steps for one page.
type Run struct {
	// Target is the file path, URL or "-" being processed.
	Target string

	// Page is set by LoadStep.
	Page *page.Page

	// Output is the rendered page, set by RedactStep.
	Output []byte

	// Report collects verdicts and the outcome of the run.
	Report *model.PageReport

	// Steps lists the names of steps that ran, in order.
	Steps []string
}

// NewRun creates a Run for target.
func NewRun(target string) *Run {
	return &Run{
		Target: target,
		Report: model.NewPageReport(target),
	}
}

// Step is one stage of a page run.
type Step interface {
	// Do executes the step. Returning an error marks the run as failed.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing later steps after one fails.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. The error is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Context cancellation is checked before
// each step. The first error is recorded in run.Report and returned unless
// the pipeline continues on error.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	defer func() {
		run.Report.FinishedAt = time.Now()
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			run.Report.Error = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"target", run.Target,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"target", run.Target,
				"error", err,
			)
			if run.Report.Error == "" {
				run.Report.Error = err.Error()
			}
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"target", run.Target,
			)
		}

		run.Steps = append(run.Steps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
