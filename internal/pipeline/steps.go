package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nao1215/blockphrase/internal/classifier"
	"github.com/nao1215/blockphrase/internal/dom"
	"github.com/nao1215/blockphrase/internal/embedding"
	"github.com/nao1215/blockphrase/internal/page"
	"github.com/nao1215/blockphrase/internal/store"
)

// LoadStep reads the target into run.Page.
type LoadStep struct {
	loader *page.Loader
}

// NewLoadStep creates a step that loads pages with loader.
func NewLoadStep(loader *page.Loader) *LoadStep {
	return &LoadStep{loader: loader}
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do loads the page.
func (s *LoadStep) Do(ctx context.Context, run *Run) error {
	p, err := s.loader.Load(ctx, run.Target)
	if err != nil {
		return err
	}
	run.Page = p
	return nil
}

// RedactStep parses the page, classifies its text blocks on a fresh event
// loop and renders the redacted document into run.Output.
type RedactStep struct {
	storage  *store.Storage
	provider embedding.Provider
	selector string
	mode     classifier.Mode
	options  []classifier.Option
	logger   *slog.Logger
}

// RedactStepOption configures a RedactStep.
type RedactStepOption func(*RedactStep)

// WithRedactSelector sets the CSS selector of the scan root.
func WithRedactSelector(selector string) RedactStepOption {
	return func(s *RedactStep) {
		s.selector = selector
	}
}

// WithRedactMode sets the matching mode.
func WithRedactMode(mode classifier.Mode) RedactStepOption {
	return func(s *RedactStep) {
		s.mode = mode
	}
}

// WithRedactLogger sets a custom logger for the step and its classifier.
func WithRedactLogger(logger *slog.Logger) RedactStepOption {
	return func(s *RedactStep) {
		s.logger = logger
	}
}

// WithClassifierOptions passes extra options to every orchestrator the step
// creates.
func WithClassifierOptions(opts ...classifier.Option) RedactStepOption {
	return func(s *RedactStep) {
		s.options = append(s.options, opts...)
	}
}

// NewRedactStep creates a redaction step. provider may be nil in literal mode.
func NewRedactStep(storage *store.Storage, provider embedding.Provider, opts ...RedactStepOption) *RedactStep {
	s := &RedactStep{
		storage:  storage,
		provider: provider,
		selector: page.DefaultSelector,
		mode:     classifier.ModeSemantic,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *RedactStep) Name() string {
	return "redact"
}

// Do classifies the page. When redaction is disabled in the settings the
// page is passed through unchanged.
func (s *RedactStep) Do(ctx context.Context, run *Run) error {
	if run.Page == nil {
		return ErrNoPage
	}
	run.Report.Mode = string(s.mode)

	loop := dom.NewLoop()
	doc, err := dom.Parse(run.Page.Reader(), loop)
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}
	run.Report.Title = page.Title(doc)
	root, err := page.ScanRoot(doc, s.selector)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = loop.Run(loopCtx) //nolint:errcheck // cancellation is reported by the caller's ctx
	}()
	defer func() {
		loop.Close()
		<-loop.Stopped()
	}()

	opts := []classifier.Option{
		classifier.WithScanRoot(root),
		classifier.WithMode(s.mode),
		classifier.WithLogger(s.logger.With("target", run.Target)),
		classifier.WithVerdictHandler(run.Report.Add),
	}
	orch := classifier.New(s.storage, s.provider, doc, append(opts, s.options...)...)

	if err := orch.Start(ctx); err != nil {
		if errors.Is(err, classifier.ErrDisabled) {
			s.logger.Warn("redaction is disabled, writing page unchanged", "target", run.Target)
			run.Report.Disabled = true
			run.Output = run.Page.Body
			return nil
		}
		return err
	}

	err = orch.WaitIdle(ctx)
	orch.Stop()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	var renderErr error
	if err := loop.Do(ctx, func() {
		renderErr = doc.Render(&buf)
	}); err != nil {
		return err
	}
	if renderErr != nil {
		return fmt.Errorf("failed to render page: %w", renderErr)
	}
	run.Output = buf.Bytes()
	return nil
}

// StdoutName is recorded as the report output when pages go to stdout.
const StdoutName = "stdout"

// WriteStep writes run.Output into a directory, or to a writer when no
// directory is set.
type WriteStep struct {
	dir    string
	w      io.Writer
	mu     *sync.Mutex
	logger *slog.Logger

	// claimed holds the file names already handed out, guarded by mu.
	claimed map[string]bool
}

// WriteStepOption configures a WriteStep.
type WriteStepOption func(*WriteStep)

// WithOutputDir writes each page to dir using page.OutputName. Pages whose
// names collide get a numeric suffix, so no page overwrites another.
func WithOutputDir(dir string) WriteStepOption {
	return func(s *WriteStep) {
		s.dir = dir
	}
}

// WithWriter sets the writer used when no output directory is set.
func WithWriter(w io.Writer) WriteStepOption {
	return func(s *WriteStep) {
		s.w = w
	}
}

// WithWriteLogger sets a custom logger for the step.
func WithWriteLogger(logger *slog.Logger) WriteStepOption {
	return func(s *WriteStep) {
		s.logger = logger
	}
}

// NewWriteStep creates a write step. Pages go to os.Stdout by default.
// A WriteStep may be shared by concurrent pipelines.
func NewWriteStep(opts ...WriteStepOption) *WriteStep {
	s := &WriteStep{
		w:       os.Stdout,
		mu:      &sync.Mutex{},
		logger:  slog.Default(),
		claimed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Do writes the rendered page.
func (s *WriteStep) Do(_ context.Context, run *Run) error {
	if run.Output == nil {
		return ErrNoOutput
	}

	if s.dir == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, err := s.w.Write(run.Output); err != nil {
			return fmt.Errorf("failed to write page: %w", err)
		}
		run.Report.Output = StdoutName
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	name := page.OutputName(run.Target)
	path := filepath.Join(s.dir, s.claim(name))
	if err := os.WriteFile(path, run.Output, 0o600); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	s.logger.Debug("page written", "target", run.Target, "path", path)
	run.Report.Output = path
	return nil
}

// claim reserves name, or the first free "name-N.ext" when another page of
// this step already took it.
func (s *WriteStep) claim(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; s.claimed[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	s.claimed[candidate] = true
	return candidate
}
