package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/blockphrase/internal/dom"
	"github.com/nao1215/blockphrase/internal/embedding"
	"github.com/nao1215/blockphrase/internal/model"
	"github.com/nao1215/blockphrase/internal/redact"
	"github.com/nao1215/blockphrase/internal/store"
	"github.com/nao1215/blockphrase/internal/watcher"
)

const (
	// DefaultRequestTimeout bounds one embedding request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultConcurrency is the number of embedding requests in flight.
	DefaultConcurrency = 4
)

// Orchestrator classifies the text blocks of one document for the lifetime
// of one page view.
//
// Start, WaitIdle and Stop may be called from any goroutine. Classify must
// be called on the document's event loop.
type Orchestrator struct {
	storage  *store.Storage
	provider embedding.Provider
	doc      *dom.Document
	root     *html.Node

	logger         *slog.Logger
	mode           Mode
	minCharacters  int
	minSimilarity  float64
	requestTimeout time.Duration
	concurrency    int64
	onVerdict      func(model.Verdict)

	sem     *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	stopped atomic.Bool
	stopMu  sync.Mutex

	// Owned by the event loop.
	matcher     Matcher
	processed   *ProcessedSet
	watcher     *watcher.Watcher
	inflight    int
	idleWaiters []chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScanRoot limits classification to the subtree of root.
// The default is the document body.
func WithScanRoot(root *html.Node) Option {
	return func(o *Orchestrator) {
		o.root = root
	}
}

// WithLogger sets the logger. Per-node diagnostics are logged at Debug.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMode selects semantic or literal matching.
func WithMode(mode Mode) Option {
	return func(o *Orchestrator) {
		o.mode = mode
	}
}

// WithMinCharacters sets the shortest own text that is matched.
func WithMinCharacters(n int) Option {
	return func(o *Orchestrator) {
		o.minCharacters = n
	}
}

// WithMinSimilarity sets the similarity at which a block is hidden.
func WithMinSimilarity(score float64) Option {
	return func(o *Orchestrator) {
		o.minSimilarity = score
	}
}

// WithRequestTimeout bounds each embedding request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.requestTimeout = d
	}
}

// WithConcurrency limits the number of embedding requests in flight.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = int64(n)
		}
	}
}

// WithVerdictHandler registers fn to receive every verdict. fn runs on the
// event loop.
func WithVerdictHandler(fn func(model.Verdict)) Option {
	return func(o *Orchestrator) {
		o.onVerdict = fn
	}
}

// New creates an Orchestrator for doc. provider may be nil in literal mode.
func New(storage *store.Storage, provider embedding.Provider, doc *dom.Document, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		storage:        storage,
		provider:       provider,
		doc:            doc,
		logger:         slog.Default(),
		mode:           ModeSemantic,
		minCharacters:  DefaultMinCharacters,
		minSimilarity:  DefaultMinSimilarity,
		requestTimeout: DefaultRequestTimeout,
		concurrency:    DefaultConcurrency,
		processed:      NewProcessedSet(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.sem = semaphore.NewWeighted(o.concurrency)
	return o
}

// Start loads the settings, prepares the matcher, classifies every element
// under the scan root and starts watching for insertions. Requests made
// later are cancelled when ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	loop := o.doc.Loop()
	if loop == nil {
		return ErrNoLoop
	}
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	settings, err := o.storage.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.ExtensionEnabled {
		return ErrDisabled
	}

	matcher, err := o.prepareMatcher(ctx, settings)
	if err != nil {
		if errors.Is(err, ErrConfigMissing) {
			o.logger.Error("blocking not configured", "error", err)
		}
		return err
	}

	o.stopMu.Lock()
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.stopMu.Unlock()

	return loop.Do(ctx, func() {
		o.matcher = matcher
		root := o.scanRoot()

		o.Classify(root)
		for _, n := range dom.Elements(root) {
			o.Classify(n)
		}

		o.watcher = watcher.New(o.doc, root, o, watcher.WithLogger(o.logger))
		o.watcher.Start()
	})
}

// prepareMatcher builds the matcher for the configured mode. In semantic
// mode it reuses the cached phrase vector or refreshes it.
func (o *Orchestrator) prepareMatcher(ctx context.Context, settings model.Settings) (Matcher, error) {
	switch o.mode {
	case ModeLiteral:
		m := NewWordMatcher(settings.BlockedWords)
		if m.Empty() {
			return nil, fmt.Errorf("%w: no blocked words", ErrConfigMissing)
		}
		return m, nil
	case ModeSemantic:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, o.mode)
	}

	if strings.TrimSpace(settings.BlockedPhrase) == "" {
		return nil, fmt.Errorf("%w: no blocked phrase", ErrConfigMissing)
	}
	if o.provider == nil {
		return nil, fmt.Errorf("%w: no embedding provider", ErrConfigMissing)
	}
	if settings.APIKey == "" && o.provider.Name() != embedding.ProviderOllama {
		return nil, fmt.Errorf("%w: no api key", ErrConfigMissing)
	}

	vector, err := o.phraseVector(ctx, settings)
	if err != nil {
		return nil, err
	}
	return NewSemanticMatcher(o.provider, settings.APIKey, vector, o.minSimilarity), nil
}

// phraseVector returns the embedding of the blocked phrase, recomputing it
// when the cache belongs to another phrase or another embedding model.
func (o *Orchestrator) phraseVector(ctx context.Context, settings model.Settings) ([]float64, error) {
	cache, err := o.storage.CachedEmbedding(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCorruptValue) {
			return nil, fmt.Errorf("failed to load cached embedding: %w", err)
		}
		o.logger.Warn("ignoring corrupt cached embedding", "error", err)
		cache = nil
	}

	modelID := model.EmbeddingModelID(o.provider.Name(), o.provider.Model())
	if !cache.Stale(settings.BlockedPhrase, modelID) {
		o.logger.Debug("using cached phrase embedding", "model", modelID, "dimensions", len(cache.Vector))
		return cache.Vector, nil
	}
	if cache != nil && cache.Phrase == settings.BlockedPhrase {
		o.logger.Debug("embedding model changed, refreshing phrase embedding", "cached", cache.Model, "model", modelID)
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	vector, err := o.provider.Embed(reqCtx, strings.TrimSpace(settings.BlockedPhrase), settings.APIKey)
	if err != nil {
		o.logger.Error("failed to embed blocked phrase", "error", err)
		return nil, fmt.Errorf("failed to embed blocked phrase: %w", err)
	}

	err = o.storage.SaveCachedEmbedding(ctx, model.CachedEmbedding{
		Phrase: settings.BlockedPhrase,
		Model:  modelID,
		Vector: vector,
	})
	if err != nil {
		o.logger.Warn("failed to cache phrase embedding", "error", err)
	}
	return vector, nil
}

func (o *Orchestrator) scanRoot() *html.Node {
	if o.root != nil {
		return o.root
	}
	return o.doc.Body()
}

// Classify runs the checks for n and submits it for matching when it
// passes them. It must be called on the event loop.
func (o *Orchestrator) Classify(n *html.Node) {
	if o.stopped.Load() || o.matcher == nil || !dom.IsElement(n) {
		return
	}
	if o.processed.Seen(n) {
		o.logger.Debug("node already processed", "path", dom.Path(n))
		return
	}

	verdict := model.Verdict{Path: dom.Path(n), Tag: dom.Tag(n)}

	text, reason := eligible(n, o.minCharacters)
	if reason != model.SkipNone {
		o.processed.MarkDone(n)
		verdict.Skip = reason
		if reason == model.SkipTooShort {
			verdict.Text = text
		}
		o.emit(verdict)
		return
	}

	verdict.Text = text
	o.processed.MarkPending(n)
	o.inflight++
	go o.match(n, verdict, time.Now())
}

// match runs on a worker goroutine and posts the result to the loop.
func (o *Orchestrator) match(n *html.Node, verdict model.Verdict, submitted time.Time) {
	result, err := o.runMatcher(verdict.Text)

	posted := o.doc.Loop().Post(func() {
		o.complete(n, verdict, result, err, submitted)
	})
	if !posted {
		o.logger.Debug("event loop closed before result was applied", "path", verdict.Path)
	}
}

func (o *Orchestrator) runMatcher(text string) (Match, error) {
	if err := o.sem.Acquire(o.ctx, 1); err != nil {
		return Match{}, err
	}
	defer o.sem.Release(1)

	ctx, cancel := context.WithTimeout(o.ctx, o.requestTimeout)
	defer cancel()

	return o.matcher.Match(ctx, text)
}

// complete applies a match result. It runs on the event loop.
func (o *Orchestrator) complete(n *html.Node, verdict model.Verdict, result Match, err error, submitted time.Time) {
	o.processed.MarkDone(n)
	verdict.Elapsed = time.Since(submitted)

	switch {
	case err != nil:
		verdict.Err = err.Error()
		if !o.stopped.Load() {
			o.logger.Warn("failed to classify text block", "path", verdict.Path, "error", err)
		}
	case o.stopped.Load():
		// The page is gone; the result is recorded but not applied.
	default:
		verdict.Score = result.Score
		verdict.MatchedTerm = result.Term
		if result.Blocked {
			redact.Apply(n)
			verdict.Blocked = true
		}
	}

	o.emit(verdict)

	o.inflight--
	if o.inflight == 0 {
		for _, ch := range o.idleWaiters {
			close(ch)
		}
		o.idleWaiters = nil
	}
}

func (o *Orchestrator) emit(v model.Verdict) {
	attrs := []any{"path", v.Path, "tag", v.Tag}
	if v.Skip != model.SkipNone {
		attrs = append(attrs, "skip", v.Skip.String())
	} else {
		attrs = append(attrs, "text", v.Text, "score", v.Score, "blocked", v.Blocked)
		if v.MatchedTerm != "" {
			attrs = append(attrs, "term", v.MatchedTerm)
		}
		if v.Err != "" {
			attrs = append(attrs, "error", v.Err)
		}
	}
	o.logger.Debug("text block classified", attrs...)

	if o.onVerdict != nil {
		o.onVerdict(v)
	}
}

// WaitIdle blocks until every pending mutation has been delivered and no
// request is in flight.
func (o *Orchestrator) WaitIdle(ctx context.Context) error {
	loop := o.doc.Loop()
	if loop == nil {
		return ErrNoLoop
	}

	idle := make(chan struct{})
	err := loop.Do(ctx, func() {
		if o.inflight == 0 {
			close(idle)
			return
		}
		o.idleWaiters = append(o.idleWaiters, idle)
	})
	if err != nil {
		return err
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loop.Stopped():
		return dom.ErrLoopClosed
	}
}

// Stop cancels requests in flight and stops watching the document. Results
// that arrive afterwards are not applied.
func (o *Orchestrator) Stop() {
	if !o.stopped.CompareAndSwap(false, true) {
		return
	}

	o.stopMu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.stopMu.Unlock()

	if loop := o.doc.Loop(); loop != nil {
		loop.Post(func() {
			if o.watcher != nil {
				o.watcher.Stop()
			}
		})
	}
}

// Processed returns the number of nodes recorded so far. It must be called
// on the event loop.
func (o *Orchestrator) Processed() int {
	return o.processed.Len()
}
