package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/nao1215/blockphrase/internal/dom"
	"github.com/nao1215/blockphrase/internal/model"
	"github.com/nao1215/blockphrase/internal/redact"
	"github.com/nao1215/blockphrase/internal/store"
)

const (
	promoText   = "Huge discount offers on all shoes this weekend only"
	weatherText = "The weather tomorrow will be sunny with light winds"
)

// fakeProvider returns a vector close to the "discount offers" direction
// for shopping-related text and an orthogonal one for anything else.
type fakeProvider struct {
	mu        sync.Mutex
	calls     []string
	active    int
	maxActive int

	// model is reported by Model. Empty means "fake-small".
	model string

	// embed overrides the default behaviour when set.
	embed func(ctx context.Context, text string) ([]float64, error)
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Model() string {
	if p.model == "" {
		return "fake-small"
	}
	return p.model
}

func (p *fakeProvider) Embed(ctx context.Context, text, credential string) ([]float64, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	p.active++
	p.maxActive = max(p.maxActive, p.active)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	if credential != "sk-test" {
		return nil, errors.New("bad credential")
	}
	if p.embed != nil {
		return p.embed(ctx, text)
	}
	return shoppingVector(text), nil
}

func shoppingVector(text string) []float64 {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "discount") || strings.Contains(lower, "offer") {
		return []float64{1, 0.1}
	}
	return []float64{0, 1}
}

func (p *fakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakeProvider) MaxActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxActive
}

type harness struct {
	t        *testing.T
	loop     *dom.Loop
	doc      *dom.Document
	kv       *store.MemoryKV
	storage  *store.Storage
	provider *fakeProvider

	mu       sync.Mutex
	verdicts []model.Verdict
}

func newHarness(t *testing.T, page string) *harness {
	t.Helper()

	loop := dom.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		loop.Close()
		<-loop.Stopped()
		cancel()
	})

	doc, err := dom.ParseString(page, loop)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	kv := store.NewMemoryKV()
	return &harness{
		t:        t,
		loop:     loop,
		doc:      doc,
		kv:       kv,
		storage:  store.New(kv),
		provider: &fakeProvider{},
	}
}

func (h *harness) configure(phrase, key string) {
	h.t.Helper()

	ctx := context.Background()
	if phrase != "" {
		if err := h.storage.SetBlockedPhrase(ctx, phrase); err != nil {
			h.t.Fatal(err)
		}
	}
	if key != "" {
		if err := h.storage.SetAPIKey(ctx, key); err != nil {
			h.t.Fatal(err)
		}
	}
}

func (h *harness) orchestrator(opts ...Option) *Orchestrator {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRequestTimeout(5 * time.Second),
		WithVerdictHandler(func(v model.Verdict) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.verdicts = append(h.verdicts, v)
		}),
	}
	o := New(h.storage, h.provider, h.doc, append(base, opts...)...)
	h.t.Cleanup(o.Stop)
	return o
}

func (h *harness) start(o *Orchestrator) {
	h.t.Helper()

	if err := o.Start(context.Background()); err != nil {
		h.t.Fatalf("Start failed: %v", err)
	}
	h.waitIdle(o)
}

func (h *harness) waitIdle(o *Orchestrator) {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.WaitIdle(ctx); err != nil {
		h.t.Fatalf("WaitIdle failed: %v", err)
	}
}

// onLoop runs fn on the event loop and waits for it.
func (h *harness) onLoop(fn func()) {
	h.t.Helper()

	if err := h.loop.Do(context.Background(), fn); err != nil {
		h.t.Fatalf("loop task failed: %v", err)
	}
}

func (h *harness) byID(id string) *html.Node {
	var n *html.Node
	h.onLoop(func() {
		n = dom.Find(h.doc.Root(), func(n *html.Node) bool {
			v, ok := dom.Attr(n, "id")
			return ok && v == id
		})
	})
	if n == nil {
		h.t.Fatalf("element #%s not found", id)
	}
	return n
}

func (h *harness) redacted(id string) bool {
	n := h.byID(id)
	var got bool
	h.onLoop(func() { got = redact.IsRedacted(n) })
	return got
}

func (h *harness) Verdicts() []model.Verdict {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Verdict(nil), h.verdicts...)
}

func (h *harness) verdictFor(text string) (model.Verdict, bool) {
	for _, v := range h.Verdicts() {
		if v.Text == text && v.Skip == model.SkipNone {
			return v, true
		}
	}
	return model.Verdict{}, false
}

func countCalls(calls []string, text string) int {
	n := 0
	for _, c := range calls {
		if c == text {
			n++
		}
	}
	return n
}

func page(body string) string {
	return fmt.Sprintf("<html><head><title>t</title></head><body>%s</body></html>", body)
}
