package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/blockphrase/internal/embedding"
	"github.com/nao1215/blockphrase/internal/model"
	"github.com/nao1215/blockphrase/internal/store"
)

// TestStartConfiguration tests the checks made before any node is touched.
func TestStartConfiguration(t *testing.T) {
	t.Parallel()

	body := page(`<p id="promo">` + promoText + `</p>`)

	t.Run("missing phrase", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		h.configure("", "sk-test")
		o := h.orchestrator()

		if err := o.Start(context.Background()); !errors.Is(err, ErrConfigMissing) {
			t.Fatalf("expected ErrConfigMissing, got %v", err)
		}
		if calls := h.provider.Calls(); len(calls) != 0 {
			t.Errorf("expected no embedding calls, got %v", calls)
		}
		if len(h.Verdicts()) != 0 {
			t.Error("nothing should be classified")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		h.configure("discount offers", "")
		o := h.orchestrator()

		if err := o.Start(context.Background()); !errors.Is(err, ErrConfigMissing) {
			t.Fatalf("expected ErrConfigMissing, got %v", err)
		}
	})

	t.Run("whitespace phrase", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		h.configure("   ", "sk-test")
		o := h.orchestrator()

		if err := o.Start(context.Background()); !errors.Is(err, ErrConfigMissing) {
			t.Fatalf("expected ErrConfigMissing, got %v", err)
		}
	})

	t.Run("literal mode without words", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		o := h.orchestrator(WithMode(ModeLiteral))

		if err := o.Start(context.Background()); !errors.Is(err, ErrConfigMissing) {
			t.Fatalf("expected ErrConfigMissing, got %v", err)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		h.configure("discount offers", "sk-test")
		if err := h.storage.SetExtensionEnabled(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		o := h.orchestrator()

		if err := o.Start(context.Background()); !errors.Is(err, ErrDisabled) {
			t.Fatalf("expected ErrDisabled, got %v", err)
		}
		if h.redacted("promo") {
			t.Error("nothing should be redacted when disabled")
		}
	})

	t.Run("phrase embedding failure is fatal", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		h.configure("discount offers", "sk-test")
		h.provider.embed = func(context.Context, string) ([]float64, error) {
			return nil, &embedding.ServiceError{Provider: "fake", Reason: embedding.ReasonQuotaExceeded, Message: "quota"}
		}
		o := h.orchestrator()

		err := o.Start(context.Background())
		if !errors.Is(err, embedding.ErrEmbeddingService) {
			t.Fatalf("expected ErrEmbeddingService, got %v", err)
		}
		if len(h.Verdicts()) != 0 {
			t.Error("nothing should be classified")
		}
	})

	t.Run("double start", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, body)
		h.configure("discount offers", "sk-test")
		o := h.orchestrator()
		h.start(o)

		if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	})
}

// TestInitialScan tests classification of the elements present at start.
func TestInitialScan(t *testing.T) {
	t.Parallel()

	t.Run("discount offers are hidden and weather is kept", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`
			<p id="promo">`+promoText+`</p>
			<p id="weather">`+weatherText+`</p>`))
		h.configure("discount offers", "sk-test")
		h.start(h.orchestrator())

		if !h.redacted("promo") {
			t.Error("promo paragraph should be redacted")
		}
		if h.redacted("weather") {
			t.Error("weather paragraph should be left alone")
		}

		calls := h.provider.Calls()
		if len(calls) != 3 {
			t.Errorf("expected 3 embedding calls (phrase and two blocks), got %v", calls)
		}

		v, ok := h.verdictFor(promoText)
		if !ok || !v.Blocked || v.Score < DefaultMinSimilarity {
			t.Errorf("unexpected promo verdict: %+v", v)
		}
		v, ok = h.verdictFor(weatherText)
		if !ok || v.Blocked {
			t.Errorf("unexpected weather verdict: %+v", v)
		}
	})

	t.Run("script text is never classified", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<script>var discountOffers = "huge discount offers everywhere";</script>`))
		h.configure("discount offers", "sk-test")
		h.start(h.orchestrator())

		if calls := h.provider.Calls(); len(calls) != 1 {
			t.Errorf("only the phrase should be embedded, got %v", calls)
		}
		for _, v := range h.Verdicts() {
			if v.Tag == "script" && v.Skip != model.SkipTag {
				t.Errorf("script verdict = %+v, want SkipTag", v)
			}
		}
	})

	t.Run("short blocks make no request", func(t *testing.T) {
		t.Parallel()

		exact := "discount offer " + strings.Repeat("x", 15)
		short := exact[:29]

		h := newHarness(t, page(`<p id="exact">`+exact+`</p><p id="short">`+short+`</p>`))
		h.configure("discount offers", "sk-test")
		h.start(h.orchestrator())

		calls := h.provider.Calls()
		if countCalls(calls, exact) != 1 {
			t.Errorf("30-character block should be embedded once, calls %v", calls)
		}
		if countCalls(calls, short) != 0 {
			t.Errorf("29-character block should not be embedded, calls %v", calls)
		}
		if h.redacted("short") {
			t.Error("short block should not be redacted")
		}
	})

	t.Run("parents are skipped and leaves are matched", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<div id="outer">`+promoText+`<span id="inner">`+promoText+` again</span></div>`))
		h.configure("discount offers", "sk-test")
		h.start(h.orchestrator())

		if h.redacted("outer") {
			t.Error("non-leaf element should not be redacted")
		}
		if !h.redacted("inner") {
			t.Error("leaf span should be redacted")
		}
	})

	t.Run("scan root limits the scan", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<main id="main"><p id="in">`+promoText+`</p></main><p id="out">`+promoText+`</p>`))
		h.configure("discount offers", "sk-test")
		h.start(h.orchestrator(WithScanRoot(h.byID("main"))))

		if !h.redacted("in") || h.redacted("out") {
			t.Error("only the block inside the scan root should be redacted")
		}
	})

	t.Run("literal mode", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`
			<p id="promo">`+promoText+`</p>
			<p id="weather">`+weatherText+`</p>`))
		if err := h.storage.SetBlockedWords(context.Background(), []string{"Discount"}); err != nil {
			t.Fatal(err)
		}
		h.start(h.orchestrator(WithMode(ModeLiteral)))

		if !h.redacted("promo") || h.redacted("weather") {
			t.Error("only the block containing the word should be redacted")
		}
		if calls := h.provider.Calls(); len(calls) != 0 {
			t.Errorf("literal mode must not call the provider, got %v", calls)
		}
		if v, ok := h.verdictFor(promoText); !ok || v.MatchedTerm != "Discount" {
			t.Errorf("unexpected verdict: %+v", v)
		}
	})
}

// TestPhraseCache tests reuse and refresh of the cached phrase vector.
func TestPhraseCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemoryKV()
	storage := store.New(kv)
	if err := storage.SetBlockedPhrase(ctx, "discount offers "); err != nil {
		t.Fatal(err)
	}
	if err := storage.SetAPIKey(ctx, "sk-test"); err != nil {
		t.Fatal(err)
	}

	run := func() *harness {
		h := newHarness(t, page(`<p>`+weatherText+`</p>`))
		h.storage = storage
		h.start(h.orchestrator())
		return h
	}

	first := run()
	if countCalls(first.provider.Calls(), "discount offers") != 1 {
		t.Fatalf("first run should embed the trimmed phrase, calls %v", first.provider.Calls())
	}
	if got := kv.Snapshot()[store.KeyEmbeddedBlockedPhrase]; got != "discount offers " {
		t.Errorf("cache should be keyed by the stored phrase, got %q", got)
	}

	second := run()
	if countCalls(second.provider.Calls(), "discount offers") != 0 {
		t.Errorf("unchanged phrase should reuse the cache, calls %v", second.provider.Calls())
	}

	if err := storage.SetBlockedPhrase(ctx, "weather"); err != nil {
		t.Fatal(err)
	}
	third := run()
	if countCalls(third.provider.Calls(), "weather") != 1 {
		t.Errorf("changed phrase should be embedded, calls %v", third.provider.Calls())
	}
	if got := kv.Snapshot()[store.KeyEmbeddedBlockedPhrase]; got != "weather" {
		t.Errorf("cache should follow the new phrase, got %q", got)
	}

	if err := kv.Set(ctx, map[string]string{store.KeyBlockedPhraseEmbedding: "not json"}); err != nil {
		t.Fatal(err)
	}
	fourth := run()
	if countCalls(fourth.provider.Calls(), "weather") != 1 {
		t.Errorf("corrupt cache should be recomputed, calls %v", fourth.provider.Calls())
	}
	if got := kv.Snapshot()[store.KeyEmbeddingModel]; got != "fake/fake-small" {
		t.Errorf("cache should record the embedding model, got %q", got)
	}

	// A three-dimensional vector left behind by another model.
	if err := storage.SetBlockedPhrase(ctx, "discount offers"); err != nil {
		t.Fatal(err)
	}
	err := storage.SaveCachedEmbedding(ctx, model.CachedEmbedding{
		Phrase: "discount offers",
		Model:  "other/text-embedding-3-large",
		Vector: []float64{1, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	switched := newHarness(t, page(`<p id="promo">`+promoText+`</p>`))
	switched.storage = storage
	switched.start(switched.orchestrator())
	if countCalls(switched.provider.Calls(), "discount offers") != 1 {
		t.Errorf("cache from another model should be recomputed, calls %v", switched.provider.Calls())
	}
	if !switched.redacted("promo") {
		t.Errorf("promo should be redacted after the model switch, verdicts %+v", switched.Verdicts())
	}
	if got := kv.Snapshot()[store.KeyEmbeddingModel]; got != "fake/fake-small" {
		t.Errorf("cache should follow the new model, got %q", got)
	}
}

// TestMutations tests classification of inserted elements.
func TestMutations(t *testing.T) {
	t.Parallel()

	t.Run("inserted node is classified exactly once", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<p id="weather">`+weatherText+`</p><div id="feed"></div>`))
		h.configure("discount offers", "sk-test")
		o := h.orchestrator()
		h.start(o)

		feed := h.byID("feed")
		h.onLoop(func() {
			if _, err := h.doc.AppendHTML(feed, `<p id="promo">`+promoText+`</p>`); err != nil {
				t.Errorf("AppendHTML failed: %v", err)
			}
		})
		h.waitIdle(o)

		calls := h.provider.Calls()
		if countCalls(calls, promoText) != 1 {
			t.Errorf("inserted block should be embedded once, calls %v", calls)
		}
		if countCalls(calls, weatherText) != 1 {
			t.Errorf("existing block must not be re-scanned, calls %v", calls)
		}
		if !h.redacted("promo") {
			t.Error("inserted promo block should be redacted")
		}
	})

	t.Run("descendants of inserted nodes are classified", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<div id="feed"></div>`))
		h.configure("discount offers", "sk-test")
		o := h.orchestrator()
		h.start(o)

		feed := h.byID("feed")
		h.onLoop(func() {
			_, err := h.doc.AppendHTML(feed, `<article><h2 id="title">`+promoText+`</h2><ul><li id="item">`+weatherText+`</li></ul></article>`)
			if err != nil {
				t.Errorf("AppendHTML failed: %v", err)
			}
		})
		h.waitIdle(o)

		if !h.redacted("title") || h.redacted("item") {
			t.Error("expected only the heading to be redacted")
		}
	})

	t.Run("re-inserting a processed node does not classify it again", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<div id="a"><p id="promo">`+promoText+`</p></div><div id="b"></div>`))
		h.configure("discount offers", "sk-test")
		o := h.orchestrator()
		h.start(o)

		promo, b := h.byID("promo"), h.byID("b")
		h.onLoop(func() { h.doc.AppendChild(b, promo) })
		h.waitIdle(o)

		if got := countCalls(h.provider.Calls(), promoText); got != 1 {
			t.Errorf("expected 1 call for the moved node, got %d", got)
		}
	})

	t.Run("node inserted while its request is in flight", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		h := newHarness(t, page(`<div id="a"><p id="promo">`+promoText+`</p></div><div id="b"></div>`))
		h.configure("discount offers", "sk-test")
		h.provider.embed = func(_ context.Context, text string) ([]float64, error) {
			if text == promoText {
				<-release
			}
			return shoppingVector(text), nil
		}
		o := h.orchestrator()
		if err := o.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		promo, b := h.byID("promo"), h.byID("b")
		h.onLoop(func() { h.doc.AppendChild(b, promo) })
		h.onLoop(func() {
			if !o.processed.Pending(promo) {
				t.Error("node should be pending while its request runs")
			}
		})
		close(release)
		h.waitIdle(o)

		if got := countCalls(h.provider.Calls(), promoText); got != 1 {
			t.Errorf("pending node must not be resubmitted, got %d calls", got)
		}
		if !h.redacted("promo") {
			t.Error("promo block should be redacted")
		}
	})

	t.Run("stop ends watching", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<div id="feed"></div>`))
		h.configure("discount offers", "sk-test")
		o := h.orchestrator()
		h.start(o)
		o.Stop()

		feed := h.byID("feed")
		h.onLoop(func() {
			if _, err := h.doc.AppendHTML(feed, `<p id="promo">`+promoText+`</p>`); err != nil {
				t.Errorf("AppendHTML failed: %v", err)
			}
		})
		h.waitIdle(o)

		if countCalls(h.provider.Calls(), promoText) != 0 {
			t.Error("no request should be made after Stop")
		}
	})
}

// TestFailures tests that failures stay scoped to one node.
func TestFailures(t *testing.T) {
	t.Parallel()

	t.Run("one failing node", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`
			<p id="bad">`+weatherText+` but broken</p>
			<p id="promo">`+promoText+`</p>`))
		h.configure("discount offers", "sk-test")
		h.provider.embed = func(_ context.Context, text string) ([]float64, error) {
			if strings.HasSuffix(text, "broken") {
				return nil, &embedding.ServiceError{Provider: "fake", Reason: embedding.ReasonRateLimited, Message: "slow down"}
			}
			return shoppingVector(text), nil
		}
		o := h.orchestrator()
		h.start(o)

		if !h.redacted("promo") {
			t.Error("other nodes should still be classified")
		}
		if h.redacted("bad") {
			t.Error("failed node should not be redacted")
		}

		v, ok := h.verdictFor(weatherText + " but broken")
		if !ok || !v.Failed() {
			t.Errorf("expected a failed verdict, got %+v", v)
		}

		bad := h.byID("bad")
		h.onLoop(func() {
			if !o.processed.Done(bad) {
				t.Error("failed node should be recorded as processed")
			}
			o.Classify(bad)
		})
		h.waitIdle(o)
		if got := countCalls(h.provider.Calls(), weatherText+" but broken"); got != 1 {
			t.Errorf("failed node must not be retried, got %d calls", got)
		}
	})

	t.Run("hung request times out", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<p id="slow">`+weatherText+`</p>`))
		h.configure("discount offers", "sk-test")
		h.provider.embed = func(ctx context.Context, text string) ([]float64, error) {
			if text == weatherText {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return shoppingVector(text), nil
		}
		o := h.orchestrator(WithRequestTimeout(50 * time.Millisecond))
		h.start(o)

		v, ok := h.verdictFor(weatherText)
		if !ok || !strings.Contains(v.Err, context.DeadlineExceeded.Error()) {
			t.Errorf("expected a timed-out verdict, got %+v", v)
		}
		slow := h.byID("slow")
		h.onLoop(func() {
			if !o.processed.Done(slow) {
				t.Error("timed-out node should be recorded as processed")
			}
		})
	})

	t.Run("stop cancels requests in flight", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, page(`<p id="slow">`+promoText+`</p>`))
		h.configure("discount offers", "sk-test")
		h.provider.embed = func(ctx context.Context, text string) ([]float64, error) {
			if text == promoText {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return shoppingVector(text), nil
		}
		o := h.orchestrator()
		if err := o.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		o.Stop()
		h.waitIdle(o)

		if h.redacted("slow") {
			t.Error("nothing should be redacted after Stop")
		}
	})
}

// TestConcurrencyLimit tests that requests in flight are bounded.
func TestConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var body strings.Builder
	for range 8 {
		body.WriteString("<p>" + weatherText + "</p>")
	}

	h := newHarness(t, page(body.String()))
	h.configure("discount offers", "sk-test")
	h.provider.embed = func(_ context.Context, text string) ([]float64, error) {
		time.Sleep(20 * time.Millisecond)
		return shoppingVector(text), nil
	}
	h.start(h.orchestrator(WithConcurrency(2)))

	if got := len(h.provider.Calls()); got != 9 {
		t.Errorf("expected 9 calls, got %d", got)
	}
	if got := h.provider.MaxActive(); got > 2 {
		t.Errorf("at most 2 requests should run at once, saw %d", got)
	}
}
