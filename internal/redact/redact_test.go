package redact

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/nao1215/blockphrase/internal/dom"
)

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()

	doc, err := dom.ParseString(s, nil)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

func byID(t *testing.T, doc *dom.Document, id string) *html.Node {
	t.Helper()

	n := dom.Find(doc.Root(), func(n *html.Node) bool {
		v, ok := dom.Attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		t.Fatalf("element #%s not found", id)
	}
	return n
}

// TestApply tests recursive redaction.
func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("styles the node and hides descendants", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<div id="x">text<p id="a">a<span id="b">b</span></p></div>`)
		x := byID(t, doc, "x")

		Apply(x)

		want := map[string]string{
			"background-color": "black",
			"color":            "black",
			"pointer-events":   "none",
			"text-decoration":  "none",
		}
		for prop, val := range want {
			if got := dom.GetStyle(x, prop); got != val {
				t.Errorf("%s = %q, want %q", prop, got, val)
			}
		}
		if got := dom.GetStyle(x, "display"); got != "" {
			t.Errorf("redacted node itself must stay visible, display = %q", got)
		}
		for _, id := range []string{"a", "b"} {
			child := byID(t, doc, id)
			if got := dom.GetStyle(child, "display"); got != "none" {
				t.Errorf("#%s display = %q, want none", id, got)
			}
			if !IsRedacted(child) {
				t.Errorf("#%s should carry the mask styles", id)
			}
		}
		if !IsRedacted(x) {
			t.Error("IsRedacted() should report true")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p id="x" style="margin: 1px">some text</p>`)
		x := byID(t, doc, "x")

		Apply(x)
		first, _ := dom.Attr(x, "style")
		Apply(x)
		second, _ := dom.Attr(x, "style")

		if first != second {
			t.Errorf("second Apply changed style: %q -> %q", first, second)
		}
		if n := strings.Count(second, "background-color"); n != 1 {
			t.Errorf("background-color declared %d times", n)
		}
	})

	t.Run("ignores non-element nodes", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p id="x">text</p>`)
		text := byID(t, doc, "x").FirstChild

		Apply(text)
		if IsRedacted(text) {
			t.Error("text node should never be redacted")
		}
	})

	t.Run("deep trees", func(t *testing.T) {
		t.Parallel()

		var b strings.Builder
		b.WriteString(`<div id="x">`)
		for range 500 {
			b.WriteString("<div>")
		}
		for range 500 {
			b.WriteString("</div>")
		}
		b.WriteString("</div>")

		doc := parse(t, b.String())
		x := byID(t, doc, "x")
		Apply(x)

		for _, n := range dom.Elements(x) {
			if dom.GetStyle(n, "display") != "none" {
				t.Fatal("descendant left visible")
			}
		}
	})
}
