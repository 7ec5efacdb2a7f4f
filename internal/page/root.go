package page

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/blockphrase/internal/dom"
)

// DefaultSelector scans the whole body.
const DefaultSelector = "body"

// ScanRoot returns the first element of doc matching the CSS selector.
// An empty selector selects the body.
func ScanRoot(doc *dom.Document, selector string) (*html.Node, error) {
	if strings.TrimSpace(selector) == "" || selector == DefaultSelector {
		return doc.Body(), nil
	}

	selection := goquery.NewDocumentFromNode(doc.Root()).Find(selector).First()
	if selection.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return selection.Get(0), nil
}

// Title returns the document title, or "" if it has none.
func Title(doc *dom.Document) string {
	return strings.TrimSpace(goquery.NewDocumentFromNode(doc.Root()).Find("title").First().Text())
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// OutputName derives a file name for the redacted copy of source.
func OutputName(source string) string {
	if source == Stdin {
		return "stdin.html"
	}

	if u, err := url.Parse(source); err == nil && u.Host != "" {
		name := u.Host + strings.TrimSuffix(u.Path, "/")
		if u.RawQuery != "" {
			name += "_" + u.RawQuery
		}
		name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
		if !strings.HasSuffix(name, ".html") && !strings.HasSuffix(name, ".htm") {
			name += ".html"
		}
		return name
	}
	return filepath.Base(source)
}
