package watcher

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/nao1215/blockphrase/internal/dom"
)

// Classifier receives elements to classify. It is called on the document's
// event loop.
type Classifier interface {
	Classify(n *html.Node)
}

// Watcher observes child-list mutations below a root node.
type Watcher struct {
	doc        *dom.Document
	root       *html.Node
	classifier Classifier
	logger     *slog.Logger

	observer  *dom.Observer
	submitted int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a watcher for the subtree of root.
func New(doc *dom.Document, root *html.Node, classifier Classifier, opts ...Option) *Watcher {
	w := &Watcher{
		doc:        doc,
		root:       root,
		classifier: classifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins observing. It must run on the event loop. Calling Start on
// a running watcher does nothing.
func (w *Watcher) Start() {
	if w.observer != nil {
		return
	}
	w.observer = w.doc.Observe(w.root, w.handle)
}

// Stop disconnects the observer. It must run on the event loop.
func (w *Watcher) Stop() {
	if w.observer == nil {
		return
	}
	w.observer.Disconnect()
	w.observer = nil
}

// Running reports whether the watcher is observing.
func (w *Watcher) Running() bool {
	return w.observer != nil
}

// Submitted returns how many elements have been passed to the classifier.
func (w *Watcher) Submitted() int {
	return w.submitted
}

func (w *Watcher) handle(records []dom.MutationRecord) {
	for _, rec := range records {
		for _, added := range rec.Added {
			// Text nodes carry no tag; their parent is an existing element.
			if !dom.IsElement(added) {
				continue
			}
			// A node removed again before delivery is no longer in the page.
			if !dom.Contains(w.root, added) {
				continue
			}
			w.submit(added)
			for _, n := range dom.Elements(added) {
				w.submit(n)
			}
		}
	}
}

func (w *Watcher) submit(n *html.Node) {
	w.submitted++
	w.logger.Debug("element inserted", "path", dom.Path(n))
	w.classifier.Classify(n)
}
