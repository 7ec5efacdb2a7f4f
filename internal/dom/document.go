package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML tree bound to a Loop.
type Document struct {
	root *html.Node
	loop *Loop

	observers       []*Observer
	deliveryPending bool
}

// Parse parses an HTML document from r and binds it to loop. A nil loop
// delivers mutation records synchronously, which is only useful in tests.
func Parse(r io.Reader, loop *Loop) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return NewDocument(root, loop), nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string, loop *Loop) (*Document, error) {
	return Parse(strings.NewReader(s), loop)
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node, loop *Loop) *Document {
	return &Document{root: root, loop: loop}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Loop returns the loop the document is bound to.
func (d *Document) Loop() *Loop {
	return d.loop
}

// Body returns the body element, or the root when the tree has none.
func (d *Document) Body() *html.Node {
	body := Find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	if body == nil {
		return d.root
	}
	return body
}

// Render writes the tree as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// AppendChild adds child as the last child of parent. A child that is
// already attached elsewhere is moved.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.detach(child)
	parent.AppendChild(child)
	d.record(MutationRecord{Target: parent, Added: []*html.Node{child}})
}

// InsertBefore inserts child into parent before ref. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if ref == nil {
		d.AppendChild(parent, child)
		return nil
	}
	if ref.Parent != parent {
		return ErrNotChild
	}
	d.detach(child)
	parent.InsertBefore(child, ref)
	d.record(MutationRecord{Target: parent, Added: []*html.Node{child}})
	return nil
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if child.Parent != parent {
		return ErrNotChild
	}
	parent.RemoveChild(child)
	d.record(MutationRecord{Target: parent, Removed: []*html.Node{child}})
	return nil
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes. All of them are reported in a single record.
func (d *Document) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.record(MutationRecord{Target: parent, Added: nodes})
	}
	return nodes, nil
}

func (d *Document) detach(n *html.Node) {
	if n.Parent == nil {
		return
	}
	parent := n.Parent
	parent.RemoveChild(n)
	d.record(MutationRecord{Target: parent, Removed: []*html.Node{n}})
}
