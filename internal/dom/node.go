package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Tag returns the lower-case tag name of an element, or "" for other nodes.
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	if n.DataAtom != 0 {
		return n.DataAtom.String()
	}
	return strings.ToLower(n.Data)
}

// IsLeaf reports whether n has no element children. Text, comment and other
// non-element children do not count.
func IsLeaf(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return false
		}
	}
	return true
}

// OwnText returns the text of n's direct text children, each trimmed and
// joined with a single space. Text inside child elements is not included.
func OwnText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if text := strings.TrimSpace(c.Data); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Elements returns every element below root in depth-first pre-order.
// root itself is not included.
func Elements(root *html.Node) []*html.Node {
	var out []*html.Node
	stack := pushChildren(nil, root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			out = append(out, n)
		}
		stack = pushChildren(stack, n)
	}
	return out
}

// Find returns the first node below root, in pre-order, for which match
// reports true.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	stack := pushChildren(nil, root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if match(n) {
			return n
		}
		stack = pushChildren(stack, n)
	}
	return nil
}

// pushChildren pushes n's children so that the first child is popped first.
func pushChildren(stack []*html.Node, n *html.Node) []*html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	return stack
}

// Contains reports whether n is ancestor or one of its descendants.
func Contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// Path returns a selector-like location for n, such as
// "html > body > div:nth-of-type(2) > p". It is meant for logs and reports.
func Path(n *html.Node) string {
	var segments []string
	for ; IsElement(n); n = n.Parent {
		segment := Tag(n)
		if index, total := typeIndex(n); total > 1 {
			segment += fmt.Sprintf(":nth-of-type(%d)", index)
		}
		segments = append(segments, segment)
		if n.DataAtom == atom.Html {
			break
		}
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}

// typeIndex returns the 1-based position of n among siblings sharing its
// tag, and how many such siblings there are.
func typeIndex(n *html.Node) (index, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	tag := Tag(n)
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if Tag(c) != tag {
			continue
		}
		total++
		if c == n {
			index = total
		}
	}
	return index, total
}

// Attr returns the value of the attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the attribute key, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
