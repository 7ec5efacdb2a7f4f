package redact

import (
	"golang.org/x/net/html"

	"github.com/nao1215/blockphrase/internal/dom"
)

// MaskColor paints both text and background of a redacted block.
const MaskColor = "black"

// Apply redacts n and hides every element below it. It is safe to call
// more than once on the same node.
func Apply(n *html.Node) {
	if !dom.IsElement(n) {
		return
	}

	mask(n)
	for _, child := range dom.Elements(n) {
		mask(child)
		dom.SetStyle(child, "display", "none")
	}
}

func mask(n *html.Node) {
	dom.SetStyle(n, "background-color", MaskColor)
	dom.SetStyle(n, "color", MaskColor)
	dom.SetStyle(n, "pointer-events", "none")
	dom.SetStyle(n, "text-decoration", "none")
}

// IsRedacted reports whether Apply has been called on n.
func IsRedacted(n *html.Node) bool {
	return dom.IsElement(n) &&
		dom.GetStyle(n, "background-color") == MaskColor &&
		dom.GetStyle(n, "color") == MaskColor &&
		dom.GetStyle(n, "pointer-events") == "none"
}
