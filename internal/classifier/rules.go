package classifier

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/blockphrase/internal/dom"
	"github.com/nao1215/blockphrase/internal/model"
)

const (
	// DefaultMinCharacters is the shortest own text that is matched.
	DefaultMinCharacters = 30

	// DefaultMinSimilarity is the cosine similarity at which a block is hidden.
	DefaultMinSimilarity = 0.20
)

// Mode selects how text is matched.
type Mode string

const (
	// ModeSemantic compares embeddings with the blocked phrase.
	ModeSemantic Mode = "semantic"

	// ModeLiteral looks for blocked words.
	ModeLiteral Mode = "literal"
)

// ParseMode converts a configuration value to a Mode. Empty means semantic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSemantic:
		return ModeSemantic, nil
	case ModeLiteral:
		return ModeLiteral, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMode, s)
	}
}

// allowedTags are the elements whose text is classified.
var allowedTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Span:       true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.A:          true,
	atom.Li:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Code:       true,
	atom.B:          true,
	atom.Strong:     true,
	atom.I:          true,
	atom.Em:         true,
}

// IsAllowedTag reports whether n is one of the text-bearing elements.
func IsAllowedTag(n *html.Node) bool {
	return dom.IsElement(n) && n.Namespace == "" && allowedTags[n.DataAtom]
}

// eligible applies the structural checks and returns the own text of n when
// it should be matched.
func eligible(n *html.Node, minCharacters int) (string, model.SkipReason) {
	if !dom.IsLeaf(n) {
		return "", model.SkipNotLeaf
	}
	if !IsAllowedTag(n) {
		return "", model.SkipTag
	}

	text := dom.OwnText(n)
	if utf8.RuneCountInString(text) < minCharacters {
		return text, model.SkipTooShort
	}
	return text, model.SkipNone
}
