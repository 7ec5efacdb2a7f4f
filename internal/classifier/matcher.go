package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/nao1215/blockphrase/internal/embedding"
	"github.com/nao1215/blockphrase/internal/similarity"
)

// Match is the result of matching one text block.
type Match struct {
	Score   float64
	Term    string
	Blocked bool
}

// Matcher decides whether a text block should be hidden.
// Match is called from worker goroutines and must be safe for concurrent use.
type Matcher interface {
	Match(ctx context.Context, text string) (Match, error)
}

// SemanticMatcher embeds text and compares it with the blocked phrase vector.
type SemanticMatcher struct {
	provider   embedding.Provider
	credential string
	phrase     []float64
	threshold  float64
}

// NewSemanticMatcher creates a matcher that hides text whose similarity to
// phrase is at least threshold.
func NewSemanticMatcher(provider embedding.Provider, credential string, phrase []float64, threshold float64) *SemanticMatcher {
	return &SemanticMatcher{
		provider:   provider,
		credential: credential,
		phrase:     phrase,
		threshold:  threshold,
	}
}

// Match implements Matcher.
func (m *SemanticMatcher) Match(ctx context.Context, text string) (Match, error) {
	vector, err := m.provider.Embed(ctx, text, m.credential)
	if err != nil {
		return Match{}, err
	}

	score, err := similarity.Cosine(vector, m.phrase)
	if err != nil {
		return Match{}, fmt.Errorf("failed to score text: %w", err)
	}
	return Match{Score: score, Blocked: score >= m.threshold}, nil
}

// WordMatcher hides text containing any blocked word or word sequence.
// Comparison uses Unicode case folding and whole-word boundaries.
type WordMatcher struct {
	terms []wordTerm
}

type wordTerm struct {
	original string
	tokens   []string
}

// NewWordMatcher creates a matcher for words. Blank entries are ignored.
func NewWordMatcher(words []string) *WordMatcher {
	m := &WordMatcher{}
	for _, w := range words {
		tokens := tokenize(w)
		if len(tokens) == 0 {
			continue
		}
		m.terms = append(m.terms, wordTerm{original: strings.TrimSpace(w), tokens: tokens})
	}
	return m
}

// Empty reports whether the matcher has no usable terms.
func (m *WordMatcher) Empty() bool {
	return len(m.terms) == 0
}

// Match implements Matcher. It never fails.
func (m *WordMatcher) Match(_ context.Context, text string) (Match, error) {
	tokens := tokenize(text)
	for _, term := range m.terms {
		if containsSequence(tokens, term.tokens) {
			return Match{Score: 1, Term: term.original, Blocked: true}, nil
		}
	}
	return Match{}, nil
}

// tokenize folds s and splits it into words.
func tokenize(s string) []string {
	folded := cases.Fold().String(s)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsSequence(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, tok := range needle {
			if haystack[i+j] != tok {
				continue outer
			}
		}
		return true
	}
	return false
}
