package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Declaration is one property of an inline style attribute.
type Declaration struct {
	Property string
	Value    string
}

// Style parses n's inline style attribute. Property names are lower-cased.
// Malformed declarations are dropped. Semicolons inside quotes or
// parentheses, as in url("data:image/png;base64,..."), belong to the value.
func Style(n *html.Node) []Declaration {
	raw, ok := Attr(n, "style")
	if !ok {
		return nil
	}

	var decls []Declaration
	for _, part := range splitDeclarations(raw) {
		prop, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		decls = append(decls, Declaration{Property: prop, Value: value})
	}
	return decls
}

// GetStyle returns the inline value of property, or "" if it is not set.
// When a property is declared more than once the last declaration wins.
func GetStyle(n *html.Node, property string) string {
	property = strings.ToLower(property)
	value := ""
	for _, d := range Style(n) {
		if d.Property == property {
			value = d.Value
		}
	}
	return value
}

// SetStyle sets property to value in n's inline style, replacing any
// existing declaration for it. Setting the same value twice leaves the
// attribute unchanged.
func SetStyle(n *html.Node, property, value string) {
	property = strings.ToLower(property)

	decls := Style(n)
	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d.Property != property {
			out = append(out, d)
			continue
		}
		if !replaced {
			out = append(out, Declaration{Property: property, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, Declaration{Property: property, Value: value})
	}

	SetAttr(n, "style", formatStyle(out))
}

// splitDeclarations splits raw on semicolons that are outside quoted strings
// and parentheses.
func splitDeclarations(raw string) []string {
	var (
		parts []string
		start int
		depth int
		quote rune
		esc   bool
	)
	for i, r := range raw {
		switch {
		case esc:
			esc = false
		case r == '\\':
			esc = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	return append(parts, raw[start:])
}

func formatStyle(decls []Declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.Property + ": " + d.Value
	}
	return strings.Join(parts, "; ")
}
