// Package redact hides matched text blocks by rewriting their inline style.
//
// A redacted element keeps its box on the page but is painted over with the
// mask colour and stops receiving pointer events. Its element descendants
// are hidden entirely.
package redact
