// Package report writes page run summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - MarkdownWriter: Markdown for sharing, built with nao1215/markdown
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface and can be composed with
// MultiWriter.
package report
