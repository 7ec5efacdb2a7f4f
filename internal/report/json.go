package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/blockphrase/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	version string

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	Version string              `json:"version,omitempty"`
	Summary Summary             `json:"summary"`
	Pages   []*model.PageReport `json:"pages"`
}

// Write outputs the reports as one JSON document.
func (w *JSONWriter) Write(reports []*model.PageReport) (int, error) {
	pages := make([]*model.PageReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			pages = append(pages, r)
		}
	}
	return w.writeJSON(JSONReport{
		Version: w.version,
		Summary: Summarize(reports),
		Pages:   pages,
	})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
