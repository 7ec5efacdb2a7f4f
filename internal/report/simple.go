package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/blockphrase/internal/model"
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// showEmpty lists pages that had no matched blocks.
	showEmpty bool

	// verbose adds the text of every matched block.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list pages without matched blocks.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the reports in human-readable format.
func (w *SimpleWriter) Write(reports []*model.PageReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	for _, r := range reports {
		if r == nil {
			continue
		}
		w.writePage(&sb, r)
	}
	w.writeSummary(&sb, Summarize(reports))

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        BLOCKPHRASE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writePage(sb *strings.Builder, r *model.PageReport) {
	if len(r.Verdicts) == 0 && r.Error == "" && !r.Disabled && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Page:    %s\n", r.Source))
	if r.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:   %s\n", r.Title))
	}
	if r.Output != "" {
		sb.WriteString(fmt.Sprintf("Output:  %s\n", r.Output))
	}
	sb.WriteString(fmt.Sprintf("Status:  %s\n", status(r)))
	sb.WriteString(fmt.Sprintf("Blocks:  %d examined, %d skipped, %d blocked, %d failed\n",
		r.Examined, r.Skipped, r.Blocked, r.Failed))
	sb.WriteString("\n")

	for _, v := range r.Verdicts {
		if !v.Blocked && !v.Failed() && !w.verbose {
			continue
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", indicator(v), v.Path))
		if v.Failed() {
			sb.WriteString(fmt.Sprintf("    Error: %s\n", v.Err))
		} else {
			sb.WriteString(fmt.Sprintf("    Score: %.3f\n", v.Score))
		}
		if v.MatchedTerm != "" {
			sb.WriteString(fmt.Sprintf("    Term:  %s\n", v.MatchedTerm))
		}
		if w.verbose {
			sb.WriteString(fmt.Sprintf("    Text:  %s\n", truncateString(v.Text, 60)))
		}
	}
	if len(r.Verdicts) > 0 {
		sb.WriteString("\n")
	}
}

func indicator(v model.Verdict) string {
	switch {
	case v.Failed():
		return "!"
	case v.Blocked:
		return "x"
	default:
		return " "
	}
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  PAGES:    %d (%d errors, %d disabled)\n", s.Pages, s.Errors, s.Disabled))
	sb.WriteString(fmt.Sprintf("  EXAMINED: %d\n", s.Examined))
	sb.WriteString(fmt.Sprintf("  SKIPPED:  %d\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("  PASSED:   %d\n", s.Passed()))
	sb.WriteString(fmt.Sprintf("  BLOCKED:  %d\n", s.Blocked))
	sb.WriteString(fmt.Sprintf("  FAILED:   %d\n", s.Failed))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
