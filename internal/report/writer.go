package report

import (
	"io"
	"time"

	"github.com/nao1215/blockphrase/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the reports of one batch. Nil reports are pages that
	// never started and are ignored.
	Write(reports []*model.PageReport) (int, error)
}

// MultiWriter writes to multiple Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the reports to all configured Writers and stops on the
// first error.
func (m *MultiWriter) Write(reports []*model.PageReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Summary totals a batch of page reports.
type Summary struct {
	Pages    int           `json:"pages"`
	Disabled int           `json:"disabled"`
	Errors   int           `json:"errors"`
	Examined int           `json:"examined"`
	Skipped  int           `json:"skipped"`
	Blocked  int           `json:"blocked"`
	Failed   int           `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Passed is the number of matched blocks that were not redacted.
func (s Summary) Passed() int {
	return s.Examined - s.Skipped - s.Blocked - s.Failed
}

// Summarize totals reports, skipping nil entries.
func Summarize(reports []*model.PageReport) Summary {
	var s Summary
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Pages++
		if r.Disabled {
			s.Disabled++
		}
		if r.Error != "" {
			s.Errors++
		}
		s.Examined += r.Examined
		s.Skipped += r.Skipped
		s.Blocked += r.Blocked
		s.Failed += r.Failed
		s.Elapsed += r.Duration()
	}
	return s
}

func status(r *model.PageReport) string {
	switch {
	case r.Error != "":
		return "error: " + r.Error
	case r.Disabled:
		return "disabled (page unchanged)"
	default:
		return "complete"
	}
}

// truncateString shortens s to maxLen characters with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
