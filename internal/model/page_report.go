package model

import "time"

// PageReport summarizes one redaction run over a page.
type PageReport struct {
	// Source is the file path, URL or "-" the page was read from.
	Source string `json:"source"`

	// Output is where the redacted page was written. Empty when the page
	// was not written.
	Output string `json:"output,omitempty"`

	// Title is the page's <title>, if any.
	Title string `json:"title,omitempty"`

	// Mode is "semantic" or "literal".
	Mode string `json:"mode"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Disabled is true when redaction was turned off in the settings.
	Disabled bool `json:"disabled,omitempty"`

	// Verdicts holds one entry per matched node, in completion order.
	// Skipped nodes are only counted.
	Verdicts []Verdict `json:"verdicts,omitempty"`

	// Counts by outcome.
	Examined int `json:"examined"`
	Skipped  int `json:"skipped"`
	Blocked  int `json:"blocked"`
	Failed   int `json:"failed"`

	// Error is set when the run failed as a whole.
	Error string `json:"error,omitempty"`
}

// NewPageReport creates a report for source.
func NewPageReport(source string) *PageReport {
	return &PageReport{
		Source:    source,
		StartedAt: time.Now(),
	}
}

// Add records a verdict and updates the counts.
func (r *PageReport) Add(v Verdict) {
	r.Examined++
	if !v.Matched() {
		r.Skipped++
		return
	}
	if v.Blocked {
		r.Blocked++
	}
	if v.Failed() {
		r.Failed++
	}
	r.Verdicts = append(r.Verdicts, v)
}

// Duration returns how long the run took.
func (r *PageReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
