package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/blockphrase/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the reports in Markdown format.
func (w *MarkdownWriter) Write(reports []*model.PageReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(reports)

	md.H1("blockphrase Report")
	md.PlainText("")

	w.writeSummary(md, summary)
	for _, r := range reports {
		if r == nil {
			continue
		}
		w.writePage(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(s.Pages)},
			{"Examined", strconv.Itoa(s.Examined)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Passed", strconv.Itoa(s.Passed())},
			{"Blocked", "**" + strconv.Itoa(s.Blocked) + "**"},
			{"Failed", strconv.Itoa(s.Failed)},
		},
	})
	md.PlainText("")

	if s.Examined > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.Errors > 0:
		md.Cautionf("%d page(s) could not be processed.", s.Errors)
	case s.Failed > 0:
		md.Warningf("%d block(s) could not be scored and were left visible.", s.Failed)
	case s.Disabled > 0:
		md.Importantf("Redaction is disabled. %d page(s) were written unchanged.", s.Disabled)
	case s.Blocked > 0:
		md.Note(strconv.Itoa(s.Blocked) + " block(s) were redacted.")
	default:
		md.Tip("No blocked content found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Block Outcomes"),
		piechart.WithShowData(true),
	)

	for _, slice := range []struct {
		label string
		count int
	}{
		{"Skipped", s.Skipped},
		{"Passed", s.Passed()},
		{"Blocked", s.Blocked},
		{"Failed", s.Failed},
	} {
		if slice.count > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writePage(md *markdown.Markdown, r *model.PageReport) {
	md.H2(r.Source)
	md.PlainText("")

	rows := [][]string{
		{"Status", status(r)},
		{"Mode", orDash(r.Mode)},
		{"Title", orDash(r.Title)},
		{"Output", orDash(r.Output)},
		{"Duration", r.Duration().String()},
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(r.Verdicts) == 0 {
		md.PlainText("No blocks were scored.")
		md.PlainText("")
		return
	}

	verdictRows := make([][]string, len(r.Verdicts))
	for i, v := range r.Verdicts {
		outcome := "passed"
		switch {
		case v.Failed():
			outcome = "failed"
		case v.Blocked:
			outcome = "blocked"
		}
		verdictRows[i] = []string{
			"`" + truncateString(v.Path, 50) + "`",
			outcome,
			strconv.FormatFloat(v.Score, 'f', 3, 64),
			orDash(v.MatchedTerm),
			truncateString(v.Text, 40),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Path", "Outcome", "Score", "Term", "Text"},
		Rows:   verdictRows,
	})
	md.PlainText("")

	for _, v := range r.Verdicts {
		if v.Failed() {
			md.Details(v.Path, v.Err)
		}
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [blockphrase](https://github.com/nao1215/blockphrase)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
