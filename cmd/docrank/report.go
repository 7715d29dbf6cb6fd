package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docrank/internal/pipeline"
)

// reportRows is the number of ranked sections shown in the summary.
const reportRows = 5

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// renderReport prints the query, the top-ranked sections and where the full
// result was written.
func renderReport(w io.Writer, out pipeline.Output, a *pipeline.Analysis, path string) {
	md := out.Metadata
	header := fmt.Sprintf("%s %s\n%s %s\n%s %s  %s %d",
		dimStyle.Render("Persona:"), titleStyle.Render(orNone(md.Persona)),
		dimStyle.Render("Job:"), titleStyle.Render(orNone(md.JobToBeDone)),
		dimStyle.Render("Profile:"), md.Profile,
		dimStyle.Render("Documents:"), len(md.InputDocuments),
	)
	fmt.Fprintln(w, boxStyle.Render(header))

	var rows []string
	for _, s := range out.ExtractedSections[:min(reportRows, len(out.ExtractedSections))] {
		rows = append(rows, fmt.Sprintf("%2d. %s %s %s",
			s.ImportanceRank,
			scoreStyle.Render(fmt.Sprintf("%.3f", s.RelevanceScore)),
			s.SectionTitle,
			dimStyle.Render(fmt.Sprintf("(%s, p.%d)", s.Document, s.PageNumber)),
		))
	}
	if len(rows) == 0 {
		rows = append(rows, dimStyle.Render("no sections found"))
	}
	fmt.Fprintln(w, strings.Join(rows, "\n"))

	if len(md.SkippedDocuments) > 0 {
		fmt.Fprintln(w, warnStyle.Render("Skipped: "+strings.Join(md.SkippedDocuments, ", ")))
	}
	fmt.Fprintf(w, "%s %s %s\n",
		dimStyle.Render("Wrote"), path,
		dimStyle.Render(fmt.Sprintf("(%d sections, %d sub-sections, %s)",
			len(out.ExtractedSections), len(out.SubsectionAnalysis), a.Duration.Round(1e6))),
	)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
