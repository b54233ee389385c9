package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/frederic-klein/yapi/internal/orchestrator"
	"github.com/frederic-klein/yapi/internal/promoter"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// printSummary lists what the run installed, skipped and failed.
func printSummary(w io.Writer, report *orchestrator.Report) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Installed %d package(s)", len(report.Installed))))
	for _, res := range report.Installed {
		mark := okStyle.Render("✓")
		if res.Outcome == promoter.Overwritten {
			mark = warnStyle.Render("↻")
		}
		fmt.Fprintf(w, "  %s %s %s\n", mark, res.Record.Identifier, detailStyle.Render(res.Record.Target))
	}
	for _, record := range report.Skipped {
		fmt.Fprintf(w, "  %s %s %s\n", warnStyle.Render("-"), record.Identifier, detailStyle.Render("skipped"))
	}
	for _, taskErr := range report.Errors {
		fmt.Fprintf(w, "  %s %s %s\n", failStyle.Render("✗"), taskErr.Request, detailStyle.Render("failed"))
	}
}
