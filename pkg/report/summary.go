package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
)

// Final run messages
const (
	MessageSuccess     = "The distribution has been installed successfully."
	MessageWithErrors  = "The distribution has been installed with some errors. Please check the messages above."
	summaryHeaderStage = "Stage"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

// StageRow is one line of the run summary table
type StageRow struct {
	Stage    string
	OK       int
	Notes    int
	Warnings int
	Errors   int
}

// Failed reports whether the stage had any item-level failure
func (r StageRow) Failed() bool {
	return r.Warnings > 0 || r.Errors > 0
}

// WriteSummary prints the per-stage table followed by the final outcome line
func WriteSummary(w io.Writer, rows []StageRow, hasErrors bool, noColor bool) {
	if len(rows) > 0 {
		tbl := table.New(summaryHeaderStage, "OK", "Notes", "Warnings", "Errors").WithWriter(w)
		if !noColor {
			tbl.WithHeaderFormatter(func(format string, vals ...interface{}) string {
				return headerStyle.Render(fmt.Sprintf(format, vals...))
			})
		}
		for _, row := range rows {
			tbl.AddRow(row.Stage, row.OK, row.Notes, row.Warnings, row.Errors)
		}
		tbl.Print()
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, Outcome(hasErrors, noColor))
}

// Outcome returns the final message for a completed run
func Outcome(hasErrors bool, noColor bool) string {
	msg, style := MessageSuccess, successStyle
	if hasErrors {
		msg, style = MessageWithErrors, warningStyle
	}
	if noColor {
		return msg
	}
	return style.Render(msg)
}
