package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
	colourBorder  = lipgloss.Color("#45475A")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func phaseColour(p domain.Phase) lipgloss.Color {
	switch p {
	case domain.PhaseIndexed:
		return colourSuccess
	case domain.PhaseFailed:
		return colourError
	case domain.PhaseDiscovered:
		return colourMuted
	default:
		return colourWarning
	}
}

// fileTable renders file records as a bordered table.
func fileTable(files []domain.FileRecord) string {
	rows := make([][]string, len(files))
	for i := range files {
		rows[i] = []string{files[i].Name, string(files[i].Phase), files[i].FileID, files[i].Error}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colourBorder)).
		Headers("NAME", "PHASE", "FILE ID", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 1 {
				return cellStyle.Foreground(phaseColour(files[row].Phase))
			}
			return cellStyle
		})
	return t.String()
}
