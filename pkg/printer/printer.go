// Package printer holds the user-facing output helpers shared by the CLI
// commands.
package printer

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// diagWidth limits how wide wrapped server diagnostics render.
const diagWidth = 80

var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim     = lipgloss.NewStyle().Faint(true)
)

// PrintSuccess prints a success message with a leading checkmark.
func PrintSuccess(message string) {
	_, _ = fmt.Fprintf(os.Stdout, "%s %s\n", styleSuccess.Render("✓"), message)
}

// PrintError prints an error message to stderr.
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleError.Render("Error:"), message)
}

// PrintWarning prints a warning message.
func PrintWarning(message string) {
	_, _ = fmt.Fprintf(os.Stdout, "%s %s\n", styleWarning.Render("Warning:"), message)
}

// PrintInfo prints an info message.
func PrintInfo(message string) {
	_, _ = fmt.Fprintf(os.Stdout, "%s\n", message)
}

// PrintDim prints structural detail lines (file listings, causes).
func PrintDim(message string) {
	_, _ = fmt.Fprintf(os.Stdout, "%s\n", styleDim.Render(message))
}

// WrapDiagnostic word-wraps long server-provided diagnostic text so a raw
// response body stays readable in a terminal.
func WrapDiagnostic(text string) string {
	return wordwrap.String(text, diagWidth)
}
