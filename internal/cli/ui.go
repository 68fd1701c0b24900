package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")  // Teal - primary actions
	colorGreen = lipgloss.Color("35")  // Green - success
	colorRed   = lipgloss.Color("167") // Soft red - errors
	colorWhite = lipgloss.Color("255") // Bright white - values
	colorDim   = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
)

// renderSummary formats the end-of-compile report: one line per
// compiled module with component, wire, and byte counts.
func renderSummary(res *pipeline.Result) string {
	line := func(mr pipeline.ModuleResult, dep bool) string {
		name := StyleValue.Render(mr.Name)
		if dep {
			name = StyleDim.Render("dependencies/") + StyleValue.Render(mr.Name)
		}
		return fmt.Sprintf("  %s %s  %s components  %s wires  %s bytes",
			StyleSuccess.Render("✓"),
			name,
			StyleNumber.Render(fmt.Sprintf("%d", mr.Components)),
			StyleNumber.Render(fmt.Sprintf("%d", mr.Wires)),
			StyleNumber.Render(fmt.Sprintf("%d", len(mr.Data))),
		)
	}

	out := StyleTitle.Render("Compiled") + "\n"
	for _, dep := range res.Dependencies {
		out += line(dep, true) + "\n"
	}
	out += line(res.Top, false) + "\n"
	return out
}
