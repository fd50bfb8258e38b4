package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives all status output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Palette and styles
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	// Status icons, pre-rendered.
	iconSuccess = lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	iconError   = lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	iconWarning = lipgloss.NewStyle().Foreground(colorYellow).Render("!")
	iconInfo    = lipgloss.NewStyle().Foreground(colorGray).Render("›")
	iconArrow   = StyleDim.Render("→")

	tagCached = lipgloss.NewStyle().Foreground(colorGreen).Render("cached")
	tagFresh  = lipgloss.NewStyle().Foreground(colorGray).Render("fresh")
)

// =============================================================================
// Status lines
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, iconSuccess, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, iconError, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, iconWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, iconInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written file path.
func printFile(path string) {
	fmt.Fprintln(stdout, " ", iconArrow, StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key), StyleValue.Render(value))
}

// printStats prints e.g. "3 cards · 2 connectors · cached". Zero counts
// are left out.
func printStats(cards, connectors int, cached bool) {
	var parts []string
	if cards > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d cards", cards)))
	}
	if connectors > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d connectors", connectors)))
	}
	if cached {
		parts = append(parts, tagCached)
	} else {
		parts = append(parts, tagFresh)
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":"), styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(stdout)
}
