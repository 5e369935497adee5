package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Colors is the palette used by the CLI.
type Colors struct {
	Green  lipgloss.TerminalColor
	Yellow lipgloss.TerminalColor
	Red    lipgloss.TerminalColor
	Orange lipgloss.TerminalColor
	Cyan   lipgloss.TerminalColor
	Blue   lipgloss.TerminalColor
	Violet lipgloss.TerminalColor
	Muted  lipgloss.TerminalColor
}

// Theme holds the pre-configured styles for command output.
type Theme struct {
	Colors Colors

	Title   lipgloss.Style
	Section lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Bold    lipgloss.Style
	Italic  lipgloss.Style
	Muted   lipgloss.Style
	Path    lipgloss.Style
	Dir     lipgloss.Style
	Index   lipgloss.Style
}

// kanagawa dark/light pairs
var kanagawaColors = Colors{
	Green:  lipgloss.AdaptiveColor{Dark: "#98BB6C", Light: "#4E7C5A"},
	Yellow: lipgloss.AdaptiveColor{Dark: "#FF9E3B", Light: "#A68A64"},
	Red:    lipgloss.AdaptiveColor{Dark: "#FF5D62", Light: "#C34043"},
	Orange: lipgloss.AdaptiveColor{Dark: "#FFA066", Light: "#CC6B4E"},
	Cyan:   lipgloss.AdaptiveColor{Dark: "#7E9CD8", Light: "#5B8BBE"},
	Blue:   lipgloss.AdaptiveColor{Dark: "#7FB4CA", Light: "#4F7CAC"},
	Violet: lipgloss.AdaptiveColor{Dark: "#957FB8", Light: "#674D7A"},
	Muted:  lipgloss.AdaptiveColor{Dark: "#727169", Light: "#6C7086"},
}

// ANSI colors that follow the terminal's own scheme.
var terminalColors = Colors{
	Green:  lipgloss.Color("2"),
	Yellow: lipgloss.Color("3"),
	Red:    lipgloss.Color("1"),
	Orange: lipgloss.Color("208"),
	Cyan:   lipgloss.Color("6"),
	Blue:   lipgloss.Color("4"),
	Violet: lipgloss.Color("5"),
	Muted:  lipgloss.Color("8"),
}

// DefaultTheme is selected by FINDER_THEME ("kanagawa" or "terminal").
var DefaultTheme = NewTheme(os.Getenv("FINDER_THEME"))

// NewTheme builds a theme by name. Unknown names use kanagawa.
func NewTheme(name string) *Theme {
	colors := kanagawaColors
	if strings.EqualFold(strings.TrimSpace(name), "terminal") {
		colors = terminalColors
	}
	return &Theme{
		Colors:  colors,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colors.Orange),
		Section: lipgloss.NewStyle().Italic(true).Foreground(colors.Orange),
		Success: lipgloss.NewStyle().Bold(true).Foreground(colors.Green),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(colors.Red),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(colors.Yellow),
		Bold:    lipgloss.NewStyle().Bold(true),
		Italic:  lipgloss.NewStyle().Italic(true),
		Muted:   lipgloss.NewStyle().Faint(true),
		Path:    lipgloss.NewStyle().Foreground(colors.Cyan),
		Dir:     lipgloss.NewStyle().Bold(true).Foreground(colors.Blue),
		Index:   lipgloss.NewStyle().Foreground(colors.Violet),
	}
}

// InitColor forces a color profile when CLICOLOR_FORCE or COLORTERM ask for
// it, so styled output survives pipes in CI. NO_COLOR disables color.
func InitColor() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
