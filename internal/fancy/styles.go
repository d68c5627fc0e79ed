package fancy

import (
	"github.com/charmbracelet/lipgloss"
)

// Common styles that can be used across the application
var (
	RootStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGray)

	ComponentStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	ClientStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	ScenarioStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	GroupStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)

// ClientText styles a client name
func ClientText(text string) string {
	return ClientStyle.Render(text)
}

// ScenarioText styles a scenario name
func ScenarioText(text string) string {
	return ScenarioStyle.Render(text)
}

// GroupText styles a group name
func GroupText(text string) string {
	return GroupStyle.Render(text)
}

// ComponentText styles a component name
func ComponentText(text string) string {
	return ComponentStyle.Render(text)
}

// ValidText styles valid status text (green)
func ValidText(text string) string {
	return ScenarioStyle.Render(text)
}

// ErrorText styles error text (red)
func ErrorText(text string) string {
	return ErrorStyle.Render(text)
}

// PathText styles file paths (gray)
func PathText(text string) string {
	return InfoStyle.Render(text)
}

// CountText styles count numbers (cyan)
func CountText(text string) string {
	return ComponentStyle.Render(text)
}
