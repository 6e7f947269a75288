// Package cli provides styled terminal output for the shell using lipgloss.
package cli

import "github.com/charmbracelet/lipgloss"

var (
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// TitleColor is the main theme color.
	TitleColor = lipgloss.Color("#95E1D3")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(TitleColor)
	successStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	warningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

// FormatTitle renders a section title.
func FormatTitle(text string) string {
	return titleStyle.Render(text)
}

// FormatSuccess renders a success message.
func FormatSuccess(text string) string {
	return successStyle.Render(text)
}

// FormatWarning renders a warning message.
func FormatWarning(text string) string {
	return warningStyle.Render(text)
}

// FormatError renders an error message.
func FormatError(text string) string {
	return errorStyle.Render(text)
}

// RenderBox renders titled content in a bordered box.
func RenderBox(title, content string) string {
	return boxStyle.Render(FormatTitle(title) + "\n\n" + content)
}
