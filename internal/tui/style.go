package tui

import "github.com/charmbracelet/lipgloss"

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	styleOK = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleMuted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleCursor = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("228"))

	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252"))
)

// noticeStyle picks the colour for a notification level.
func noticeStyle(level string) lipgloss.Style {
	switch level {
	case "success":
		return styleOK
	case "error":
		return styleError
	}
	return styleStatusBar
}
