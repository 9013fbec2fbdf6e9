package shell

import "github.com/charmbracelet/lipgloss"

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)
