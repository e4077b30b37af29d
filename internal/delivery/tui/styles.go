package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title   lipgloss.Style
	Status  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1),
		Status:  lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")),
	}
}
