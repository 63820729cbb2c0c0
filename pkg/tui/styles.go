package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary   = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}
	secondary = lipgloss.AdaptiveColor{Light: "#0D9488", Dark: "#2DD4BF"}
	muted     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	danger    = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(muted)

	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(muted)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(secondary)

	userTextStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	welcomeTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primary).
				MarginBottom(1)

	featureStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	noticeStyle = lipgloss.NewStyle().
			Foreground(danger)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted)
)
