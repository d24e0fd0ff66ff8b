package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	mutedColor     = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")
	imageColor     = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	bannerStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1).
			MarginRight(1)

	chatWindowStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	ownNameStyle     = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	otherNameStyle   = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	unknownNameStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	imageStyle       = lipgloss.NewStyle().Foreground(imageColor).Underline(true)
)
