package ui

import (
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorAccent     = lipgloss.Color("#FF8C42")
	colorAccentEnd  = "#FF9F5A"
	colorHighlight  = lipgloss.Color("#FFB84D")
	colorText       = lipgloss.Color("#FFFFFF")
	colorMuted      = lipgloss.Color("#6B7280")
	colorError      = lipgloss.Color("#FF4757")
	colorWarning    = lipgloss.Color("#F5C542")
	colorInfo       = lipgloss.Color("#4FC1E9")
	colorPanel      = lipgloss.Color("#3FB950")
	colorPanelTitle = lipgloss.Color("#D946EF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginBottom(1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(colorText)

	CheckedStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(colorInfo)

	LabelStyle = lipgloss.NewStyle().
			Bold(true)

	// HeadingStyle and KindStyle carry no margins so they can sit inline in
	// plain command output.
	HeadingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	KindStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPanel).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPanelTitle)
)

// filePickerStyles themes the bubbles file picker with the palette.
func filePickerStyles(st filepicker.Styles) filepicker.Styles {
	st.Cursor = lipgloss.NewStyle().Foreground(colorAccent)
	st.Symlink = lipgloss.NewStyle().Foreground(colorHighlight)
	st.Directory = lipgloss.NewStyle().Foreground(colorHighlight)
	st.File = lipgloss.NewStyle().Foreground(colorText)
	st.Permission = lipgloss.NewStyle().Foreground(colorMuted)
	st.Selected = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	st.FileSize = lipgloss.NewStyle().Foreground(colorMuted)
	return st
}
