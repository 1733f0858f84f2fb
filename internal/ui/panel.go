package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ColorMode selects when styled output carries ANSI colors.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// SetColorMode sets the lipgloss color profile. Auto honors NO_COLOR.
func SetColorMode(mode ColorMode) {
	switch mode {
	case ColorNever:
		lipgloss.SetColorProfile(termenv.Ascii)
	case ColorAlways:
		if lipgloss.ColorProfile() == termenv.Ascii {
			lipgloss.SetColorProfile(termenv.ANSI256)
		}
	default:
		if termenv.EnvNoColor() {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	}
}

type ServerInfo struct {
	Directory string
	Host      string
	Port      int
	URL       string
}

// ServerPanel renders the boxed summary printed when the preview server starts.
func ServerPanel(info ServerInfo) string {
	var s strings.Builder

	s.WriteString(PanelTitleStyle.Render("HTTP Server Running"))
	s.WriteString("\n")
	fmt.Fprintf(&s, "%s %s\n", LabelStyle.Render("Directory:"), info.Directory)
	fmt.Fprintf(&s, "%s %s\n", LabelStyle.Render("Host:"), info.Host)
	fmt.Fprintf(&s, "%s %d\n", LabelStyle.Render("Port:"), info.Port)
	fmt.Fprintf(&s, "%s %s", LabelStyle.Render("URL:"), info.URL)

	return PanelStyle.Render(s.String())
}

func Success(format string, args ...any) string {
	return SuccessStyle.Render("✓ " + fmt.Sprintf(format, args...))
}

func Error(err error) string {
	return ErrorStyle.Render("✗ Error: ") + err.Error()
}
