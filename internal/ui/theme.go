package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	darkmode "github.com/thiagokokada/dark-mode-go"

	"github.com/asheshgoplani/workdeck/internal/lifecycle"
)

// ResolveThemeMode resolves the effective theme: an explicit setting wins,
// "auto" asks the OS appearance first and falls back to probing the terminal
// background.
func ResolveThemeMode(configured string) string {
	switch configured {
	case "dark", "light":
		return configured
	}
	if dark, err := darkmode.IsDarkMode(); err == nil {
		if dark {
			return "dark"
		}
		return "light"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// ThemePayload builds the theme payload sent with generation requests so
// generated documents match the client's appearance.
func ThemePayload(configured string) *lifecycle.ThemePayload {
	mode := ResolveThemeMode(configured)
	accent := "#7aa2f7"
	if mode == "light" {
		accent = "#2a5db0"
	}
	return &lifecycle.ThemePayload{Mode: mode, Accent: accent}
}

// Styles holds the lipgloss styles for one theme mode.
type Styles struct {
	TabActive    lipgloss.Style
	TabInactive  lipgloss.Style
	TabBar       lipgloss.Style
	SessionItem  lipgloss.Style
	SessionFocus lipgloss.Style
	StatusBar    lipgloss.Style
	Notification lipgloss.Style
	Dim          lipgloss.Style
	Error        lipgloss.Style
}

// NewStyles builds the style set for a theme mode.
func NewStyles(mode string) Styles {
	accent := lipgloss.Color("#7aa2f7")
	dim := lipgloss.Color("240")
	if mode == "light" {
		accent = lipgloss.Color("#2a5db0")
		dim = lipgloss.Color("245")
	}
	return Styles{
		TabActive:    lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true),
		TabInactive:  lipgloss.NewStyle().Foreground(dim),
		TabBar:       lipgloss.NewStyle().PaddingLeft(1),
		SessionItem:  lipgloss.NewStyle().Foreground(dim).PaddingRight(2),
		SessionFocus: lipgloss.NewStyle().Bold(true).Foreground(accent).PaddingRight(2),
		StatusBar:    lipgloss.NewStyle().Foreground(dim).PaddingLeft(1),
		Notification: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).PaddingLeft(1),
		Dim:          lipgloss.NewStyle().Foreground(dim),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}
