package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive colors, chosen per terminal background
var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorAccent    lipgloss.Color

	ColorSuccess lipgloss.Color
	ColorWarning lipgloss.Color
	ColorError   lipgloss.Color

	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color
	ColorBorder    lipgloss.Color
)

// initializeColors sets up adaptive colors based on terminal background
func initializeColors() {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		setLightThemeColors()
		return
	case "dark":
		setDarkThemeColors()
		return
	}

	if lipgloss.HasDarkBackground() {
		setDarkThemeColors()
	} else {
		setLightThemeColors()
	}
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205")
	ColorSecondary = lipgloss.Color("33")
	ColorAccent = lipgloss.Color("214")

	ColorSuccess = lipgloss.Color("10")
	ColorWarning = lipgloss.Color("11")
	ColorError = lipgloss.Color("9")

	ColorText = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("244")
	ColorBorder = lipgloss.Color("238")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125")
	ColorSecondary = lipgloss.Color("24")
	ColorAccent = lipgloss.Color("130")

	ColorSuccess = lipgloss.Color("22")
	ColorWarning = lipgloss.Color("136")
	ColorError = lipgloss.Color("160")

	ColorText = lipgloss.Color("232")
	ColorTextMuted = lipgloss.Color("240")
	ColorBorder = lipgloss.Color("248")
}

// Component styles, initialized together with the colors
var (
	StyleTitle    lipgloss.Style
	StyleSubtitle lipgloss.Style
	StyleMuted    lipgloss.Style
	StyleSuccess  lipgloss.Style
	StyleWarning  lipgloss.Style
	StyleError    lipgloss.Style

	StyleUserLabel      lipgloss.Style
	StyleAssistantLabel lipgloss.Style

	StyleProgressDone    lipgloss.Style
	StyleProgressCurrent lipgloss.Style
	StyleProgressPending lipgloss.Style

	StyleInputBorder lipgloss.Style
	StyleStatusBar   lipgloss.Style
)

func initializeStyles() {
	initializeColors()

	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)

	StyleUserLabel = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StyleAssistantLabel = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	StyleProgressDone = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleProgressCurrent = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StyleProgressPending = lipgloss.NewStyle().Foreground(ColorTextMuted)

	StyleInputBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	StyleStatusBar = lipgloss.NewStyle().Foreground(ColorTextMuted).Padding(0, 1)
}
