// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style

	UserBubble      lipgloss.Style
	CompanionBubble lipgloss.Style
	SystemBubble    lipgloss.Style
	FailedBubble    lipgloss.Style

	Sender    lipgloss.Style
	Timestamp lipgloss.Style
	Meta      lipgloss.Style
	Typing    lipgloss.Style

	InputPrompt lipgloss.Style
	Hint        lipgloss.Style
}

// NewTheme creates a theme. name is "dark", "light" or "auto"; anything but
// dark or light follows the terminal background.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(name) {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Violet)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)

	t.UserBubble = bubble.
		Foreground(UserBubbleFg).
		BorderForeground(UserBubbleBorder)

	t.CompanionBubble = bubble.
		Foreground(CompanionBubbleFg).
		BorderForeground(CompanionBubbleBorder)

	t.SystemBubble = bubble.
		Foreground(SystemBubbleFg).
		BorderForeground(SystemBubbleBorder).
		Italic(true)

	t.FailedBubble = bubble.
		Foreground(TextPrimary).
		BorderForeground(Rose).
		BorderStyle(lipgloss.DoubleBorder())

	t.Sender = lipgloss.NewStyle().Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Meta = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Typing = lipgloss.NewStyle().Foreground(Violet).Italic(true)

	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)
}
