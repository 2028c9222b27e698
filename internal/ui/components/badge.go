// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// QualityLabel is the plain-text form of the connection badge.
func QualityLabel(s connection.Snapshot) string {
	switch {
	case s.State == connection.StateConnecting:
		return "connecting"
	case s.Quality == connection.QualityDisconnected:
		return "offline"
	case s.Degraded:
		return "poor (server error)"
	case !s.Sampled:
		return "connected"
	default:
		return fmt.Sprintf("%s %dms", s.Quality, s.LatencyMs)
	}
}

// QualityBadge renders the connection state as a colored dot and label.
func QualityBadge(s connection.Snapshot) string {
	color := styles.Rose
	dot := "○"
	switch {
	case s.State == connection.StateConnecting:
		color, dot = styles.Amber, "◌"
	case s.State == connection.StateConnected && !s.Sampled && !s.Degraded:
		color, dot = styles.Cyan, "●"
	case s.Quality == connection.QualityExcellent:
		color, dot = styles.Emerald, "●"
	case s.Quality == connection.QualityGood:
		color, dot = styles.Cyan, "●"
	case s.Quality == connection.QualityPoor:
		color, dot = styles.Amber, "●"
	}
	return lipgloss.NewStyle().Foreground(color).Render(dot + " " + QualityLabel(s))
}
