// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

var (
	// Purple marks assistant output and the selected candidate.
	Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Cyan marks user input, commands and headings.
	Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Emerald is success.
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Rose is errors.
	Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Amber is warnings and recoverable notices.
	Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	Muted = lipgloss.NewStyle().Foreground(TextMuted)

	Label = lipgloss.NewStyle().Foreground(TextSecondary)

	Success = lipgloss.NewStyle().Foreground(Emerald)

	Warning = lipgloss.NewStyle().Foreground(Amber)

	Error = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	// Tab is an unselected candidate tab.
	Tab = lipgloss.NewStyle().Padding(0, 1).Foreground(TextSecondary)

	// ActiveTab is the candidate currently shown.
	ActiveTab = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(TextInverse).Background(Purple)

	// TableHeader styles catalog column headings.
	TableHeader = lipgloss.NewStyle().Bold(true).Foreground(Cyan).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(Overlay)

	// Frame surrounds the picker viewport.
	Frame = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Overlay)
)
