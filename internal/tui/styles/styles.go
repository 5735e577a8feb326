// Package styles holds the lipgloss palette shared by the status table and
// the watch dashboard.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

var (
	// Colors meet WCAG AA contrast on dark backgrounds.
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	BlueColor      = lipgloss.Color("#60A5FA")
	TextColor      = lipgloss.Color("#F9FAFB")
	BorderColor    = lipgloss.Color("#6B7280")

	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)
)

// StatusColor returns the color for a worker status.
func StatusColor(status types.WorkerStatus) lipgloss.Color {
	switch status {
	case types.StatusAssigned:
		return MutedColor
	case types.StatusSpawned, types.StatusValidated, types.StatusConfigured:
		return BlueColor
	case types.StatusRunning:
		return SecondaryColor
	case types.StatusCompleted:
		return PrimaryColor
	case types.StatusFailed:
		return ErrorColor
	default:
		return MutedColor
	}
}

// PhaseColor returns the color for a session phase.
func PhaseColor(phase types.Phase) lipgloss.Color {
	switch phase {
	case types.PhaseActive, types.PhaseSynthesizing:
		return SecondaryColor
	case types.PhaseCompleted:
		return PrimaryColor
	case types.PhaseFailed:
		return ErrorColor
	default:
		return WarningColor
	}
}

// AuditColor returns the color for an audit verdict.
func AuditColor(audit types.AuditStatus) lipgloss.Color {
	switch audit {
	case types.AuditPassed:
		return SecondaryColor
	case types.AuditFailed:
		return ErrorColor
	case types.AuditPending:
		return WarningColor
	default:
		return MutedColor
	}
}

// Status renders s in its status color.
func Status(s types.WorkerStatus) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Render(string(s))
}

// Phase renders p in its phase color.
func Phase(p types.Phase) string {
	return lipgloss.NewStyle().Foreground(PhaseColor(p)).Bold(true).Render(string(p))
}

// Audit renders a in its verdict color. An empty verdict renders as "-".
func Audit(a types.AuditStatus) string {
	text := string(a)
	if text == "" {
		text = "-"
	}
	return lipgloss.NewStyle().Foreground(AuditColor(a)).Render(text)
}
