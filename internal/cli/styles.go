package cli

import (
	"github.com/charmbracelet/lipgloss"

	"open-launcher/internal/liveness"
	"open-launcher/internal/orchestrator"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00C000")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E00000")).Bold(true)
	pingingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0E68C"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E00000"))
	noticeBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	updateBanner = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#F0E68C")).Padding(0, 1)
)

func statusStyle(s liveness.Status) lipgloss.Style {
	switch s {
	case liveness.Online:
		return onlineStyle
	case liveness.Offline:
		return offlineStyle
	case liveness.Probing:
		return pingingStyle
	default:
		return dimStyle
	}
}

func severityStyle(s orchestrator.Severity) lipgloss.Style {
	switch s {
	case orchestrator.Error:
		return errorStyle
	case orchestrator.Warning:
		return warningStyle
	default:
		return lipgloss.NewStyle()
	}
}
