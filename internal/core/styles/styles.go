// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/colonyops/casetrack/internal/core/dashboard"
	"github.com/colonyops/casetrack/internal/core/task"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	HeaderStyle  lipgloss.Style
	TitleStyle   lipgloss.Style
	MutedStyle   lipgloss.Style
	DividerStyle lipgloss.Style
	PanelStyle   lipgloss.Style
	ValueStyle   lipgloss.Style
	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	BarStyle     lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Bold(true)
	MutedStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	DividerStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface).
		Padding(0, 1)
	ValueStyle = lipgloss.NewStyle().
		Foreground(p.Secondary).
		Bold(true)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Success)
	WarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	BarStyle = lipgloss.NewStyle().Foreground(p.Primary)
}

// StatusStyle returns the style for a task status badge.
func StatusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusCompleted:
		return SuccessStyle
	case task.StatusBlocked:
		return ErrorStyle
	case task.StatusInProgress:
		return lipgloss.NewStyle().Foreground(CurrentPalette.Primary)
	default:
		return MutedStyle
	}
}

// PriorityStyle returns the style for a task priority badge.
func PriorityStyle(p task.Priority) lipgloss.Style {
	switch p {
	case task.PriorityHigh:
		return ErrorStyle.Bold(true)
	case task.PriorityMedium:
		return WarningStyle
	default:
		return MutedStyle
	}
}

// DeadlineStyle returns the style for an upcoming deadline label.
func DeadlineStyle(l dashboard.DeadlineLabel) lipgloss.Style {
	switch l {
	case dashboard.LabelOverdue:
		return ErrorStyle.Bold(true)
	case dashboard.LabelToday:
		return WarningStyle
	case dashboard.LabelTomorrow:
		return lipgloss.NewStyle().Foreground(CurrentPalette.Primary)
	default:
		return MutedStyle
	}
}

func init() {
	p, _ := GetPalette(DefaultTheme)
	SetTheme(p)
}
