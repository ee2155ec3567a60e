package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/colonyops/casetrack/internal/core/dashboard"
	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	maxWidth     = 120
	labelWidth   = 12
)

// terminalWidth returns the width of stdout, or defaultWidth when stdout is
// not a terminal.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w, maxWidth)
}

// renderDashboard writes the summary, both distributions and the upcoming
// deadlines as styled text.
func renderDashboard(w io.Writer, v dashboard.View, now time.Time, width int) error {
	sections := []string{
		styles.HeaderStyle.Render("Dashboard") + "  " + styles.MutedStyle.Render(now.Format("Mon, Jan 2 15:04")),
		renderSummary(v.Summary),
		renderStatus(v, width),
		renderPriority(v, width),
		renderUpcoming(v.Upcoming, now),
	}

	_, err := fmt.Fprintln(w, strings.Join(sections, "\n\n"))
	return err
}

func renderSummary(s dashboard.Summary) string {
	stat := func(label string, value int, style lipgloss.Style) string {
		return styles.MutedStyle.Render(label) + " " + style.Render(humanize.Comma(int64(value)))
	}

	return strings.Join([]string{
		stat("Total", s.Total, styles.ValueStyle),
		stat("Pending", s.Pending, styles.WarningStyle),
		stat("Completed", s.Completed, styles.SuccessStyle),
		stat("Overdue", s.Overdue, styles.ErrorStyle),
		styles.MutedStyle.Render("Completion") + " " + styles.ValueStyle.Render(fmt.Sprintf("%d%%", s.CompletionRate)),
	}, "   ")
}

func renderStatus(v dashboard.View, width int) string {
	lines := []string{styles.TitleStyle.Render("By status")}
	if len(v.ByStatus) == 0 {
		lines = append(lines, styles.MutedStyle.Render("  no tasks"))
	}
	for _, c := range v.ByStatus {
		lines = append(lines, barLine(c.Label, c.Count, v.Summary.Total, width, styles.StatusStyle(c.Status)))
	}
	return strings.Join(lines, "\n")
}

func renderPriority(v dashboard.View, width int) string {
	lines := []string{styles.TitleStyle.Render("By priority")}
	for _, c := range v.ByPriority {
		lines = append(lines, barLine(c.Label, c.Count, v.Summary.Total, width, styles.PriorityStyle(c.Priority)))
	}
	return strings.Join(lines, "\n")
}

func renderUpcoming(list []dashboard.Deadline, now time.Time) string {
	lines := []string{styles.TitleStyle.Render("Upcoming deadlines")}
	if len(list) == 0 {
		lines = append(lines, styles.MutedStyle.Render("  nothing due this week"))
	}
	for _, d := range list {
		label := styles.DeadlineStyle(d.Label).Width(labelWidth).Render(d.Display)
		line := "  " + label + " " + d.Task.Title
		if d.Task.CaseID != nil {
			line += " " + styles.MutedStyle.Render("["+*d.Task.CaseID+"]")
		}
		line += " " + styles.MutedStyle.Render(humanize.RelTime(d.Task.DueDateTime, now, "ago", "from now"))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// barLine renders "  Label  ████ count" with the bar scaled to the share of
// total within the available width.
func barLine(label string, count, total, width int, style lipgloss.Style) string {
	room := max(width-labelWidth-12, 10)
	n := 0
	if total > 0 {
		n = count * room / total
	}
	if count > 0 && n == 0 {
		n = 1
	}

	return "  " + lipgloss.NewStyle().Width(labelWidth).Render(label) +
		style.Render(strings.Repeat("█", n)) + " " +
		styles.ValueStyle.Render(fmt.Sprint(count))
}
