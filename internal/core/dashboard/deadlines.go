package dashboard

import (
	"slices"
	"time"

	"github.com/colonyops/casetrack/internal/core/task"
)

const (
	// UpcomingWindowDays is how far ahead upcoming deadlines look.
	UpcomingWindowDays = 7
	// UpcomingLimit caps the number of upcoming deadlines returned.
	UpcomingLimit = 5
)

// DeadlineLabel classifies a due date relative to now.
type DeadlineLabel string

const (
	LabelOverdue  DeadlineLabel = "Overdue"
	LabelToday    DeadlineLabel = "Today"
	LabelTomorrow DeadlineLabel = "Tomorrow"
	LabelUpcoming DeadlineLabel = "Upcoming"
)

// Deadline is a task selected for the upcoming-deadlines panel.
type Deadline struct {
	Task  task.Task     `json:"task"`
	Label DeadlineLabel `json:"label"`
	// Display is the short label shown to users, e.g. "Today" or "Fri, Mar 7".
	Display string `json:"display"`
}

// UpcomingDeadlines selects incomplete tasks due within the next seven days,
// plus overdue tasks from previous calendar days, sorted by due time and capped
// at five. Tasks due earlier today are neither upcoming nor overdue here.
// Calendar days are evaluated in now's location.
func UpcomingDeadlines(tasks []task.Task, now time.Time) []Deadline {
	horizon := now.AddDate(0, 0, UpcomingWindowDays)

	selected := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsCompleted() {
			continue
		}
		due := t.DueDateTime
		inWindow := !due.Before(now) && !due.After(horizon)
		overdue := due.Before(now) && !SameDay(due, now)
		if inWindow || overdue {
			selected = append(selected, t)
		}
	}

	slices.SortStableFunc(selected, func(a, b task.Task) int {
		return a.DueDateTime.Compare(b.DueDateTime)
	})
	if len(selected) > UpcomingLimit {
		selected = selected[:UpcomingLimit]
	}

	out := make([]Deadline, 0, len(selected))
	for _, t := range selected {
		label := Classify(t.DueDateTime, now)
		out = append(out, Deadline{
			Task:    t,
			Label:   label,
			Display: display(label, t.DueDateTime.In(now.Location())),
		})
	}
	return out
}

// Classify labels a due date relative to now using calendar days in now's
// location.
func Classify(due, now time.Time) DeadlineLabel {
	switch {
	case SameDay(due, now):
		return LabelToday
	case due.Before(now):
		return LabelOverdue
	case SameDay(due, now.AddDate(0, 0, 1)):
		return LabelTomorrow
	default:
		return LabelUpcoming
	}
}

// SameDay reports whether a and b fall on the same calendar day in b's
// location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func display(label DeadlineLabel, due time.Time) string {
	if label == LabelUpcoming {
		return due.Format("Mon, Jan 2")
	}
	return string(label)
}
