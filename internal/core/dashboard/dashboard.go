// Package dashboard derives the aggregate views shown on the task dashboard.
// Every function is pure and safe to call on each render.
package dashboard

import (
	"math"
	"time"

	"github.com/colonyops/casetrack/internal/core/task"
)

// StatusCount is one segment of the status distribution.
type StatusCount struct {
	Status task.Status `json:"status"`
	Label  string      `json:"label"`
	Count  int         `json:"count"`
}

// PriorityCount is one bar of the priority distribution.
type PriorityCount struct {
	Priority task.Priority `json:"priority"`
	Label    string        `json:"label"`
	Count    int           `json:"count"`
}

// StatusDistribution counts tasks per status in canonical order. Statuses with
// no tasks are omitted so charts never render empty segments.
func StatusDistribution(tasks []task.Task) []StatusCount {
	counts := make(map[task.Status]int, 4)
	for _, t := range tasks {
		counts[t.Status]++
	}

	out := make([]StatusCount, 0, len(counts))
	for _, s := range task.Statuses() {
		if n := counts[s]; n > 0 {
			out = append(out, StatusCount{Status: s, Label: s.Label(), Count: n})
		}
	}
	return out
}

// PriorityDistribution counts tasks per priority. All three priorities are
// always present, including zero counts.
func PriorityDistribution(tasks []task.Task) []PriorityCount {
	counts := make(map[task.Priority]int, 3)
	for _, t := range tasks {
		counts[t.Priority]++
	}

	out := make([]PriorityCount, 0, 3)
	for _, p := range task.Priorities() {
		out = append(out, PriorityCount{Priority: p, Label: p.Label(), Count: counts[p]})
	}
	return out
}

// Summary holds the headline dashboard counts.
type Summary struct {
	Total          int `json:"total"`
	Pending        int `json:"pending"`
	Completed      int `json:"completed"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"` // percent, rounded
}

// Summarize computes the headline counts at now.
func Summarize(tasks []task.Task, now time.Time) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		switch {
		case t.Status.IsPending():
			s.Pending++
		case t.IsCompleted():
			s.Completed++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	s.CompletionRate = CompletionRate(s.Completed, s.Total)
	return s
}

// CompletionRate returns completed/total as a rounded percentage, or 0 when
// total is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Column is one lane of the board view.
type Column struct {
	Status task.Status `json:"status"`
	Label  string      `json:"label"`
	Tasks  []task.Task `json:"tasks"`
}

// Board groups tasks by status. Every status gets a column, in canonical
// order, and tasks keep their input order within a column.
func Board(tasks []task.Task) []Column {
	cols := make([]Column, 0, 4)
	index := make(map[task.Status]int, 4)
	for i, s := range task.Statuses() {
		index[s] = i
		cols = append(cols, Column{Status: s, Label: s.Label(), Tasks: []task.Task{}})
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

// View bundles every dashboard derivation for one render.
type View struct {
	Summary    Summary         `json:"summary"`
	ByStatus   []StatusCount   `json:"byStatus"`
	ByPriority []PriorityCount `json:"byPriority"`
	Upcoming   []Deadline      `json:"upcoming"`
}

// Build computes the full dashboard at now. The location of now decides
// calendar-day boundaries.
func Build(tasks []task.Task, now time.Time) View {
	return View{
		Summary:    Summarize(tasks, now),
		ByStatus:   StatusDistribution(tasks),
		ByPriority: PriorityDistribution(tasks),
		Upcoming:   UpcomingDeadlines(tasks, now),
	}
}
