package task

import "strings"

// FilterAll is the filter value that matches every status or priority.
const FilterAll = "ALL"

// Query selects tasks for list views. Nil Status or Priority match all values.
// The three predicates are conjunctive.
type Query struct {
	Status   *Status
	Priority *Priority
	Text     string
}

// ParseQuery builds a query from raw filter values. Empty strings and "ALL"
// select every status or priority.
func ParseQuery(status, priority, text string) (Query, error) {
	q := Query{Text: text}

	if status != "" && !strings.EqualFold(status, FilterAll) {
		s, err := ParseStatus(status)
		if err != nil {
			return Query{}, err
		}
		q.Status = &s
	}

	if priority != "" && !strings.EqualFold(priority, FilterAll) {
		p, err := ParsePriority(priority)
		if err != nil {
			return Query{}, err
		}
		q.Priority = &p
	}

	return q, nil
}

// IsActive reports whether any filter is set.
func (q Query) IsActive() bool {
	return q.Status != nil || q.Priority != nil || q.Text != ""
}

// Matches reports whether t satisfies every predicate of q. Text matching is
// a case-insensitive substring search over title, description and case ID.
func (q Query) Matches(t Task) bool {
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	if q.Text == "" {
		return true
	}

	needle := strings.ToLower(q.Text)
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	if t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle) {
		return true
	}
	if t.CaseID != nil && strings.Contains(strings.ToLower(*t.CaseID), needle) {
		return true
	}
	return false
}

// Filter returns the tasks matching q, preserving input order.
func Filter(tasks []Task, q Query) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
