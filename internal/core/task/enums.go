package task

import (
	"fmt"
	"strings"
)

// Status is the workflow state of a task. Any status may follow any other.
// ENUM(NEW, IN_PROGRESS, COMPLETED, BLOCKED).
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusBlocked    Status = "BLOCKED"
)

// Statuses lists every status in canonical order.
func Statuses() []Status {
	return []Status{StatusNew, StatusInProgress, StatusCompleted, StatusBlocked}
}

// IsValid reports whether s is one of the enumerated statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// Label returns the human readable name, e.g. "In Progress".
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusBlocked:
		return "Blocked"
	}
	return string(s)
}

// IsPending reports whether the status counts as outstanding work.
func (s Status) IsPending() bool {
	return s == StatusNew || s == StatusInProgress
}

func (s Status) String() string { return string(s) }

// UnmarshalText rejects values outside the enumeration.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses a status name. Matching is case-insensitive and accepts
// spaces or dashes in place of underscores.
func ParseStatus(v string) (Status, error) {
	s := Status(normalizeEnum(v))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid status %q: must be one of NEW, IN_PROGRESS, COMPLETED, BLOCKED", v)
	}
	return s, nil
}

// Priority is the urgency of a task.
// ENUM(HIGH, MEDIUM, LOW).
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Priorities lists every priority in canonical order.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// IsValid reports whether p is one of the enumerated priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Label returns the human readable name, e.g. "High".
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return string(p)
}

func (p Priority) String() string { return string(p) }

// UnmarshalText rejects values outside the enumeration.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePriority parses a priority name, case-insensitively.
func ParsePriority(v string) (Priority, error) {
	p := Priority(normalizeEnum(v))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority %q: must be one of HIGH, MEDIUM, LOW", v)
	}
	return p, nil
}

func normalizeEnum(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(v)
}
