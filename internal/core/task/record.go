package task

import (
	"fmt"
	"slices"
	"time"
)

// Record is the persisted shape of a task, one row per task. Keys are
// snake_case and must stay compatible with existing rows.
type Record struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority"`
	DueDateTime time.Time    `json:"due_date_time"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CaseID      *string      `json:"case_id"`
	Attachments []Attachment `json:"attachments"`
}

// Task converts a persisted record into a Task. A missing attachment list
// becomes an empty one. Unknown status or priority values are rejected.
func (r Record) Task() (Task, error) {
	status, err := ParseStatus(r.Status)
	if err != nil {
		return Task{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	priority, err := ParsePriority(r.Priority)
	if err != nil {
		return Task{}, fmt.Errorf("record %s: %w", r.ID, err)
	}

	attachments := slices.Clone(r.Attachments)
	if attachments == nil {
		attachments = []Attachment{}
	}

	return Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: cloneString(r.Description),
		Status:      status,
		Priority:    priority,
		DueDateTime: r.DueDateTime,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CaseID:      cloneString(r.CaseID),
		Attachments: attachments,
	}, nil
}

// Record converts the creation payload into a record ready for insert. The
// store fills ID, CreatedAt and UpdatedAt.
func (in CreateInput) Record() Record {
	in = in.WithDefaults()
	return Record{
		Title:       in.Title,
		Description: cloneString(in.Description),
		Status:      string(in.Status),
		Priority:    string(in.Priority),
		DueDateTime: in.DueDateTime,
		CaseID:      cloneString(in.CaseID),
		Attachments: slices.Clone(in.Attachments),
	}
}

// RecordPatch is the persisted shape of a partial update. UpdatedAt is always
// written. A Clear flag writes NULL to its column.
type RecordPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *string       `json:"status,omitempty"`
	Priority    *string       `json:"priority,omitempty"`
	DueDateTime *time.Time    `json:"due_date_time,omitempty"`
	CaseID      *string       `json:"case_id,omitempty"`
	Attachments *[]Attachment `json:"attachments,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`

	ClearDescription bool `json:"clear_description,omitempty"`
	ClearCaseID      bool `json:"clear_case_id,omitempty"`
}

// Record translates p into its persisted shape, stamping updatedAt.
func (p Patch) Record(updatedAt time.Time) RecordPatch {
	rp := RecordPatch{
		Title:       cloneString(p.Title),
		Description: cloneString(p.Description),
		DueDateTime: p.DueDateTime,
		CaseID:      cloneString(p.CaseID),
		UpdatedAt:   updatedAt,

		ClearDescription: p.ClearDescription,
		ClearCaseID:      p.ClearCaseID,
	}
	if p.Status != nil {
		s := string(*p.Status)
		rp.Status = &s
	}
	if p.Priority != nil {
		s := string(*p.Priority)
		rp.Priority = &s
	}
	if p.Attachments != nil {
		list := slices.Clone(*p.Attachments)
		if list == nil {
			list = []Attachment{}
		}
		rp.Attachments = &list
	}
	return rp
}

// Column is a single column assignment of a RecordPatch.
type Column struct {
	Name  string
	Value any
}

// Columns returns the assignments carried by the patch in a stable order,
// ending with updated_at. Attachment values are []Attachment; stores encode
// them for their column type.
func (p RecordPatch) Columns() []Column {
	cols := make([]Column, 0, 8)
	if p.Title != nil {
		cols = append(cols, Column{"title", *p.Title})
	}
	switch {
	case p.ClearDescription:
		cols = append(cols, Column{"description", nil})
	case p.Description != nil:
		cols = append(cols, Column{"description", *p.Description})
	}
	if p.Status != nil {
		cols = append(cols, Column{"status", *p.Status})
	}
	if p.Priority != nil {
		cols = append(cols, Column{"priority", *p.Priority})
	}
	if p.DueDateTime != nil {
		cols = append(cols, Column{"due_date_time", *p.DueDateTime})
	}
	switch {
	case p.ClearCaseID:
		cols = append(cols, Column{"case_id", nil})
	case p.CaseID != nil:
		cols = append(cols, Column{"case_id", *p.CaseID})
	}
	if p.Attachments != nil {
		cols = append(cols, Column{"attachments", *p.Attachments})
	}
	return append(cols, Column{"updated_at", p.UpdatedAt})
}

// Apply returns r with the patch applied.
func (p RecordPatch) Apply(r Record) Record {
	if p.Title != nil {
		r.Title = *p.Title
	}
	switch {
	case p.ClearDescription:
		r.Description = nil
	case p.Description != nil:
		r.Description = cloneString(p.Description)
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.DueDateTime != nil {
		r.DueDateTime = *p.DueDateTime
	}
	switch {
	case p.ClearCaseID:
		r.CaseID = nil
	case p.CaseID != nil:
		r.CaseID = cloneString(p.CaseID)
	}
	if p.Attachments != nil {
		r.Attachments = slices.Clone(*p.Attachments)
	}
	r.UpdatedAt = p.UpdatedAt
	return r
}
