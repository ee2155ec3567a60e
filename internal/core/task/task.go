// Package task defines the case-work task domain model, the persisted record
// shape it is stored as, and the store contract the service consumes.
package task

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Task is a single case-work item.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      Status       `json:"status"`
	Priority    Priority     `json:"priority"`
	DueDateTime time.Time    `json:"dueDateTime"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CaseID      *string      `json:"caseId,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment references a file held in external object storage. It carries
// metadata only.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"` // MIME type
	Size int64  `json:"size"`
}

// IsCompleted reports whether the task is in the COMPLETED status.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue reports whether the task is past due at now and not completed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDateTime.Before(now) && !t.IsCompleted()
}

// Clone returns a copy that shares no mutable state with t.
func (t Task) Clone() Task {
	c := t
	c.Description = cloneString(t.Description)
	c.CaseID = cloneString(t.CaseID)
	c.Attachments = slices.Clone(t.Attachments)
	if c.Attachments == nil {
		c.Attachments = []Attachment{}
	}
	return c
}

// CreateInput is the payload for creating a task. Zero Status and Priority
// fall back to NEW and MEDIUM.
type CreateInput struct {
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      Status       `json:"status,omitempty"`
	Priority    Priority     `json:"priority,omitempty"`
	DueDateTime time.Time    `json:"dueDateTime"`
	CaseID      *string      `json:"caseId,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// WithDefaults returns a copy of in with defaults applied.
func (in CreateInput) WithDefaults() CreateInput {
	if in.Status == "" {
		in.Status = StatusNew
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Attachments == nil {
		in.Attachments = []Attachment{}
	}
	return in
}

// Patch is a partial update. Nil fields are left untouched. Description and
// CaseID are cleared when their Clear flag is set.
type Patch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *Status       `json:"status,omitempty"`
	Priority    *Priority     `json:"priority,omitempty"`
	DueDateTime *time.Time    `json:"dueDateTime,omitempty"`
	CaseID      *string       `json:"caseId,omitempty"`
	Attachments *[]Attachment `json:"attachments,omitempty"`

	ClearDescription bool `json:"-"`
	ClearCaseID      bool `json:"-"`
}

// UnmarshalJSON decodes a patch body. An explicit null for description or
// caseId clears the field, an absent key leaves it alone.
func (p *Patch) UnmarshalJSON(data []byte) error {
	type plain Patch
	var body struct {
		plain
		Description json.RawMessage `json:"description"`
		CaseID      json.RawMessage `json:"caseId"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	*p = Patch(body.plain)
	var err error
	if p.Description, p.ClearDescription, err = nullableString(body.Description); err != nil {
		return fmt.Errorf("description: %w", err)
	}
	if p.CaseID, p.ClearCaseID, err = nullableString(body.CaseID); err != nil {
		return fmt.Errorf("caseId: %w", err)
	}
	return nil
}

func nullableString(raw json.RawMessage) (*string, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	return &s, false, nil
}

// IsEmpty reports whether the patch changes no business field.
func (p Patch) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Status == nil &&
		p.Priority == nil &&
		p.DueDateTime == nil &&
		p.CaseID == nil &&
		p.Attachments == nil &&
		!p.ClearDescription &&
		!p.ClearCaseID
}

// StatusPatch returns a patch that only changes the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// AttachmentsPatch returns a patch that replaces the attachment list.
func AttachmentsPatch(list []Attachment) Patch {
	cp := slices.Clone(list)
	if cp == nil {
		cp = []Attachment{}
	}
	return Patch{Attachments: &cp}
}

// PatchFromTask returns a patch carrying every business field of t. Optional
// fields that are unset on t are cleared.
func PatchFromTask(t Task) Patch {
	title := t.Title
	status := t.Status
	priority := t.Priority
	due := t.DueDateTime
	attachments := slices.Clone(t.Attachments)
	if attachments == nil {
		attachments = []Attachment{}
	}

	return Patch{
		Title:       &title,
		Description: cloneString(t.Description),
		Status:      &status,
		Priority:    &priority,
		DueDateTime: &due,
		CaseID:      cloneString(t.CaseID),
		Attachments: &attachments,

		ClearDescription: t.Description == nil,
		ClearCaseID:      t.CaseID == nil,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
