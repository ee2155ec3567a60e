package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hay-kot/criterio"
)

const (
	TitleMinLen = 3
	TitleMaxLen = 100
)

// ValidateTitle checks the title length bounds after trimming whitespace.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < TitleMinLen {
		return fmt.Errorf("title must be at least %d characters", TitleMinLen)
	}
	if n > TitleMaxLen {
		return fmt.Errorf("title must be at most %d characters", TitleMaxLen)
	}
	return nil
}

// ValidateDueDate requires a due date to be set.
func ValidateDueDate(due time.Time) error {
	if due.IsZero() {
		return errors.New("due date is required")
	}
	return nil
}

// ValidateAttachment checks attachment metadata.
func ValidateAttachment(a Attachment) error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(a.URL) == "":
		return errors.New("url is required")
	case a.Size < 0:
		return errors.New("size must not be negative")
	}
	return nil
}

// Validate checks the creation payload. Zero status and priority are allowed
// and mean "use the default".
func (in CreateInput) Validate() error {
	err := criterio.ValidateStruct(
		criterio.Run("title", in.Title, ValidateTitle),
		criterio.Run("dueDateTime", in.DueDateTime, ValidateDueDate),
		validateEnums(optionalStatus(in.Status), optionalPriority(in.Priority)),
		validateAttachments(in.Attachments),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Validate checks the fields present in the patch.
func (p Patch) Validate() error {
	var errs []error
	if p.Title != nil {
		errs = append(errs, criterio.Run("title", *p.Title, ValidateTitle))
	}
	if p.DueDateTime != nil {
		errs = append(errs, criterio.Run("dueDateTime", *p.DueDateTime, ValidateDueDate))
	}
	errs = append(errs, validateEnums(p.Status, p.Priority))
	if p.Attachments != nil {
		errs = append(errs, validateAttachments(*p.Attachments))
	}

	if err := criterio.ValidateStruct(errs...); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func validateEnums(status *Status, priority *Priority) error {
	var errs criterio.FieldErrorsBuilder
	if status != nil && !status.IsValid() {
		errs = errs.Append("status", fmt.Errorf("invalid status %q", *status))
	}
	if priority != nil && !priority.IsValid() {
		errs = errs.Append("priority", fmt.Errorf("invalid priority %q", *priority))
	}
	return errs.ToError()
}

func validateAttachments(list []Attachment) error {
	var errs criterio.FieldErrorsBuilder
	for i, a := range list {
		if err := ValidateAttachment(a); err != nil {
			errs = errs.Append(fmt.Sprintf("attachments[%d]", i), err)
		}
	}
	return errs.ToError()
}

func optionalStatus(s Status) *Status {
	if s == "" {
		return nil
	}
	return &s
}

func optionalPriority(p Priority) *Priority {
	if p == "" {
		return nil
	}
	return &p
}
