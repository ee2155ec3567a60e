package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/data/db"
	"github.com/google/uuid"
)

const taskColumns = `id, title, description, status, priority, due_date_time, created_at, updated_at, case_id, attachments`

// TaskStore implements task.Store using SQLite.
type TaskStore struct {
	db    *db.DB
	newID func() string
	now   func() time.Time
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *db.DB) *TaskStore {
	return &TaskStore{
		db:    db,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Insert persists a new task row. ID, created_at and updated_at are assigned here.
func (s *TaskStore) Insert(ctx context.Context, rec task.Record) (task.Record, error) {
	attachments, err := encodeAttachments(rec.Attachments)
	if err != nil {
		return task.Record{}, err
	}

	now := s.now()
	row := s.db.Conn().QueryRowContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+taskColumns,
		s.newID(),
		rec.Title,
		toNullString(rec.Description),
		rec.Status,
		rec.Priority,
		rec.DueDateTime.UnixNano(),
		now.UnixNano(),
		now.UnixNano(),
		toNullString(rec.CaseID),
		attachments,
	)

	out, err := scanTask(row)
	if err != nil {
		return task.Record{}, fmt.Errorf("insert task: %w", err)
	}
	return out, nil
}

// List returns every task ordered by due date, oldest first.
func (s *TaskStore) List(ctx context.Context) ([]task.Record, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		ORDER BY due_date_time ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]task.Record, 0)
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return records, nil
}

// Get returns a single task row by ID.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Record, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	rec, err := scanTask(row)
	if err != nil {
		if IsNotFoundError(err) {
			return task.Record{}, task.ErrNotFound
		}
		return task.Record{}, fmt.Errorf("get task: %w", err)
	}
	return rec, nil
}

// Update writes the columns carried by patch and returns the updated row.
func (s *TaskStore) Update(ctx context.Context, id string, patch task.RecordPatch) (task.Record, error) {
	cols := patch.Columns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		v, err := columnValue(c.Value)
		if err != nil {
			return task.Record{}, fmt.Errorf("update task: %w", err)
		}
		if c.Name == "updated_at" {
			// never backwards, always past the previous stamp
			sets = append(sets, "updated_at = MAX(?, updated_at + 1)")
		} else {
			sets = append(sets, c.Name+" = ?")
		}
		args = append(args, v)
	}
	args = append(args, id)

	row := s.db.Conn().QueryRowContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+taskColumns,
		args...,
	)

	rec, err := scanTask(row)
	if err != nil {
		if IsNotFoundError(err) {
			return task.Record{}, task.ErrNotFound
		}
		return task.Record{}, fmt.Errorf("update task: %w", err)
	}
	return rec, nil
}

// Delete removes a task row. Missing IDs are ignored.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Conn().ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Record, error) {
	var (
		rec         task.Record
		description sql.NullString
		caseID      sql.NullString
		due         int64
		createdAt   int64
		updatedAt   int64
		attachments sql.NullString
	)

	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&description,
		&rec.Status,
		&rec.Priority,
		&due,
		&createdAt,
		&updatedAt,
		&caseID,
		&attachments,
	)
	if err != nil {
		return task.Record{}, err
	}

	rec.Description = fromNullString(description)
	rec.CaseID = fromNullString(caseID)
	rec.DueDateTime = time.Unix(0, due)
	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)

	rec.Attachments, err = decodeAttachments(attachments)
	if err != nil {
		return task.Record{}, fmt.Errorf("task %s: %w", rec.ID, err)
	}

	return rec, nil
}

// columnValue converts a patch value into its SQLite column representation.
func columnValue(v any) (any, error) {
	switch v := v.(type) {
	case time.Time:
		return v.UnixNano(), nil
	case []task.Attachment:
		return encodeAttachments(v)
	default:
		return v, nil
	}
}

func encodeAttachments(list []task.Attachment) (string, error) {
	if list == nil {
		list = []task.Attachment{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal attachments: %w", err)
	}
	return string(data), nil
}

func decodeAttachments(raw sql.NullString) ([]task.Attachment, error) {
	list := []task.Attachment{}
	if !raw.Valid || raw.String == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &list); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if list == nil {
		list = []task.Attachment{}
	}
	return list, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
