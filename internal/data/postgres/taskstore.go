package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const taskColumns = `id, title, description, status, priority, due_date_time, created_at, updated_at, case_id, attachments`

// Querier is the subset of pgxpool.Pool used by TaskStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TaskStore implements task.Store on PostgreSQL.
type TaskStore struct {
	db Querier
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a PostgreSQL-backed task store.
func NewTaskStore(db Querier) *TaskStore {
	return &TaskStore{db: db}
}

// Insert persists a new row. The database assigns id, created_at and updated_at.
func (s *TaskStore) Insert(ctx context.Context, rec task.Record) (task.Record, error) {
	const q = `
    INSERT INTO tasks
      (title, description, status, priority, due_date_time, case_id, attachments)
    VALUES
      ($1, $2, $3, $4, $5, $6, $7::jsonb)
    RETURNING ` + taskColumns

	attachments, err := encodeAttachments(rec.Attachments)
	if err != nil {
		return task.Record{}, err
	}

	row := s.db.QueryRow(ctx, q,
		rec.Title, rec.Description, rec.Status, rec.Priority, rec.DueDateTime, rec.CaseID, attachments)
	out, err := scanTask(row)
	if err != nil {
		return task.Record{}, fmt.Errorf("insert task: %w", err)
	}
	return out, nil
}

// List returns all rows ordered by due date.
func (s *TaskStore) List(ctx context.Context) ([]task.Record, error) {
	const q = `
    SELECT ` + taskColumns + `
    FROM tasks
    ORDER BY due_date_time ASC, created_at ASC`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	records := make([]task.Record, 0)
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows tasks: %w", err)
	}
	return records, nil
}

// Get returns one row by id.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Record, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	rec, err := scanTask(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return task.Record{}, task.ErrNotFound
	}
	if err != nil {
		return task.Record{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return rec, nil
}

// Update applies patch and returns the updated row.
func (s *TaskStore) Update(ctx context.Context, id string, patch task.RecordPatch) (task.Record, error) {
	q, args, err := updateQuery(id, patch)
	if err != nil {
		return task.Record{}, err
	}

	rec, err := scanTask(s.db.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return task.Record{}, task.ErrNotFound
	}
	if err != nil {
		return task.Record{}, fmt.Errorf("update task %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a row. Missing ids are ignored.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	const q = `
      DELETE FROM tasks WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete for %s: %w", id, err)
	}
	return nil
}

// updateQuery builds the UPDATE statement for the columns carried by patch.
// updated_at never moves backwards and always advances past its previous
// value, whatever the caller's clock says.
func updateQuery(id string, patch task.RecordPatch) (string, []any, error) {
	cols := patch.Columns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)

	for i, c := range cols {
		placeholder := "$" + strconv.Itoa(i+1)
		value := c.Value
		if list, ok := value.([]task.Attachment); ok {
			encoded, err := encodeAttachments(list)
			if err != nil {
				return "", nil, err
			}
			value = encoded
			placeholder += "::jsonb"
		}
		if c.Name == "updated_at" {
			placeholder = "GREATEST(" + placeholder + "::timestamptz, clock_timestamp(), updated_at + interval '1 microsecond')"
		}
		sets = append(sets, c.Name+" = "+placeholder)
		args = append(args, value)
	}
	args = append(args, id)

	q := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), taskColumns)
	return q, args, nil
}

func scanTask(row pgx.Row) (task.Record, error) {
	var (
		rec         task.Record
		due         time.Time
		attachments []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Description,
		&rec.Status,
		&rec.Priority,
		&due,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.CaseID,
		&attachments,
	)
	if err != nil {
		return task.Record{}, err
	}
	rec.DueDateTime = due

	rec.Attachments = []task.Attachment{}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &rec.Attachments); err != nil {
			return task.Record{}, fmt.Errorf("unmarshal attachments: %w", err)
		}
		if rec.Attachments == nil {
			rec.Attachments = []task.Attachment{}
		}
	}
	return rec, nil
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
