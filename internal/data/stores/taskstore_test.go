package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTaskStore(t *testing.T) *TaskStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewTaskStore(database)
}

func strPtr(s string) *string { return &s }

func newRecord(title string, due time.Time) task.Record {
	return task.CreateInput{Title: title, DueDateTime: due}.Record()
}

func TestTaskStore(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2025, 3, 7, 17, 0, 0, 0, time.UTC)

	t.Run("insert assigns id and timestamps", func(t *testing.T) {
		store := openTaskStore(t)

		rec := newRecord("Home visit", due)
		rec.Description = strPtr("Check on family")
		rec.CaseID = strPtr("CASE-9")
		rec.Attachments = []task.Attachment{{Name: "a.pdf", URL: "http://x/a.pdf", Type: "application/pdf", Size: 10}}

		got, err := store.Insert(ctx, rec)
		require.NoError(t, err)

		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Home visit", got.Title)
		assert.Equal(t, "NEW", got.Status)
		assert.Equal(t, "MEDIUM", got.Priority)
		assert.True(t, got.DueDateTime.Equal(due))
		assert.False(t, got.CreatedAt.IsZero())
		assert.True(t, got.UpdatedAt.Equal(got.CreatedAt))
		require.NotNil(t, got.Description)
		assert.Equal(t, "Check on family", *got.Description)
		require.NotNil(t, got.CaseID)
		assert.Equal(t, "CASE-9", *got.CaseID)
		assert.Equal(t, rec.Attachments, got.Attachments)
	})

	t.Run("insert keeps optional fields absent", func(t *testing.T) {
		store := openTaskStore(t)

		got, err := store.Insert(ctx, newRecord("No extras", due))
		require.NoError(t, err)
		assert.Nil(t, got.Description)
		assert.Nil(t, got.CaseID)
		assert.NotNil(t, got.Attachments)
		assert.Empty(t, got.Attachments)
	})

	t.Run("insert rejects unknown status", func(t *testing.T) {
		store := openTaskStore(t)

		rec := newRecord("Bad status", due)
		rec.Status = "DONE"
		_, err := store.Insert(ctx, rec)
		require.Error(t, err)
	})

	t.Run("list orders by due date ascending", func(t *testing.T) {
		store := openTaskStore(t)

		for i, offset := range []time.Duration{48 * time.Hour, -24 * time.Hour, 0} {
			_, err := store.Insert(ctx, newRecord("Task "+string(rune('A'+i)), due.Add(offset)))
			require.NoError(t, err)
		}

		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Task B", list[0].Title)
		assert.Equal(t, "Task C", list[1].Title)
		assert.Equal(t, "Task A", list[2].Title)
	})

	t.Run("list empty returns empty slice", func(t *testing.T) {
		store := openTaskStore(t)

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("get", func(t *testing.T) {
		store := openTaskStore(t)

		created, err := store.Insert(ctx, newRecord("Fetch me", due))
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Fetch me", got.Title)
	})

	t.Run("get not found", func(t *testing.T) {
		store := openTaskStore(t)

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("status-only update leaves other columns", func(t *testing.T) {
		store := openTaskStore(t)

		rec := newRecord("Court filing", due)
		rec.CaseID = strPtr("CASE-1")
		created, err := store.Insert(ctx, rec)
		require.NoError(t, err)

		later := created.UpdatedAt.Add(time.Minute)
		updated, err := store.Update(ctx, created.ID, task.StatusPatch(task.StatusBlocked).Record(later))
		require.NoError(t, err)

		assert.Equal(t, "BLOCKED", updated.Status)
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.Priority, updated.Priority)
		assert.Equal(t, created.CaseID, updated.CaseID)
		assert.True(t, updated.DueDateTime.Equal(created.DueDateTime))
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.Equal(later))
	})

	t.Run("update stamp never goes backwards", func(t *testing.T) {
		store := openTaskStore(t)

		created, err := store.Insert(ctx, newRecord("Skewed clock", due))
		require.NoError(t, err)

		for _, stamp := range []time.Time{created.CreatedAt.Add(-time.Hour), created.CreatedAt} {
			prev, err := store.Get(ctx, created.ID)
			require.NoError(t, err)

			updated, err := store.Update(ctx, created.ID, task.StatusPatch(task.StatusInProgress).Record(stamp))
			require.NoError(t, err)
			assert.True(t, updated.UpdatedAt.After(prev.UpdatedAt))
			assert.True(t, updated.UpdatedAt.After(created.CreatedAt))
		}
	})

	t.Run("update every column", func(t *testing.T) {
		store := openTaskStore(t)

		created, err := store.Insert(ctx, newRecord("Old title", due))
		require.NoError(t, err)

		newDue := due.Add(72 * time.Hour)
		status := task.StatusInProgress
		priority := task.PriorityHigh
		attachments := []task.Attachment{{Name: "n.txt", URL: "http://x/n.txt", Type: "text/plain", Size: 3}}
		patch := task.Patch{
			Title:       strPtr("New title"),
			Description: strPtr("Now described"),
			Status:      &status,
			Priority:    &priority,
			DueDateTime: &newDue,
			CaseID:      strPtr("CASE-2"),
			Attachments: &attachments,
		}

		updated, err := store.Update(ctx, created.ID, patch.Record(time.Now()))
		require.NoError(t, err)

		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, "Now described", *updated.Description)
		assert.Equal(t, "IN_PROGRESS", updated.Status)
		assert.Equal(t, "HIGH", updated.Priority)
		assert.True(t, updated.DueDateTime.Equal(newDue))
		assert.Equal(t, "CASE-2", *updated.CaseID)
		assert.Equal(t, attachments, updated.Attachments)
	})

	t.Run("clearing optional fields stores null", func(t *testing.T) {
		store := openTaskStore(t)

		rec := newRecord("Described", due)
		rec.Description = strPtr("to be removed")
		rec.CaseID = strPtr("CASE-3")
		created, err := store.Insert(ctx, rec)
		require.NoError(t, err)

		patch := task.Patch{ClearDescription: true, ClearCaseID: true}
		updated, err := store.Update(ctx, created.ID, patch.Record(time.Now()))
		require.NoError(t, err)
		assert.Nil(t, updated.Description)
		assert.Nil(t, updated.CaseID)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Description)
		assert.Nil(t, got.CaseID)
		assert.Equal(t, "Described", got.Title)
	})

	t.Run("clearing attachments stores empty list", func(t *testing.T) {
		store := openTaskStore(t)

		rec := newRecord("With files", due)
		rec.Attachments = []task.Attachment{{Name: "a", URL: "http://x/a"}}
		created, err := store.Insert(ctx, rec)
		require.NoError(t, err)

		updated, err := store.Update(ctx, created.ID, task.AttachmentsPatch(nil).Record(time.Now()))
		require.NoError(t, err)
		assert.NotNil(t, updated.Attachments)
		assert.Empty(t, updated.Attachments)
	})

	t.Run("update not found", func(t *testing.T) {
		store := openTaskStore(t)

		_, err := store.Update(ctx, "missing", task.StatusPatch(task.StatusCompleted).Record(time.Now()))
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := openTaskStore(t)

		created, err := store.Insert(ctx, newRecord("Short lived", due))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, created.ID))

		_, err = store.Get(ctx, created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		store := openTaskStore(t)
		assert.NoError(t, store.Delete(ctx, "missing"))
	})

	t.Run("null attachments column normalizes to empty", func(t *testing.T) {
		database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
		require.NoError(t, err)
		defer func() { _ = database.Close() }()

		_, err = database.Conn().ExecContext(ctx, `
			INSERT INTO tasks (id, title, due_date_time, created_at, updated_at, attachments)
			VALUES ('legacy', 'Legacy row', 1, 1, 1, '')`)
		require.NoError(t, err)

		got, err := NewTaskStore(database).Get(ctx, "legacy")
		require.NoError(t, err)
		assert.NotNil(t, got.Attachments)
		assert.Empty(t, got.Attachments)

		tk, err := got.Task()
		require.NoError(t, err)
		assert.Equal(t, task.StatusNew, tk.Status)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := openTaskStore(t)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.List(cctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestRecoverFromCorruption(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)
	require.NoError(t, os.WriteFile(dbPath, []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("wal"), 0o644))

	require.NoError(t, RecoverFromCorruption(dir))

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dbPath + "-wal")
	assert.True(t, os.IsNotExist(err))

	matches, err := filepath.Glob(filepath.Join(dir, db.FileName+".corrupt.*"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	_ = database.Close()
}

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(errors.New("boom")))
	assert.False(t, IsCorruptionError(nil))
	assert.True(t, IsCorruptionError(errors.New("file is not a database")))
}
