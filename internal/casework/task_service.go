// Package casework holds the application services that sit between the
// outer surfaces (CLI, HTTP) and the task store.
package casework

import (
	"context"
	"errors"
	"time"

	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/rs/zerolog"
)

// TaskService wraps task.Store with translation between the persisted record
// shape and the domain model, defaults, validation and event publishing.
// Calls are never retried.
type TaskService struct {
	store task.Store
	bus   *eventbus.EventBus
	log   zerolog.Logger
	now   func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store task.Store, bus *eventbus.EventBus, log zerolog.Logger) *TaskService {
	return &TaskService{
		store: store,
		bus:   bus,
		log:   log.With().Str("component", "task-service").Logger(),
		now:   time.Now,
	}
}

// List returns every task ordered by due date, earliest first.
func (s *TaskService) List(ctx context.Context) ([]task.Task, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, storeErr("list", err)
	}

	tasks := make([]task.Task, 0, len(records))
	for _, rec := range records {
		t, err := rec.Task()
		if err != nil {
			return nil, storeErr("list", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Get returns the task with the given id. A missing task yields
// task.ErrNotFound; any other failure is a *task.StoreError.
func (s *TaskService) Get(ctx context.Context, id string) (task.Task, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, storeErr("get", err)
	}

	t, err := rec.Task()
	if err != nil {
		return task.Task{}, storeErr("get", err)
	}
	return t, nil
}

// Lookup is Get for callers that only care about presence. Any failure is
// reported as absence.
func (s *TaskService) Lookup(ctx context.Context, id string) (task.Task, bool) {
	t, err := s.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, task.ErrNotFound) {
			s.log.Debug().Err(err).Str("task_id", id).Msg("lookup failed")
		}
		return task.Task{}, false
	}
	return t, true
}

// Create validates in, applies defaults and stores the task.
func (s *TaskService) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	if err := in.Validate(); err != nil {
		return task.Task{}, err
	}

	rec, err := s.store.Insert(ctx, in.WithDefaults().Record())
	if err != nil {
		return task.Task{}, storeErr("create", err)
	}

	t, err := rec.Task()
	if err != nil {
		return task.Task{}, storeErr("create", err)
	}

	s.log.Info().Str("task_id", t.ID).Str("status", string(t.Status)).Msg("task created")
	s.bus.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: t})
	return t, nil
}

// Update applies patch to the task with the given id and refreshes its
// updated_at. Only the fields present in patch change. A missing task is a
// *task.StoreError wrapping task.ErrNotFound.
func (s *TaskService) Update(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	if err := patch.Validate(); err != nil {
		return task.Task{}, err
	}

	rec, err := s.store.Update(ctx, id, patch.Record(s.now()))
	if err != nil {
		return task.Task{}, storeErr("update", err)
	}

	t, err := rec.Task()
	if err != nil {
		return task.Task{}, storeErr("update", err)
	}

	s.log.Info().Str("task_id", t.ID).Msg("task updated")
	s.bus.PublishTaskUpdated(eventbus.TaskUpdatedPayload{Task: t})
	return t, nil
}

// SetStatus changes only the status of a task.
func (s *TaskService) SetStatus(ctx context.Context, id string, status task.Status) (task.Task, error) {
	return s.Update(ctx, id, task.StatusPatch(status))
}

// Delete removes the task with the given id. Deleting a missing task is not
// an error.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeErr("delete", err)
	}

	s.log.Info().Str("task_id", id).Msg("task deleted")
	s.bus.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: id})
	return nil
}

func storeErr(op string, err error) error {
	var se *task.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &task.StoreError{Op: op, Err: err}
}
