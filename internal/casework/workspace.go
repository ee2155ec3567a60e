package casework

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/colonyops/casetrack/internal/core/dashboard"
	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/colonyops/casetrack/internal/core/notify"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/realtime"
	"github.com/rs/zerolog"
)

// Failure messages published when a workspace operation fails.
const (
	MsgLoadFailed   = "Failed to load tasks"
	MsgCreateFailed = "Failed to create task"
	MsgUpdateFailed = "Failed to update task"
	MsgDeleteFailed = "Failed to delete task"
	MsgStatusFailed = "Failed to update status"
)

// ErrWorkspaceOpen is returned when Open is called on an open workspace.
var ErrWorkspaceOpen = errors.New("workspace already open")

// Workspace owns the in-memory task collection for one view session. It is
// loaded on Open, reloaded wholesale whenever the notifier signals a change,
// and patched locally right after its own mutations succeed.
//
// Reloads and local updates are last-write-wins: a reload started by a
// notification may overwrite an optimistic change that has not been stored
// yet.
type Workspace struct {
	tasks    *TaskService
	notifier realtime.Notifier
	bus      *eventbus.EventBus
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	items   []task.Task
	loaded  bool
	loadErr error
	cancel  context.CancelFunc
	unsub   func()
}

// NewWorkspace creates a closed workspace.
func NewWorkspace(tasks *TaskService, notifier realtime.Notifier, bus *eventbus.EventBus, log zerolog.Logger) *Workspace {
	return &Workspace{
		tasks:    tasks,
		notifier: notifier,
		bus:      bus,
		log:      log.With().Str("component", "workspace").Logger(),
		now:      time.Now,
	}
}

// Open loads the collection and subscribes to change notifications. A failed
// initial load is reported as a notification and leaves the workspace open
// with an empty collection; only a subscription failure is returned.
func (w *Workspace) Open(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrWorkspaceOpen
	}
	subCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	_ = w.Reload(subCtx)

	unsub, err := w.notifier.Subscribe(subCtx, func() {
		if err := w.Reload(subCtx); err != nil {
			w.log.Debug().Err(err).Msg("reload after change notification")
		}
	})
	if err != nil {
		cancel()
		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.unsub = unsub
	w.mu.Unlock()
	return nil
}

// Close ends the change subscription. The collection stays readable.
func (w *Workspace) Close() {
	w.mu.Lock()
	unsub, cancel := w.unsub, w.cancel
	w.unsub, w.cancel = nil, nil
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

// Reload replaces the collection with a fresh list from the store. On
// failure the previous collection is kept.
func (w *Workspace) Reload(ctx context.Context) error {
	list, err := w.tasks.List(ctx)
	if err != nil {
		w.mu.Lock()
		w.loadErr = err
		w.mu.Unlock()
		w.fail(MsgLoadFailed, err)
		return err
	}

	w.mu.Lock()
	w.items = list
	w.loaded = true
	w.loadErr = nil
	w.mu.Unlock()

	w.bus.PublishTasksReloaded(eventbus.TasksReloadedPayload{Count: len(list)})
	return nil
}

// Loaded reports whether at least one load has succeeded.
func (w *Workspace) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loaded
}

// LoadErr returns the error of the most recent reload, or nil when it
// succeeded.
func (w *Workspace) LoadErr() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loadErr
}

// Tasks returns a copy of the collection.
func (w *Workspace) Tasks() []task.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]task.Task, len(w.items))
	for i, t := range w.items {
		out[i] = t.Clone()
	}
	return out
}

// Filtered returns the tasks matching q.
func (w *Workspace) Filtered(q task.Query) []task.Task {
	return task.Filter(w.Tasks(), q)
}

// Dashboard derives the dashboard view from the current collection.
func (w *Workspace) Dashboard() dashboard.View {
	return dashboard.Build(w.Tasks(), w.now())
}

// Create stores a new task and appends it to the collection.
func (w *Workspace) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	t, err := w.tasks.Create(ctx, in)
	if err != nil {
		w.fail(MsgCreateFailed, err)
		return task.Task{}, err
	}

	w.mu.Lock()
	w.items = append(w.items, t)
	w.mu.Unlock()
	return t, nil
}

// Update applies patch and replaces the task in the collection.
func (w *Workspace) Update(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	t, err := w.tasks.Update(ctx, id, patch)
	if err != nil {
		w.fail(MsgUpdateFailed, err)
		return task.Task{}, err
	}

	w.replace(t)
	return t, nil
}

// Delete removes the task from the store and the collection.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	if err := w.tasks.Delete(ctx, id); err != nil {
		w.fail(MsgDeleteFailed, err)
		return err
	}

	w.mu.Lock()
	w.items = slices.DeleteFunc(w.items, func(t task.Task) bool { return t.ID == id })
	w.mu.Unlock()
	return nil
}

// SetStatus changes the status in the collection first and then in the
// store. If the store rejects the change the collection is reloaded. An
// invalid status is rejected before the collection is touched.
func (w *Workspace) SetStatus(ctx context.Context, id string, status task.Status) (task.Task, error) {
	if err := task.StatusPatch(status).Validate(); err != nil {
		w.fail(MsgStatusFailed, err)
		return task.Task{}, err
	}

	w.mu.Lock()
	if i := w.index(id); i >= 0 {
		w.items[i].Status = status
	}
	w.mu.Unlock()

	t, err := w.tasks.SetStatus(ctx, id, status)
	if err != nil {
		w.fail(MsgStatusFailed, err)
		_ = w.Reload(ctx)
		return task.Task{}, err
	}

	w.replace(t)
	return t, nil
}

func (w *Workspace) replace(t task.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.index(t.ID); i >= 0 {
		w.items[i] = t
	}
}

// index must be called with mu held.
func (w *Workspace) index(id string) int {
	return slices.IndexFunc(w.items, func(t task.Task) bool { return t.ID == id })
}

func (w *Workspace) fail(msg string, err error) {
	w.log.Error().Err(err).Msg(msg)
	w.bus.PublishNotificationPublished(eventbus.NotificationPublishedPayload{
		Level:   notify.LevelError,
		Message: msg,
	})
}
