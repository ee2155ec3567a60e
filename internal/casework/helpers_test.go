package casework

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/casetrack/internal/core/eventbus/testbus"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/data/db"
	"github.com/colonyops/casetrack/internal/data/stores"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newTestTaskService(t *testing.T) (*TaskService, *testbus.Bus) {
	t.Helper()

	tb := testbus.New(t)
	svc := NewTaskService(stores.NewTaskStore(newTestDB(t)), tb.EventBus, zerolog.Nop())
	return svc, tb
}

func strPtr(s string) *string { return &s }

func dueIn(d time.Duration) time.Time {
	return time.Now().Add(d).Truncate(time.Second)
}

func createInput(title string, due time.Time) task.CreateInput {
	return task.CreateInput{Title: title, DueDateTime: due}
}

// flakyStore wraps a real store and fails selected operations.
type flakyStore struct {
	task.Store

	mu        sync.Mutex
	listErr   error
	getErr    error
	insertErr error
	updateErr error
	deleteErr error
}

func (s *flakyStore) List(ctx context.Context) ([]task.Record, error) {
	s.mu.Lock()
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.List(ctx)
}

func (s *flakyStore) Get(ctx context.Context, id string) (task.Record, error) {
	s.mu.Lock()
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return task.Record{}, err
	}
	return s.Store.Get(ctx, id)
}

func (s *flakyStore) Insert(ctx context.Context, rec task.Record) (task.Record, error) {
	s.mu.Lock()
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return task.Record{}, err
	}
	return s.Store.Insert(ctx, rec)
}

func (s *flakyStore) Update(ctx context.Context, id string, patch task.RecordPatch) (task.Record, error) {
	s.mu.Lock()
	err := s.updateErr
	s.mu.Unlock()
	if err != nil {
		return task.Record{}, err
	}
	return s.Store.Update(ctx, id, patch)
}

func (s *flakyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

func (s *flakyStore) set(fn func(s *flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// manualNotifier signals only when trigger is called.
type manualNotifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

func newManualNotifier() *manualNotifier {
	return &manualNotifier{subs: make(map[int]func())}
}

func (n *manualNotifier) Subscribe(_ context.Context, fn func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	id := n.next
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}, nil
}

func (n *manualNotifier) trigger() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (n *manualNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
