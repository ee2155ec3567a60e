// Package realtime delivers "tasks changed" signals from a backend change
// feed to in-process subscribers. Signals carry no payload; subscribers are
// expected to refetch.
package realtime

import (
	"context"
	"sync"

	"github.com/colonyops/casetrack/internal/core/eventbus"
)

// Notifier signals subscribers whenever the task collection may have changed.
type Notifier interface {
	// Subscribe registers fn and returns a func that removes it. The
	// subscription also ends when ctx is cancelled.
	Subscribe(ctx context.Context, fn func()) (unsubscribe func(), err error)
}

var (
	_ Notifier = (*BusNotifier)(nil)
	_ Notifier = (*PostgresNotifier)(nil)
	_ Notifier = (*KafkaNotifier)(nil)
)

// BusNotifier signals on the in-process task events. It only observes
// changes made by this process.
type BusNotifier struct {
	bus *eventbus.EventBus
}

// NewBusNotifier creates a notifier backed by bus.
func NewBusNotifier(bus *eventbus.EventBus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Subscribe(ctx context.Context, fn func()) (func(), error) {
	return bindContext(ctx, n.bus.SubscribeTaskChanges(fn)), nil
}

// fanout is the subscriber list shared by the feed-backed notifiers.
type fanout struct {
	mu   sync.RWMutex
	next int
	subs map[int]func()
}

func (f *fanout) add(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]func())
	}
	f.next++
	id := f.next
	f.subs[id] = fn

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fanout) notify() {
	f.mu.RLock()
	fns := make([]func(), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (f *fanout) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// bindContext makes unsubscribe run when ctx is done. The returned func is
// safe to call more than once.
func bindContext(ctx context.Context, unsubscribe func()) func() {
	var once sync.Once
	cancel := func() { once.Do(unsubscribe) }
	stop := context.AfterFunc(ctx, cancel)
	return func() {
		stop()
		cancel()
	}
}
