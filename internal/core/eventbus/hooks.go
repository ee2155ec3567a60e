package eventbus

import "sync"

// hooks holds the lifecycle hook state for the EventBus.
type hooks struct {
	mu          sync.RWMutex
	onPublish   []func(Event, any)
	onDrop      []func(Event, any)
	onSubscribe []func(Event)
	onPanic     []func(Event, any, any)
}

// OnPublish registers a hook that fires after an event is successfully enqueued.
func (bus *EventBus) OnPublish(fn func(Event, any)) {
	bus.hooks.mu.Lock()
	bus.hooks.onPublish = append(bus.hooks.onPublish, fn)
	bus.hooks.mu.Unlock()
}

// OnDrop registers a hook that fires when an event is dropped due to a full buffer.
func (bus *EventBus) OnDrop(fn func(Event, any)) {
	bus.hooks.mu.Lock()
	bus.hooks.onDrop = append(bus.hooks.onDrop, fn)
	bus.hooks.mu.Unlock()
}

// OnSubscribe registers a hook that fires after a subscriber is registered.
func (bus *EventBus) OnSubscribe(fn func(Event)) {
	bus.hooks.mu.Lock()
	bus.hooks.onSubscribe = append(bus.hooks.onSubscribe, fn)
	bus.hooks.mu.Unlock()
}

// OnPanic registers a hook that fires when a subscriber panics.
func (bus *EventBus) OnPanic(fn func(Event, any, any)) {
	bus.hooks.mu.Lock()
	bus.hooks.onPanic = append(bus.hooks.onPanic, fn)
	bus.hooks.mu.Unlock()
}

func (bus *EventBus) runOnPublish(event Event, payload any) {
	for _, fn := range bus.hooks.snapshotPublish() {
		fn(event, payload)
	}
}

func (bus *EventBus) runOnDrop(event Event, payload any) {
	for _, fn := range bus.hooks.snapshotDrop() {
		fn(event, payload)
	}
}

func (bus *EventBus) runOnSubscribe(event Event) {
	for _, fn := range bus.hooks.snapshotSubscribe() {
		fn(event)
	}
}

func (bus *EventBus) runOnPanic(event Event, payload any, recovered any) {
	for _, fn := range bus.hooks.snapshotPanic() {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(event, payload, recovered)
		}()
	}
}

func (h *hooks) snapshotPublish() []func(Event, any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]func(Event, any){}, h.onPublish...)
}

func (h *hooks) snapshotDrop() []func(Event, any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]func(Event, any){}, h.onDrop...)
}

func (h *hooks) snapshotSubscribe() []func(Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]func(Event){}, h.onSubscribe...)
}

func (h *hooks) snapshotPanic() []func(Event, any, any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]func(Event, any, any){}, h.onPanic...)
}
