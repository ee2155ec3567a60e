package eventbus

import (
	"context"
	"sync"
)

type envelope struct {
	event   Event
	payload any
}

type subscriber struct {
	id uint64
	fn func(any)
}

// EventBus dispatches published events to subscribers on a single goroutine
// started with Start. Publishing never blocks: when the buffer is full the
// event is dropped and OnDrop hooks fire.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu     sync.RWMutex
	nextID uint64
	subs   map[Event][]subscriber
}

// New creates an event bus with the given buffer size.
func New(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = 1
	}
	return &EventBus{
		ch:   make(chan envelope, buffer),
		subs: make(map[Event][]subscriber),
	}
}

// Start dispatches events until ctx is cancelled. Events still buffered at
// cancellation are dispatched before Start returns, including any that
// subscribers publish while the buffer drains.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			bus.drain()
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) drain() {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		default:
			return
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]subscriber, len(bus.subs[env.event]))
	copy(subs, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, s := range subs {
		bus.call(env, s.fn)
	}
}

func (bus *EventBus) call(env envelope, fn func(any)) {
	defer func() {
		if r := recover(); r != nil {
			bus.runOnPanic(env.event, env.payload, r)
		}
	}()
	fn(env.payload)
}

// subscribe registers fn for event and returns a func that removes it.
func (bus *EventBus) subscribe(event Event, fn func(any)) func() {
	bus.mu.Lock()
	bus.nextID++
	id := bus.nextID
	bus.subs[event] = append(bus.subs[event], subscriber{id: id, fn: fn})
	bus.mu.Unlock()

	bus.runOnSubscribe(event)

	var once sync.Once
	return func() {
		once.Do(func() {
			bus.mu.Lock()
			defer bus.mu.Unlock()
			list := bus.subs[event]
			for i, s := range list {
				if s.id == id {
					bus.subs[event] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// send enqueues an event and fires hooks. A nil bus discards the event.
func (bus *EventBus) send(event Event, payload any) {
	if bus == nil {
		return
	}
	select {
	case bus.ch <- envelope{event: event, payload: payload}:
		bus.runOnPublish(event, payload)
	default:
		bus.runOnDrop(event, payload)
	}
}

// PublishNotificationPublished publishes a NotificationPublishedPayload.
func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

// SubscribeNotificationPublished registers fn for notification.published events.
func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) func() {
	return bus.subscribe(EventNotificationPublished, func(p any) { fn(p.(NotificationPublishedPayload)) })
}

// PublishTaskCreated publishes a TaskCreatedPayload.
func (bus *EventBus) PublishTaskCreated(p TaskCreatedPayload) {
	bus.send(EventTaskCreated, p)
}

// SubscribeTaskCreated registers fn for task.created events.
func (bus *EventBus) SubscribeTaskCreated(fn func(TaskCreatedPayload)) func() {
	return bus.subscribe(EventTaskCreated, func(p any) { fn(p.(TaskCreatedPayload)) })
}

// PublishTaskUpdated publishes a TaskUpdatedPayload.
func (bus *EventBus) PublishTaskUpdated(p TaskUpdatedPayload) {
	bus.send(EventTaskUpdated, p)
}

// SubscribeTaskUpdated registers fn for task.updated events.
func (bus *EventBus) SubscribeTaskUpdated(fn func(TaskUpdatedPayload)) func() {
	return bus.subscribe(EventTaskUpdated, func(p any) { fn(p.(TaskUpdatedPayload)) })
}

// PublishTaskDeleted publishes a TaskDeletedPayload.
func (bus *EventBus) PublishTaskDeleted(p TaskDeletedPayload) {
	bus.send(EventTaskDeleted, p)
}

// SubscribeTaskDeleted registers fn for task.deleted events.
func (bus *EventBus) SubscribeTaskDeleted(fn func(TaskDeletedPayload)) func() {
	return bus.subscribe(EventTaskDeleted, func(p any) { fn(p.(TaskDeletedPayload)) })
}

// PublishTasksReloaded publishes a TasksReloadedPayload.
func (bus *EventBus) PublishTasksReloaded(p TasksReloadedPayload) {
	bus.send(EventTasksReloaded, p)
}

// SubscribeTasksReloaded registers fn for tasks.reloaded events.
func (bus *EventBus) SubscribeTasksReloaded(fn func(TasksReloadedPayload)) func() {
	return bus.subscribe(EventTasksReloaded, func(p any) { fn(p.(TasksReloadedPayload)) })
}

// SubscribeTaskChanges registers fn for every task mutation event. The
// returned func removes all three subscriptions.
func (bus *EventBus) SubscribeTaskChanges(fn func()) func() {
	unsubs := []func(){
		bus.SubscribeTaskCreated(func(TaskCreatedPayload) { fn() }),
		bus.SubscribeTaskUpdated(func(TaskUpdatedPayload) { fn() }),
		bus.SubscribeTaskDeleted(func(TaskDeletedPayload) { fn() }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
