package eventbus

import (
	"fmt"

	"github.com/colonyops/casetrack/internal/core/notify"
	"github.com/colonyops/casetrack/internal/core/task"
)

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeTaskCreated(func(p TaskCreatedPayload) {
		r.notifyf(notify.LevelInfo, "task %q created", p.Task.Title)
	})

	r.bus.SubscribeTaskDeleted(func(p TaskDeletedPayload) {
		r.notifyf(notify.LevelInfo, "task %s deleted", p.TaskID)
	})

	r.bus.SubscribeTaskUpdated(func(p TaskUpdatedPayload) {
		switch p.Task.Status {
		case task.StatusCompleted:
			r.notifyf(notify.LevelInfo, "task %q completed", p.Task.Title)
		case task.StatusBlocked:
			r.notifyf(notify.LevelWarning, "task %q is blocked", p.Task.Title)
		}
	})
}

func (r *NotificationRouter) notifyf(level notify.Level, format string, args ...any) {
	r.bus.PublishNotificationPublished(NotificationPublishedPayload{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}
