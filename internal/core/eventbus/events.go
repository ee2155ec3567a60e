// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within casetrack.
package eventbus

import (
	"github.com/colonyops/casetrack/internal/core/notify"
	"github.com/colonyops/casetrack/internal/core/task"
)

// Event names a published event type.
type Event string

// Keep list sorted A-Z
const (
	EventNotificationPublished Event = "notification.published"
	EventTaskCreated           Event = "task.created"
	EventTaskDeleted           Event = "task.deleted"
	EventTaskUpdated           Event = "task.updated"
	EventTasksReloaded         Event = "tasks.reloaded"
)

// Events lists every event type with its payload struct.
var Events = map[Event]any{
	EventNotificationPublished: NotificationPublishedPayload{},
	EventTaskCreated:           TaskCreatedPayload{},
	EventTaskDeleted:           TaskDeletedPayload{},
	EventTaskUpdated:           TaskUpdatedPayload{},
	EventTasksReloaded:         TasksReloadedPayload{},
}

// NotificationPublishedPayload is emitted when a user-facing notification
// should be shown.
type NotificationPublishedPayload struct {
	Level   notify.Level
	Message string
}

// TaskCreatedPayload is emitted after a task is stored.
type TaskCreatedPayload struct {
	Task task.Task
}

// TaskUpdatedPayload is emitted after a task is patched.
type TaskUpdatedPayload struct {
	Task task.Task
}

// TaskDeletedPayload is emitted after a task is removed.
type TaskDeletedPayload struct {
	TaskID string
}

// TasksReloadedPayload is emitted when a workspace replaces its collection
// with a fresh fetch.
type TasksReloadedPayload struct {
	Count int
}
