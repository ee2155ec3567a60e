package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/hay-kot/criterio"
)

// ConfigCheck runs deep validation of the loaded configuration.
type ConfigCheck struct {
	cfg  *config.Config
	path string
}

// NewConfigCheck creates a new configuration check. path is the config file
// location; an empty path skips the file check.
func NewConfigCheck(cfg *config.Config, path string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, path: path}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.cfg.ValidateDeep(c.path); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			result.Items = append(result.Items, CheckItem{Label: "config", Status: StatusFail, Detail: err.Error()})
			return result
		}
		for _, fe := range fieldErrs {
			result.Items = append(result.Items, CheckItem{Label: fe.Field, Status: StatusFail, Detail: fe.Err.Error()})
		}
		return result
	}

	detail := "defaults"
	if c.path != "" {
		detail = c.path
	}
	result.Items = append(result.Items, CheckItem{Label: "valid", Status: StatusPass, Detail: detail})

	for _, w := range c.cfg.Warnings() {
		result.Items = append(result.Items, CheckItem{Label: w.Item, Status: StatusWarn, Detail: w.Message})
	}

	return result
}

// TaskLister is the part of the task service the store check needs.
type TaskLister interface {
	List(ctx context.Context) ([]task.Task, error)
}

// StoreCheck verifies the task store answers queries.
type StoreCheck struct {
	driver string
	tasks  TaskLister
}

// NewStoreCheck creates a new store check.
func NewStoreCheck(driver string, tasks TaskLister) *StoreCheck {
	return &StoreCheck{driver: driver, tasks: tasks}
}

func (c *StoreCheck) Name() string {
	return "Task Store"
}

func (c *StoreCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	list, err := c.tasks.List(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.driver, Status: StatusFail, Detail: err.Error()})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  c.driver,
		Status: StatusPass,
		Detail: fmt.Sprintf("%d task(s)", len(list)),
	})
	return result
}

// ObjectStore is the part of the attachment store the storage check needs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket string, r io.Reader, ext, contentType string) (ObjectInfo, error)
	Remove(ctx context.Context, bucket, name string) error
}

// ObjectInfo identifies an object written by a check upload.
type ObjectInfo struct {
	Name string
	URL  string
}

// StorageCheck writes and removes a sample object to confirm attachments can
// be stored.
type StorageCheck struct {
	root   string
	bucket string
	store  ObjectStore
}

// NewStorageCheck creates a new storage check.
func NewStorageCheck(root, bucket string, store ObjectStore) *StorageCheck {
	return &StorageCheck{root: root, bucket: bucket, store: store}
}

func (c *StorageCheck) Name() string {
	return "Attachment Storage"
}

func (c *StorageCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	obj, err := c.store.Upload(ctx, c.bucket, strings.NewReader("casetrack doctor check"), "txt", "text/plain")
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.root, Status: StatusFail, Detail: fmt.Sprintf("write failed: %v", err)})
		return result
	}

	if err := c.store.Remove(ctx, c.bucket, obj.Name); err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.root, Status: StatusWarn, Detail: fmt.Sprintf("sample %s not removed: %v", obj.Name, err)})
		return result
	}

	result.Items = append(result.Items, CheckItem{Label: c.root, Status: StatusPass, Detail: "writable"})
	return result
}

// RealtimeCheck reports which change feed is configured.
type RealtimeCheck struct {
	cfg config.RealtimeConfig
}

// NewRealtimeCheck creates a new realtime check.
func NewRealtimeCheck(cfg config.RealtimeConfig) *RealtimeCheck {
	return &RealtimeCheck{cfg: cfg}
}

func (c *RealtimeCheck) Name() string {
	return "Realtime"
}

func (c *RealtimeCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	item := CheckItem{Label: c.cfg.Driver, Status: StatusPass}
	switch c.cfg.Driver {
	case config.RealtimeBus:
		item.Detail = "in-process only"
	case config.RealtimePostgres:
		item.Detail = "LISTEN " + c.cfg.PostgresChannel
	case config.RealtimeKafka:
		item.Detail = fmt.Sprintf("topic %s on %s", c.cfg.Kafka.Topic, strings.Join(c.cfg.Kafka.Brokers, ","))
	default:
		item.Status = StatusFail
		item.Detail = "unknown driver"
	}

	result.Items = append(result.Items, item)
	return result
}
