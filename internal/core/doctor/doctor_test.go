package doctor

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCheck struct {
	name  string
	items []CheckItem
}

func (c staticCheck) Name() string { return c.name }

func (c staticCheck) Run(context.Context) Result {
	return Result{Name: c.name, Items: append([]CheckItem(nil), c.items...)}
}

func TestRunAllAndSummary(t *testing.T) {
	results := RunAll(context.Background(), []Check{
		staticCheck{name: "a", items: []CheckItem{{Label: "x", Status: StatusPass}, {Label: "y", Status: StatusWarn}}},
		staticCheck{name: "b", items: []CheckItem{{Label: "z", Status: StatusFail}}},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "pass", results[0].Items[0].StatusStr)
	assert.Equal(t, "warn", results[0].Items[1].StatusStr)
	assert.Equal(t, "fail", results[1].Items[0].StatusStr)

	passed, warned, failed := Summary(results)
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, warned)
	assert.Equal(t, 1, failed)
}

func TestConfigCheck(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DataDir = t.TempDir()

		result := NewConfigCheck(&cfg, "").Run(context.Background())
		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusPass, result.Items[0].Status)
		assert.Equal(t, "defaults", result.Items[0].Detail)
	})

	t.Run("field errors", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DataDir = t.TempDir()
		cfg.Timezone = "Mars/Olympus"

		result := NewConfigCheck(&cfg, "").Run(context.Background())
		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusFail, result.Items[0].Status)
		assert.Equal(t, "timezone", result.Items[0].Label)
	})

	t.Run("warnings", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DataDir = t.TempDir()
		cfg.Storage.MaxSizeBytes = config.DefaultMaxAttachmentSize * 2

		result := NewConfigCheck(&cfg, "").Run(context.Background())
		require.Len(t, result.Items, 2)
		assert.Equal(t, StatusWarn, result.Items[1].Status)
		assert.Equal(t, "storage.max_size_bytes", result.Items[1].Label)
	})
}

type fakeLister struct {
	tasks []task.Task
	err   error
}

func (f fakeLister) List(context.Context) ([]task.Task, error) { return f.tasks, f.err }

func TestStoreCheck(t *testing.T) {
	ok := NewStoreCheck("sqlite", fakeLister{tasks: make([]task.Task, 3)}).Run(context.Background())
	require.Len(t, ok.Items, 1)
	assert.Equal(t, StatusPass, ok.Items[0].Status)
	assert.Equal(t, "3 task(s)", ok.Items[0].Detail)

	broken := NewStoreCheck("postgres", fakeLister{err: errors.New("connection refused")}).Run(context.Background())
	require.Len(t, broken.Items, 1)
	assert.Equal(t, StatusFail, broken.Items[0].Status)
	assert.Contains(t, broken.Items[0].Detail, "connection refused")
}

type fakeObjects struct {
	uploadErr error
	removeErr error
	removed   []string
}

func (f *fakeObjects) Upload(_ context.Context, _ string, r io.Reader, _, _ string) (ObjectInfo, error) {
	if f.uploadErr != nil {
		return ObjectInfo{}, f.uploadErr
	}
	_, _ = io.Copy(io.Discard, r)
	return ObjectInfo{Name: "sample.txt"}, nil
}

func (f *fakeObjects) Remove(_ context.Context, _, name string) error {
	f.removed = append(f.removed, name)
	return f.removeErr
}

func TestStorageCheck(t *testing.T) {
	tests := []struct {
		name   string
		store  *fakeObjects
		status Status
	}{
		{name: "writable", store: &fakeObjects{}, status: StatusPass},
		{name: "upload fails", store: &fakeObjects{uploadErr: errors.New("read-only file system")}, status: StatusFail},
		{name: "remove fails", store: &fakeObjects{removeErr: errors.New("busy")}, status: StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewStorageCheck("/data/blobs", "doctor", tt.store).Run(context.Background())
			require.Len(t, result.Items, 1)
			assert.Equal(t, tt.status, result.Items[0].Status)
			if tt.store.uploadErr == nil {
				assert.Equal(t, []string{"sample.txt"}, tt.store.removed)
			}
		})
	}
}

func TestRealtimeCheck(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.RealtimeConfig
		status Status
		detail string
	}{
		{name: "bus", cfg: config.RealtimeConfig{Driver: config.RealtimeBus}, status: StatusPass, detail: "in-process only"},
		{name: "postgres", cfg: config.RealtimeConfig{Driver: config.RealtimePostgres, PostgresChannel: "tasks_changed"}, status: StatusPass, detail: "LISTEN tasks_changed"},
		{
			name:   "kafka",
			cfg:    config.RealtimeConfig{Driver: config.RealtimeKafka, Kafka: config.KafkaConfig{Brokers: []string{"k1:9092", "k2:9092"}, Topic: "casetrack.tasks"}},
			status: StatusPass,
			detail: "topic casetrack.tasks on k1:9092,k2:9092",
		},
		{name: "unknown", cfg: config.RealtimeConfig{Driver: "carrier-pigeon"}, status: StatusFail, detail: "unknown driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewRealtimeCheck(tt.cfg).Run(context.Background())
			require.Len(t, result.Items, 1)
			assert.Equal(t, tt.status, result.Items[0].Status)
			assert.Equal(t, tt.detail, result.Items[0].Detail)
		})
	}
}
