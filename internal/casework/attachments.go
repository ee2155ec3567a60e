package casework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/colonyops/casetrack/internal/core/notify"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/data/blob"
	"github.com/rs/zerolog"
)

// DefaultBucket is the bucket attachments are uploaded to.
const DefaultBucket = "task-attachments"

// ErrAttachmentIndex is returned when detaching an index outside the list.
var ErrAttachmentIndex = errors.New("attachment index out of range")

// BlobStore is the object storage used for attachment content.
type BlobStore interface {
	Upload(ctx context.Context, bucket string, r io.Reader, ext, contentType string) (blob.Object, error)
	UploadFile(ctx context.Context, bucket, path string) (blob.Object, error)
	Remove(ctx context.Context, bucket, name string) error
	ParseURL(raw string) (bucket, name string, ok bool)
}

var _ BlobStore = (*blob.Store)(nil)

// AttachmentService uploads files to object storage and records them on
// tasks. Attachment lists are only ever appended to or shortened by index.
type AttachmentService struct {
	tasks  *TaskService
	blobs  BlobStore
	bus    *eventbus.EventBus
	bucket string
	log    zerolog.Logger
}

// NewAttachmentService creates a new AttachmentService uploading to bucket.
func NewAttachmentService(tasks *TaskService, blobs BlobStore, bus *eventbus.EventBus, bucket string, log zerolog.Logger) *AttachmentService {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &AttachmentService{
		tasks:  tasks,
		blobs:  blobs,
		bus:    bus,
		bucket: bucket,
		log:    log.With().Str("component", "attachment-service").Logger(),
	}
}

// AttachFile uploads the local file at path and appends it to the task.
func (s *AttachmentService) AttachFile(ctx context.Context, id, path string) (task.Task, error) {
	return s.attach(ctx, id, filepath.Base(path), func() (blob.Object, error) {
		return s.blobs.UploadFile(ctx, s.bucket, path)
	})
}

// Attach uploads r as a file called name and appends it to the task. An
// empty contentType is sniffed from the content.
func (s *AttachmentService) Attach(ctx context.Context, id, name string, r io.Reader, contentType string) (task.Task, error) {
	return s.attach(ctx, id, name, func() (blob.Object, error) {
		return s.blobs.Upload(ctx, s.bucket, r, filepath.Ext(name), contentType)
	})
}

func (s *AttachmentService) attach(ctx context.Context, id, name string, upload func() (blob.Object, error)) (task.Task, error) {
	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return task.Task{}, err
	}

	obj, err := upload()
	if err != nil {
		s.notify(notify.LevelError, "Failed to upload file")
		return task.Task{}, fmt.Errorf("upload %s: %w", name, err)
	}

	list := append(slices.Clone(current.Attachments), task.Attachment{
		Name: name,
		URL:  obj.URL,
		Type: obj.ContentType,
		Size: obj.Size,
	})

	updated, err := s.tasks.Update(ctx, id, task.AttachmentsPatch(list))
	if err != nil {
		s.removeObject(ctx, obj.URL)
		return task.Task{}, err
	}

	s.log.Info().Str("task_id", id).Str("object", obj.Name).Int64("size", obj.Size).Msg("attachment uploaded")
	s.notify(notify.LevelInfo, "File uploaded successfully")
	return updated, nil
}

// Detach removes the attachment at index from the task and deletes the stored
// object when it lives in this store.
func (s *AttachmentService) Detach(ctx context.Context, id string, index int) (task.Task, error) {
	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	if index < 0 || index >= len(current.Attachments) {
		return task.Task{}, fmt.Errorf("%w: %d of %d", ErrAttachmentIndex, index, len(current.Attachments))
	}

	removed := current.Attachments[index]
	list := slices.Delete(slices.Clone(current.Attachments), index, index+1)

	updated, err := s.tasks.Update(ctx, id, task.AttachmentsPatch(list))
	if err != nil {
		return task.Task{}, err
	}

	s.removeObject(ctx, removed.URL)
	return updated, nil
}

func (s *AttachmentService) removeObject(ctx context.Context, rawURL string) {
	bucket, name, ok := s.blobs.ParseURL(rawURL)
	if !ok {
		return
	}
	if err := s.blobs.Remove(ctx, bucket, name); err != nil {
		s.log.Warn().Err(err).Str("object", name).Msg("remove attachment object")
	}
}

func (s *AttachmentService) notify(level notify.Level, msg string) {
	s.bus.PublishNotificationPublished(eventbus.NotificationPublishedPayload{Level: level, Message: msg})
}
