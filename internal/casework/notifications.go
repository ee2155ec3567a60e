package casework

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/colonyops/casetrack/internal/core/notify"
	"github.com/rs/zerolog"
)

const saveTimeout = 5 * time.Second

// NotificationService keeps a history of the notifications published on the
// bus.
type NotificationService struct {
	store notify.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store notify.Store, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store: store,
		log:   log.With().Str("component", "notification-service").Logger(),
		now:   time.Now,
	}
}

// Register records every published notification until the returned func is
// called.
func (s *NotificationService) Register(bus *eventbus.EventBus) func() {
	return bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		n := notify.Notification{Level: p.Level, Message: p.Message, CreatedAt: s.now()}
		if _, err := s.store.Save(ctx, n); err != nil {
			s.log.Warn().Err(err).Str("message", p.Message).Msg("save notification")
		}
	})
}

// List returns the notification history, newest first.
func (s *NotificationService) List(ctx context.Context) ([]notify.Notification, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// Clear deletes the notification history.
func (s *NotificationService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// Prune deletes notifications older than retention.
func (s *NotificationService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.store.Prune(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Debug().Int64("removed", n).Msg("pruned notifications")
	}
	return n, nil
}

// Sweep prunes notifications older than retention every interval. It blocks
// until the context is cancelled.
func (s *NotificationService) Sweep(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx, retention); err != nil {
				s.log.Debug().Err(err).Msg("notification sweep failed")
			}
		}
	}
}
