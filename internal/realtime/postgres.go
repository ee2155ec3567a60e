package realtime

import (
	"context"

	"github.com/rs/zerolog"
)

// Feed is a source of change notifications such as a Postgres LISTEN
// channel. Run blocks until ctx is cancelled.
type Feed interface {
	Run(ctx context.Context, fn func(payload string))
}

// PostgresNotifier fans out notifications from a LISTEN/NOTIFY feed. Run must
// be started for subscribers to receive anything.
type PostgresNotifier struct {
	feed Feed
	log  zerolog.Logger
	subs fanout
}

// NewPostgresNotifier creates a notifier over feed.
func NewPostgresNotifier(feed Feed, log zerolog.Logger) *PostgresNotifier {
	return &PostgresNotifier{feed: feed, log: log}
}

func (n *PostgresNotifier) Subscribe(ctx context.Context, fn func()) (func(), error) {
	return bindContext(ctx, n.subs.add(fn)), nil
}

// Run follows the feed until ctx is cancelled.
func (n *PostgresNotifier) Run(ctx context.Context) {
	n.log.Debug().Msg("following postgres change feed")
	n.feed.Run(ctx, func(payload string) {
		n.log.Debug().Str("task_id", payload).Int("subscribers", n.subs.len()).Msg("task change notification")
		n.subs.notify()
	})
}
