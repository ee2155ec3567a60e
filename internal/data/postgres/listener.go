package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	listenInitialBackoff = 250 * time.Millisecond
	listenMaxBackoff     = 10 * time.Second
)

// Listener follows a NOTIFY channel on a dedicated pooled connection.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	log     zerolog.Logger
}

// NewListener creates a listener for channel.
func NewListener(pool *pgxpool.Pool, channel string, log zerolog.Logger) *Listener {
	return &Listener{pool: pool, channel: channel, log: log}
}

// Run calls fn with the payload of every notification until ctx is cancelled.
// Lost connections are re-established with exponential backoff, and fn is
// called once after each reconnect since notifications may have been missed.
func (l *Listener) Run(ctx context.Context, fn func(payload string)) {
	backoff := listenInitialBackoff
	first := true
	for ctx.Err() == nil {
		err := l.listen(ctx, func() {
			backoff = listenInitialBackoff
			if !first {
				fn("")
			}
			first = false
		}, fn)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn().Err(err).Str("channel", l.channel).Dur("backoff", backoff).Msg("listen connection lost")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, listenMaxBackoff)
	}
}

func (l *Listener) listen(ctx context.Context, onReady func(), fn func(string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	onReady()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		fn(n.Payload)
	}
}
