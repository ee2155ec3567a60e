// Package postgres provides the PostgreSQL task store and the LISTEN/NOTIFY
// change feed used when several processes share one database.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Open connects a pool to dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the tasks table and installs a trigger that publishes the
// changed task ID on channel after every insert, update or delete.
func Migrate(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := pool.Exec(ctx, triggerSQL(channel)); err != nil {
		return fmt.Errorf("install notify trigger: %w", err)
	}
	return nil
}

func triggerSQL(channel string) string {
	return fmt.Sprintf(`
    DROP TRIGGER IF EXISTS casetrack_tasks_notify ON tasks;
    CREATE TRIGGER casetrack_tasks_notify
        AFTER INSERT OR UPDATE OR DELETE ON tasks
        FOR EACH ROW EXECUTE FUNCTION casetrack_notify_task_change(%s)`, quoteLiteral(channel))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
