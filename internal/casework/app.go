package casework

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/data/blob"
	"github.com/colonyops/casetrack/internal/data/db"
	"github.com/colonyops/casetrack/internal/data/postgres"
	"github.com/colonyops/casetrack/internal/data/stores"
	"github.com/colonyops/casetrack/internal/realtime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	busBuffer     = 256
	sweepInterval = 5 * time.Minute
)

// App is the central entry point for all casetrack operations.
// Commands and the HTTP API consume App instead of cherry-picking raw
// dependencies.
type App struct {
	Tasks         *TaskService
	Attachments   *AttachmentService
	Notifications *NotificationService
	Doctor        *DoctorService

	Notifier realtime.Notifier
	Blobs    *blob.Store
	Bus      *eventbus.EventBus
	Config   *config.Config
	DB       *db.DB

	log     zerolog.Logger
	runners []func(context.Context)
	closers []func() error

	stop    context.CancelFunc
	busDone chan struct{}
}

// Open connects the stores, change feed and object storage selected by cfg.
// Background work does not begin until Start is called.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		Bus:    eventbus.New(busBuffer),
		Config: cfg,
		log:    log,
	}

	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	eventbus.RegisterDebugLogger(app.Bus, log)
	eventbus.NewNotificationRouter(app.Bus).Register()

	database, err := openSQLite(cfg, log)
	if err != nil {
		return nil, err
	}
	app.DB = database
	app.closers = append(app.closers, database.Close)

	var pool *pgxpool.Pool
	if cfg.Store.Driver == config.StorePostgres {
		pool, err = postgres.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
	}

	var store task.Store
	switch cfg.Store.Driver {
	case config.StorePostgres:
		if err := postgres.Migrate(ctx, pool, cfg.Realtime.PostgresChannel); err != nil {
			return nil, err
		}
		store = postgres.NewTaskStore(pool)
	default:
		store = stores.NewTaskStore(database)
	}

	notifier, err := app.openNotifier(pool)
	if err != nil {
		return nil, err
	}
	app.Notifier = notifier

	blobs, err := blob.NewOS(cfg.StorageRoot(), cfg.Storage.PublicBaseURL, cfg.Storage.MaxSizeBytes)
	if err != nil {
		return nil, err
	}
	app.Blobs = blobs

	app.Tasks = NewTaskService(store, app.Bus, log)
	app.Attachments = NewAttachmentService(app.Tasks, blobs, app.Bus, cfg.Storage.Bucket, log)
	app.Notifications = NewNotificationService(stores.NewNotifyStore(database), log)
	app.Doctor = NewDoctorService(app.Tasks, blobs, cfg)

	ok = true
	return app, nil
}

func openSQLite(cfg *config.Config, log zerolog.Logger) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Store.SQLite.MaxOpenConns,
		MaxIdleConns: cfg.Store.SQLite.MaxIdleConns,
		BusyTimeout:  cfg.Store.SQLite.BusyTimeout,
	}

	database, err := db.Open(cfg.DatabaseDir(), opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log.Warn().Err(err).Msg("database corrupt, moving it aside")
	if err := stores.RecoverFromCorruption(cfg.DatabaseDir()); err != nil {
		return nil, fmt.Errorf("recover corrupt database: %w", err)
	}
	database, err = db.Open(cfg.DatabaseDir(), opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func (a *App) openNotifier(pool *pgxpool.Pool) (realtime.Notifier, error) {
	cfg := a.Config.Realtime
	switch cfg.Driver {
	case config.RealtimePostgres:
		listener := postgres.NewListener(pool, cfg.PostgresChannel, a.log.With().Str("component", "pg-listener").Logger())
		n := realtime.NewPostgresNotifier(listener, a.log)
		a.runners = append(a.runners, n.Run)
		return n, nil

	case config.RealtimeKafka:
		client, err := realtime.NewKafkaClient(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })

		kafkaLog := a.log.With().Str("component", "kafka").Logger()
		unregister := realtime.NewKafkaPublisher(client, cfg.Kafka.Topic, kafkaLog).Register(a.Bus)
		a.closers = append(a.closers, func() error { unregister(); return nil })

		n := realtime.NewKafkaNotifier(client, kafkaLog)
		a.runners = append(a.runners, n.Run)
		return n, nil

	default:
		return realtime.NewBusNotifier(a.Bus), nil
	}
}

// Start runs the event bus and change feed in the background until ctx is
// cancelled or Stop is called.
func (a *App) Start(ctx context.Context) {
	ctx, a.stop = context.WithCancel(ctx)
	a.busDone = make(chan struct{})

	a.Notifications.Register(a.Bus)
	go func() {
		defer close(a.busDone)
		a.Bus.Start(ctx)
	}()
	if retention := a.Config.Notifications.Retention; retention > 0 {
		go a.Notifications.Sweep(ctx, sweepInterval, retention)
	}
	for _, run := range a.runners {
		go run(ctx)
	}
}

// Stop cancels background work and waits until the event bus has dispatched
// every queued event, so history writes and outgoing change records made by
// the last command are not lost. It gives up when ctx expires.
func (a *App) Stop(ctx context.Context) error {
	if a.stop == nil {
		return nil
	}
	a.stop()

	select {
	case <-a.busDone:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain event bus: %w", ctx.Err())
	}
}

// NewWorkspace creates a workspace whose "today" follows the configured
// timezone.
func (a *App) NewWorkspace() *Workspace {
	w := NewWorkspace(a.Tasks, a.Notifier, a.Bus, a.log)
	loc := a.Config.Location()
	w.now = func() time.Time { return time.Now().In(loc) }
	return w
}

// Close releases every resource opened by Open, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
