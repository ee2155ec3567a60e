// Package api exposes the task services over HTTP, pushes change signals to
// websocket clients and serves stored attachments.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/core/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to the casework services.
type Server struct {
	app    *casework.App
	hub    *Hub
	log    zerolog.Logger
	now    func() time.Time
	router chi.Router
}

// New creates a server for app.
func New(app *casework.App, log zerolog.Logger) *Server {
	log = log.With().Str("component", "api").Logger().Hook(logging.ContextHook{})
	loc := app.Config.Location()

	s := &Server{
		app: app,
		hub: NewHub(app.Notifier, log),
		log: log,
		now: func() time.Time { return time.Now().In(loc) },
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.listTasks)
		r.Post("/", s.createTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(taskContext)
			r.Get("/", s.getTask)
			r.Patch("/", s.updateTask)
			r.Delete("/", s.deleteTask)
			r.Post("/attachments", s.attach)
			r.Delete("/attachments/{index}", s.detach)
		})
	})
	r.Get("/dashboard", s.dashboard)
	r.Get("/board", s.board)
	r.Get("/ws", s.hub.ServeHTTP)

	files := http.FileServer(afero.NewHttpFs(s.app.Blobs.FS()))
	r.Handle("/files/*", http.StripPrefix("/files", files))

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.Debug().Ctx(ctx).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// taskContext tags the request context with the task in the URL.
func taskContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTaskID(r.Context(), chi.URLParam(r, "id"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	if err := s.hub.Start(hubCtx); err != nil {
		return fmt.Errorf("start websocket hub: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
