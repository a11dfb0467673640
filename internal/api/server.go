// Package api implements dupefind's read-only HTTP status/results surface:
// a chi router exposing a status handler and a groups handler, trimmed to
// three endpoints. It never triggers scans, deletions, or mutations —
// deletion is a separate, unimplemented collaborator, and this API only
// ever presents what the engine already computed.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dupefind/dupefind/internal/api/handlers"
	"github.com/dupefind/dupefind/internal/log"
	"github.com/dupefind/dupefind/internal/scheduler"
)

// Server holds the HTTP server and its routed handlers.
type Server struct {
	srv *http.Server
}

// New wires /api/status, /api/runs, and /api/runs/{id}/groups and returns a
// Server ready to Run.
func New(addr string, db *sql.DB, run *handlers.RunState, sched *scheduler.Scheduler, version string, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{DB: db, Run: run, Sched: sched, Version: version, Logger: logger}
	runsH := &handlers.RunsHandler{DB: db, Logger: logger}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)
		r.Get("/runs", runsH.List)
		r.Get("/runs/{id}/groups", runsH.Groups)
	})

	return &Server{srv: &http.Server{Addr: addr, Handler: r}}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
