// Package server exposes Argh! interpreters to remote drivers: a Connect
// runner service over HTTP and a language server for editors.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/arghonaut/store"
	"github.com/chazu/arghonaut/vm"
)

var log = commonlog.GetLogger("argh.server")

// Server hosts the runner service.
type Server struct {
	worker   *Worker
	sessions *SessionStore
	runner   *RunnerService
	mux      *http.ServeMux
	http     *http.Server

	stopSweeper func()
}

// Option configures a Server.
type Option func(*config)

type config struct {
	store         *store.Store
	sessionTTL    time.Duration
	sweepInterval time.Duration
	maxSteps      int
	directive     vm.DirectiveMode
}

// WithStore enables snapshots and run records.
func WithStore(st *store.Store) Option {
	return func(c *config) { c.store = st }
}

// WithSessionTTL sets how long an idle session lives and how often idle
// sessions are swept. A zero interval disables sweeping.
func WithSessionTTL(ttl, interval time.Duration) Option {
	return func(c *config) {
		c.sessionTTL = ttl
		c.sweepInterval = interval
	}
}

// WithMaxSteps caps the number of steps a single Run call may take.
func WithMaxSteps(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// WithDirective sets the directive mode of sessions that don't choose one.
func WithDirective(mode vm.DirectiveMode) Option {
	return func(c *config) { c.directive = mode }
}

// New creates a Server and registers the runner service procedures.
func New(opts ...Option) *Server {
	cfg := &config{
		sessionTTL:    30 * time.Minute,
		sweepInterval: time.Minute,
		maxSteps:      100000,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewWorker()
	sessions := NewSessionStore()
	s := &Server{
		worker:   worker,
		sessions: sessions,
		runner:   NewRunnerService(worker, sessions, cfg.store, cfg.maxSteps, cfg.directive),
		mux:      http.NewServeMux(),
	}
	s.register()

	if cfg.sweepInterval > 0 && cfg.sessionTTL > 0 {
		s.stopSweeper = sessions.StartSweeper(cfg.sweepInterval, cfg.sessionTTL)
	}
	return s
}

func (s *Server) register() {
	opts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}
	r := s.runner

	s.mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, r.CreateSession, opts...))
	s.mux.Handle(StepProcedure, connect.NewUnaryHandler(StepProcedure, r.Step, opts...))
	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, r.Run, opts...))
	s.mux.Handle(InputProcedure, connect.NewUnaryHandler(InputProcedure, r.Input, opts...))
	s.mux.Handle(ResetProcedure, connect.NewUnaryHandler(ResetProcedure, r.Reset, opts...))
	s.mux.Handle(ReloadProcedure, connect.NewUnaryHandler(ReloadProcedure, r.Reload, opts...))
	s.mux.Handle(EditProcedure, connect.NewUnaryHandler(EditProcedure, r.Edit, opts...))
	s.mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, r.GetState, opts...))
	s.mux.Handle(SaveSnapshotProcedure, connect.NewUnaryHandler(SaveSnapshotProcedure, r.SaveSnapshot, opts...))
	s.mux.Handle(LoadSnapshotProcedure, connect.NewUnaryHandler(LoadSnapshotProcedure, r.LoadSnapshot, opts...))
	s.mux.Handle(DestroySessionProcedure, connect.NewUnaryHandler(DestroySessionProcedure, r.DestroySession, opts...))
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the server's session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.mux}
	log.Noticef("argh runner listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, CreateSessionProcedure)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP listener, the sweeper and the worker.
func (s *Server) Stop() {
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			log.Warningf("shutting down: %s", err)
		}
	}
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
