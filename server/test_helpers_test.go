package server

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/chazu/arghonaut/store"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// Programs used across tests.
var (
	helloSource = "jH\nlPpq\n  i\n"
	echoSource  = "j\nlgj\n  j\nqPh\n"
)

// testEnv bundles a running server with a client pointed at it.
type testEnv struct {
	Server *Server
	HTTP   *httptest.Server
	Client *RunnerClient
	Store  *store.Store
}

// newTestEnv starts a server behind httptest. With withStore set, a
// temporary SQLite store is attached.
func newTestEnv(t *testing.T, withStore bool, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{}
	if withStore {
		st, err := store.Open(filepath.Join(t.TempDir(), "argh.db"))
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		env.Store = st
		opts = append(opts, WithStore(st))
	}
	env.Server = New(opts...)
	env.HTTP = httptest.NewServer(env.Server.Handler())
	env.Client = NewRunnerClient(env.HTTP.Client(), env.HTTP.URL)

	t.Cleanup(func() {
		env.HTTP.Close()
		env.Server.Stop()
		if env.Store != nil {
			env.Store.Close()
		}
	})
	return env
}

// createSession starts a session for source or fails the test.
func (e *testEnv) createSession(t *testing.T, source string) *StateResponse {
	t.Helper()
	state, err := e.Client.CreateSession(bg(), &CreateSessionRequest{Name: t.Name(), Source: source})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return state
}

func bg() context.Context {
	return context.Background()
}
