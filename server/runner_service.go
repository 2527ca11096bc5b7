package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/arghonaut/snapshot"
	"github.com/chazu/arghonaut/store"
	"github.com/chazu/arghonaut/vm"
)

// RunnerService drives interpreter sessions over Connect.
type RunnerService struct {
	worker    *Worker
	sessions  *SessionStore
	store     *store.Store // nil disables snapshots and run records
	maxSteps  int
	directive vm.DirectiveMode
}

// NewRunnerService creates a RunnerService. maxSteps caps a single Run call
// (0 means no cap).
func NewRunnerService(worker *Worker, sessions *SessionStore, st *store.Store, maxSteps int, directive vm.DirectiveMode) *RunnerService {
	return &RunnerService{
		worker:    worker,
		sessions:  sessions,
		store:     st,
		maxSteps:  maxSteps,
		directive: directive,
	}
}

// session resolves a session ID into a live session.
func (s *RunnerService) session(id string) (*Session, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	return session, nil
}

// apply runs fn against the session on the worker goroutine and returns
// the resulting state. fn returns the number of steps it took, or an error
// that is passed through unchanged.
func (s *RunnerService) apply(id string, fn func(*Session) (int, error)) (*StateResponse, error) {
	session, err := s.session(id)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		state *StateResponse
		err   error
	}
	result, err := s.worker.Do(func() interface{} {
		taken, err := fn(session)
		if err != nil {
			return outcome{err: err}
		}
		return outcome{state: stateOf(session, taken)}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := result.(outcome)
	return out.state, out.err
}

// CreateSession starts a new session for the given source.
func (s *RunnerService) CreateSession(
	ctx context.Context,
	req *connect.Request[CreateSessionRequest],
) (*connect.Response[StateResponse], error) {
	mode := s.directive
	if req.Msg.Directive != "" {
		var err error
		mode, err = vm.ParseDirectiveMode(req.Msg.Directive)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
	}

	lines := vm.ParseSource(req.Msg.Source)
	session := s.sessions.Create(req.Msg.Name, lines, vm.WithDirective(mode))

	state, err := s.apply(session.ID, func(*Session) (int, error) { return 0, nil })
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// Step executes up to Count instructions (at least one), stopping early
// when the interpreter blocks.
func (s *RunnerService) Step(
	ctx context.Context,
	req *connect.Request[StepRequest],
) (*connect.Response[StateResponse], error) {
	count := req.Msg.Count
	if count <= 0 {
		count = 1
	}
	state, err := s.apply(req.Msg.SessionID, func(session *Session) (int, error) {
		taken := 0
		for taken < count && !session.Interp.Blocked() {
			session.Interp.Step(false)
			taken++
		}
		return taken, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// Run steps until the interpreter blocks or the step limit is reached.
// Finished and failed runs are recorded when a store is configured.
func (s *RunnerService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[StateResponse], error) {
	limit := s.maxSteps
	if req.Msg.MaxSteps > 0 && (limit == 0 || req.Msg.MaxSteps < limit) {
		limit = req.Msg.MaxSteps
	}

	var source []string
	state, err := s.apply(req.Msg.SessionID, func(session *Session) (int, error) {
		source = session.Source
		return session.Interp.Run(limit), nil
	})
	if err != nil {
		return nil, err
	}

	if s.store != nil && (state.Status == vm.StatusDone.String() || state.Status == vm.StatusErrored.String()) {
		_, err := s.store.RecordRun(ctx, store.Run{
			ProgramHash: snapshot.ProgramHash(source),
			Status:      state.Status,
			Stdout:      state.Stdout,
			Error:       state.Error,
			Steps:       state.Steps,
		})
		if err != nil {
			log.Warningf("recording run for session %s: %s", state.SessionID, err)
		}
	}
	return connect.NewResponse(state), nil
}

// Input queues text (one code per rune) and, if EOF is set, the EOT
// sentinel after it.
func (s *RunnerService) Input(
	ctx context.Context,
	req *connect.Request[InputRequest],
) (*connect.Response[StateResponse], error) {
	if req.Msg.Text == "" && !req.Msg.EOF {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("text or eof is required"))
	}
	state, err := s.apply(req.Msg.SessionID, func(session *Session) (int, error) {
		session.Interp.InputString(req.Msg.Text)
		if req.Msg.EOF {
			session.Interp.InputChar(vm.EOT)
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// Reset restores the session's execution state, keeping the grid.
func (s *RunnerService) Reset(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StateResponse], error) {
	state, err := s.apply(req.Msg.SessionID, func(session *Session) (int, error) {
		session.Interp.Reset()
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// Reload replaces the session's program. An empty source reloads the
// source the session was created with.
func (s *RunnerService) Reload(
	ctx context.Context,
	req *connect.Request[ReloadRequest],
) (*connect.Response[StateResponse], error) {
	state, err := s.apply(req.Msg.SessionID, func(session *Session) (int, error) {
		if req.Msg.Source != "" {
			session.Source = vm.ParseSource(req.Msg.Source)
		}
		session.Interp.Reload(session.Source)
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// Edit writes one cell of the session's grid.
func (s *RunnerService) Edit(
	ctx context.Context,
	req *connect.Request[EditRequest],
) (*connect.Response[StateResponse], error) {
	msg := req.Msg
	state, err := s.apply(msg.SessionID, func(session *Session) (int, error) {
		rows := session.Interp.Grid().Rows()
		if msg.AppendRow {
			rows++
		}
		if msg.X < 0 || msg.X >= vm.Width || msg.Y < 0 || msg.Y >= rows {
			return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("cell (%d, %d) is outside the grid", msg.X, msg.Y))
		}
		if msg.AppendRow {
			session.Interp.AppendRow()
		}
		session.Interp.Put(msg.X, msg.Y, msg.Code)
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// GetState returns the session state without changing it.
func (s *RunnerService) GetState(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StateResponse], error) {
	state, err := s.apply(req.Msg.SessionID, func(*Session) (int, error) { return 0, nil })
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// SaveSnapshot stores the session's complete state under a name.
func (s *RunnerService) SaveSnapshot(
	ctx context.Context,
	req *connect.Request[SaveSnapshotRequest],
) (*connect.Response[SaveSnapshotResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no snapshot store configured"))
	}
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}
	session, err := s.session(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.worker.Do(func() interface{} {
		return snapshot.Capture(session.Interp)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	hash, err := s.store.SaveSnapshot(ctx, req.Msg.Name, result.(*snapshot.Snapshot))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&SaveSnapshotResponse{Name: req.Msg.Name, Hash: hash}), nil
}

// LoadSnapshot restores a named snapshot into a new session.
func (s *RunnerService) LoadSnapshot(
	ctx context.Context,
	req *connect.Request[LoadSnapshotRequest],
) (*connect.Response[StateResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no snapshot store configured"))
	}
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}

	snap, err := s.store.LoadSnapshot(ctx, req.Msg.Name)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	interp, err := snap.Restore()
	if err != nil {
		return nil, connect.NewError(connect.CodeDataLoss, err)
	}

	session := s.sessions.Add(req.Msg.Name, interp, interp.Serialize())
	state, err := s.apply(session.ID, func(*Session) (int, error) { return 0, nil })
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(state), nil
}

// DestroySession ends a session.
func (s *RunnerService) DestroySession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[DestroySessionResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	if !s.sessions.Destroy(req.Msg.SessionID) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.Msg.SessionID))
	}
	return connect.NewResponse(&DestroySessionResponse{}), nil
}
