package server

import (
	"errors"
	"reflect"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/arghonaut/vm"
)

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %v", want)
	}
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v is not a connect error", err)
	}
	if cerr.Code() != want {
		t.Errorf("code = %v, want %v (%v)", cerr.Code(), want, err)
	}
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, false)
	state := env.createSession(t, helloSource)

	if state.SessionID == "" {
		t.Fatal("CreateSession returned no session ID")
	}
	if state.Status != "running" {
		t.Errorf("status = %q, want running", state.Status)
	}
	if len(state.Rows) != 3 || len(state.Rows[0]) != vm.Width {
		t.Errorf("rows = %d x %d, want 3 x %d", len(state.Rows), len(state.Rows[0]), vm.Width)
	}
	if env.Server.Sessions().Len() != 1 {
		t.Errorf("Sessions().Len() = %d, want 1", env.Server.Sessions().Len())
	}
}

func TestCreateSessionBadDirective(t *testing.T) {
	env := newTestEnv(t, false)
	_, err := env.Client.CreateSession(bg(), &CreateSessionRequest{Source: "q", Directive: "nowhere"})
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestDestroySession(t *testing.T) {
	env := newTestEnv(t, false)
	state := env.createSession(t, "q")

	if err := env.Client.DestroySession(bg(), &SessionRequest{SessionID: state.SessionID}); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	err := env.Client.DestroySession(bg(), &SessionRequest{SessionID: state.SessionID})
	assertCode(t, err, connect.CodeNotFound)

	err = env.Client.DestroySession(bg(), &SessionRequest{})
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, false)
	_, err := env.Client.GetState(bg(), &SessionRequest{SessionID: "nope"})
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.Client.Step(bg(), &StepRequest{})
	assertCode(t, err, connect.CodeInvalidArgument)
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func TestStepAndRun(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createSession(t, helloSource).SessionID

	state, err := env.Client.Step(bg(), &StepRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if state.Taken != 1 || state.Y != 1 || state.DY != 1 {
		t.Errorf("after one step: taken=%d pos=(%d,%d) dir=(%d,%d)", state.Taken, state.X, state.Y, state.DX, state.DY)
	}

	state, err = env.Client.Step(bg(), &StepRequest{SessionID: id, Count: 100})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if state.Taken != 3 {
		t.Errorf("taken = %d, want 3 (stops when done)", state.Taken)
	}
	if state.Status != "done" || state.Stdout != "Hi" {
		t.Errorf("status=%q stdout=%q, want done/Hi", state.Status, state.Stdout)
	}

	state, err = env.Client.Reset(bg(), &SessionRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if state.Stdout != "" || state.Steps != 0 {
		t.Errorf("Reset left stdout=%q steps=%d", state.Stdout, state.Steps)
	}

	state, err = env.Client.Run(bg(), &RunRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Status != "done" || state.Taken != 4 {
		t.Errorf("Run: status=%q taken=%d, want done/4", state.Status, state.Taken)
	}
}

func TestRunStepLimit(t *testing.T) {
	env := newTestEnv(t, false, WithMaxSteps(5))
	// Circles the top-left 2x2 square forever.
	id := env.createSession(t, "lj\nkh").SessionID

	state, err := env.Client.Run(bg(), &RunRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Taken != 5 {
		t.Errorf("taken = %d, want server cap 5", state.Taken)
	}

	state, err = env.Client.Run(bg(), &RunRequest{SessionID: id, MaxSteps: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Taken != 2 {
		t.Errorf("taken = %d, want 2", state.Taken)
	}
}

func TestInputProtocol(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createSession(t, echoSource).SessionID

	state, err := env.Client.Run(bg(), &RunRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !state.NeedsInput || state.Status != "awaiting-input" {
		t.Fatalf("status = %q, want awaiting-input", state.Status)
	}

	_, err = env.Client.Input(bg(), &InputRequest{SessionID: id})
	assertCode(t, err, connect.CodeInvalidArgument)

	state, err = env.Client.Input(bg(), &InputRequest{SessionID: id, Text: "x", EOF: true})
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if !reflect.DeepEqual(state.Pending, []int{'x', vm.EOT}) {
		t.Errorf("pending = %v, want [x EOT]", state.Pending)
	}

	state, err = env.Client.Run(bg(), &RunRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Stdout != "x" || state.Status != "done" {
		t.Errorf("status=%q stdout=%q, want done/x", state.Status, state.Stdout)
	}
}

func TestErrorState(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createSession(t, "z").SessionID

	state, err := env.Client.Step(bg(), &StepRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if state.Status != "errored" || state.Error != "invalid instruction: z" || state.ErrorKind != "invalid-instruction" {
		t.Errorf("state = %+v", state)
	}
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

func TestEditAndReload(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createSession(t, "z").SessionID

	state, err := env.Client.Edit(bg(), &EditRequest{SessionID: id, X: 0, Y: 0, Code: 'q'})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if state.Status != "done" {
		t.Errorf("status = %q after edit, want done", state.Status)
	}

	_, err = env.Client.Edit(bg(), &EditRequest{SessionID: id, X: vm.Width, Y: 0, Code: 'q'})
	assertCode(t, err, connect.CodeInvalidArgument)

	// A rejected edit leaves the grid alone, even when it asked for a new row.
	_, err = env.Client.Edit(bg(), &EditRequest{SessionID: id, X: 0, Y: 2, Code: 'h', AppendRow: true})
	assertCode(t, err, connect.CodeInvalidArgument)
	state, err = env.Client.GetState(bg(), &SessionRequest{SessionID: id})
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Rows) != 1 {
		t.Errorf("rows after rejected edit = %d, want 1", len(state.Rows))
	}

	state, err = env.Client.Edit(bg(), &EditRequest{SessionID: id, X: 0, Y: 1, Code: 'h', AppendRow: true})
	if err != nil {
		t.Fatalf("Edit(append): %v", err)
	}
	if len(state.Rows) != 2 || state.Rows[1][0] != 'h' {
		t.Errorf("rows after append = %q", state.Rows)
	}

	// Reload without source restores the original program.
	state, err = env.Client.Reload(bg(), &ReloadRequest{SessionID: id})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(state.Rows) != 1 || state.Rows[0][0] != 'z' {
		t.Errorf("rows after reload = %q", state.Rows)
	}

	state, err = env.Client.Reload(bg(), &ReloadRequest{SessionID: id, Source: "lq"})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if state.Rows[0][:2] != "lq" {
		t.Errorf("rows after reload = %q", state.Rows)
	}
}

// ---------------------------------------------------------------------------
// Snapshots and run records
// ---------------------------------------------------------------------------

func TestSnapshotsRequireStore(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createSession(t, "q").SessionID

	_, err := env.Client.SaveSnapshot(bg(), &SaveSnapshotRequest{SessionID: id, Name: "x"})
	assertCode(t, err, connect.CodeFailedPrecondition)
	_, err = env.Client.LoadSnapshot(bg(), &LoadSnapshotRequest{Name: "x"})
	assertCode(t, err, connect.CodeFailedPrecondition)
}

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.createSession(t, echoSource).SessionID

	if _, err := env.Client.Run(bg(), &RunRequest{SessionID: id}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	saved, err := env.Client.SaveSnapshot(bg(), &SaveSnapshotRequest{SessionID: id, Name: "waiting"})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if saved.Hash == "" {
		t.Error("SaveSnapshot returned no hash")
	}

	_, err = env.Client.SaveSnapshot(bg(), &SaveSnapshotRequest{SessionID: id})
	assertCode(t, err, connect.CodeInvalidArgument)

	state, err := env.Client.LoadSnapshot(bg(), &LoadSnapshotRequest{Name: "waiting"})
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if state.SessionID == id {
		t.Error("LoadSnapshot reused the original session")
	}
	if !state.NeedsInput {
		t.Error("restored session should be waiting for input")
	}

	if _, err := env.Client.Input(bg(), &InputRequest{SessionID: state.SessionID, Text: "r"}); err != nil {
		t.Fatalf("Input: %v", err)
	}
	state, err = env.Client.Run(bg(), &RunRequest{SessionID: state.SessionID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Stdout != "r" {
		t.Errorf("stdout = %q, want r", state.Stdout)
	}

	_, err = env.Client.LoadSnapshot(bg(), &LoadSnapshotRequest{Name: "missing"})
	assertCode(t, err, connect.CodeNotFound)
}

func TestRunIsRecorded(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.createSession(t, helloSource).SessionID

	if _, err := env.Client.Run(bg(), &RunRequest{SessionID: id}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	runs, err := env.Store.Runs(bg(), 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "done" || runs[0].Stdout != "Hi" {
		t.Errorf("runs = %+v", runs)
	}
}
