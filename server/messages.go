package server

import (
	"encoding/json"

	"github.com/chazu/arghonaut/vm"
)

// RunnerServiceName is the fully-qualified name of the runner service.
const RunnerServiceName = "argh.v1.RunnerService"

// Procedure paths of the runner service.
const (
	CreateSessionProcedure  = "/argh.v1.RunnerService/CreateSession"
	StepProcedure           = "/argh.v1.RunnerService/Step"
	RunProcedure            = "/argh.v1.RunnerService/Run"
	InputProcedure          = "/argh.v1.RunnerService/Input"
	ResetProcedure          = "/argh.v1.RunnerService/Reset"
	ReloadProcedure         = "/argh.v1.RunnerService/Reload"
	EditProcedure           = "/argh.v1.RunnerService/Edit"
	GetStateProcedure       = "/argh.v1.RunnerService/GetState"
	SaveSnapshotProcedure   = "/argh.v1.RunnerService/SaveSnapshot"
	LoadSnapshotProcedure   = "/argh.v1.RunnerService/LoadSnapshot"
	DestroySessionProcedure = "/argh.v1.RunnerService/DestroySession"
)

// jsonCodec carries plain Go structs as JSON. It replaces connect's
// protobuf-JSON codec under the same "json" name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

type CreateSessionRequest struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Directive string `json:"directive,omitempty"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type StepRequest struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

type RunRequest struct {
	SessionID string `json:"session_id"`
	MaxSteps  int    `json:"max_steps"`
}

type InputRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	EOF       bool   `json:"eof"`
}

type ReloadRequest struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

// EditRequest writes Code at (X, Y). With AppendRow set, a blank row is
// added first, so edits may target the new last row.
type EditRequest struct {
	SessionID string `json:"session_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Code      int    `json:"code"`
	AppendRow bool   `json:"append_row,omitempty"`
}

type SaveSnapshotRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

type LoadSnapshotRequest struct {
	Name string `json:"name"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// StateResponse is the observable state of a session after a call.
type StateResponse struct {
	SessionID  string   `json:"session_id"`
	Status     string   `json:"status"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	DX         int      `json:"dx"`
	DY         int      `json:"dy"`
	Stack      []int    `json:"stack"`
	Stdout     string   `json:"stdout"`
	Error      string   `json:"error,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	NeedsInput bool     `json:"needs_input"`
	Steps      int      `json:"steps"`
	Taken      int      `json:"taken"`
	Pending    []int    `json:"pending_input,omitempty"`
	Rows       []string `json:"rows"`
}

type SaveSnapshotResponse struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

type DestroySessionResponse struct{}

// stateOf renders a session. Must be called on the worker goroutine.
func stateOf(s *Session, taken int) *StateResponse {
	in := s.Interp
	x, y := in.Position()
	dx, dy := in.Direction()
	resp := &StateResponse{
		SessionID:  s.ID,
		Status:     in.Status().String(),
		X:          x,
		Y:          y,
		DX:         dx,
		DY:         dy,
		Stack:      in.Stack(),
		Stdout:     in.Stdout(),
		NeedsInput: in.NeedsInput(),
		Steps:      in.Steps(),
		Taken:      taken,
		Pending:    in.PendingInput(),
		Rows:       in.Serialize(),
	}
	if err := in.Err(); err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = vm.KindName(err)
	}
	return resp
}
