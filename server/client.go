package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// RunnerClient calls a remote RunnerService.
type RunnerClient struct {
	createSession  *connect.Client[CreateSessionRequest, StateResponse]
	step           *connect.Client[StepRequest, StateResponse]
	run            *connect.Client[RunRequest, StateResponse]
	input          *connect.Client[InputRequest, StateResponse]
	reset          *connect.Client[SessionRequest, StateResponse]
	reload         *connect.Client[ReloadRequest, StateResponse]
	edit           *connect.Client[EditRequest, StateResponse]
	getState       *connect.Client[SessionRequest, StateResponse]
	saveSnapshot   *connect.Client[SaveSnapshotRequest, SaveSnapshotResponse]
	loadSnapshot   *connect.Client[LoadSnapshotRequest, StateResponse]
	destroySession *connect.Client[SessionRequest, DestroySessionResponse]
}

// NewRunnerClient creates a client for the service at baseURL
// (e.g. "http://localhost:7070").
func NewRunnerClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RunnerClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &RunnerClient{
		createSession:  connect.NewClient[CreateSessionRequest, StateResponse](httpClient, baseURL+CreateSessionProcedure, opts...),
		step:           connect.NewClient[StepRequest, StateResponse](httpClient, baseURL+StepProcedure, opts...),
		run:            connect.NewClient[RunRequest, StateResponse](httpClient, baseURL+RunProcedure, opts...),
		input:          connect.NewClient[InputRequest, StateResponse](httpClient, baseURL+InputProcedure, opts...),
		reset:          connect.NewClient[SessionRequest, StateResponse](httpClient, baseURL+ResetProcedure, opts...),
		reload:         connect.NewClient[ReloadRequest, StateResponse](httpClient, baseURL+ReloadProcedure, opts...),
		edit:           connect.NewClient[EditRequest, StateResponse](httpClient, baseURL+EditProcedure, opts...),
		getState:       connect.NewClient[SessionRequest, StateResponse](httpClient, baseURL+GetStateProcedure, opts...),
		saveSnapshot:   connect.NewClient[SaveSnapshotRequest, SaveSnapshotResponse](httpClient, baseURL+SaveSnapshotProcedure, opts...),
		loadSnapshot:   connect.NewClient[LoadSnapshotRequest, StateResponse](httpClient, baseURL+LoadSnapshotProcedure, opts...),
		destroySession: connect.NewClient[SessionRequest, DestroySessionResponse](httpClient, baseURL+DestroySessionProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *RunnerClient) CreateSession(ctx context.Context, req *CreateSessionRequest) (*StateResponse, error) {
	return call(ctx, c.createSession, req)
}

func (c *RunnerClient) Step(ctx context.Context, req *StepRequest) (*StateResponse, error) {
	return call(ctx, c.step, req)
}

func (c *RunnerClient) Run(ctx context.Context, req *RunRequest) (*StateResponse, error) {
	return call(ctx, c.run, req)
}

func (c *RunnerClient) Input(ctx context.Context, req *InputRequest) (*StateResponse, error) {
	return call(ctx, c.input, req)
}

func (c *RunnerClient) Reset(ctx context.Context, req *SessionRequest) (*StateResponse, error) {
	return call(ctx, c.reset, req)
}

func (c *RunnerClient) Reload(ctx context.Context, req *ReloadRequest) (*StateResponse, error) {
	return call(ctx, c.reload, req)
}

func (c *RunnerClient) Edit(ctx context.Context, req *EditRequest) (*StateResponse, error) {
	return call(ctx, c.edit, req)
}

func (c *RunnerClient) GetState(ctx context.Context, req *SessionRequest) (*StateResponse, error) {
	return call(ctx, c.getState, req)
}

func (c *RunnerClient) SaveSnapshot(ctx context.Context, req *SaveSnapshotRequest) (*SaveSnapshotResponse, error) {
	return call(ctx, c.saveSnapshot, req)
}

func (c *RunnerClient) LoadSnapshot(ctx context.Context, req *LoadSnapshotRequest) (*StateResponse, error) {
	return call(ctx, c.loadSnapshot, req)
}

func (c *RunnerClient) DestroySession(ctx context.Context, req *SessionRequest) error {
	_, err := call(ctx, c.destroySession, req)
	return err
}
