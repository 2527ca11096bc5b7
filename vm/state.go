package vm

import (
	"fmt"
)

// State is a complete, detached copy of an interpreter's state. It is what
// snapshots persist and what remote drivers render.
type State struct {
	Rows       [][]int
	X, Y       int
	DX, DY     int
	Stack      []int
	Input      []int
	Stdout     string
	Error      string // diagnostic message, empty when clear
	ErrorKind  string // stable kind name (see KindName)
	Symbol     string // offending symbol of the diagnostic, if any
	NeedsInput bool
	Steps      int
	Directive  DirectiveMode
}

// State captures the interpreter's current state.
func (in *Interpreter) State() State {
	s := State{
		Rows:       in.grid.Codes(),
		X:          in.x,
		Y:          in.y,
		DX:         in.dx,
		DY:         in.dy,
		Stack:      in.Stack(),
		Input:      in.input.Values(),
		Stdout:     in.stdout.String(),
		NeedsInput: in.needsInput,
		Steps:      in.steps,
		Directive:  in.directive,
	}
	if in.err != nil {
		s.Error = in.err.Message
		s.ErrorKind = KindName(in.err)
		s.Symbol = in.err.Symbol
	}
	return s
}

// FromState rebuilds an interpreter from a captured state. Options are
// applied after the state, so they may override the directive mode.
func FromState(s State, opts ...Option) (*Interpreter, error) {
	in := New(nil)
	in.grid = gridFromCodes(s.Rows)

	if in.grid.Rows() > 0 && !in.grid.Valid(s.X, s.Y) {
		return nil, fmt.Errorf("%w: pointer (%d, %d) outside %d-row grid", ErrOutOfBounds, s.X, s.Y, in.grid.Rows())
	}
	if !validDirection(s.DX, s.DY) {
		return nil, fmt.Errorf("invalid direction (%d, %d)", s.DX, s.DY)
	}
	in.x, in.y = s.X, s.Y
	in.dx, in.dy = s.DX, s.DY
	in.stack = append([]int(nil), s.Stack...)
	for _, code := range s.Input {
		in.input.Push(code)
	}
	in.stdout.WriteString(s.Stdout)
	in.needsInput = s.NeedsInput
	in.steps = s.Steps
	in.directive = s.Directive

	if s.ErrorKind != "" || s.Error != "" {
		kind, ok := diagnosticKinds[s.ErrorKind]
		if !ok {
			return nil, fmt.Errorf("unknown diagnostic kind %q", s.ErrorKind)
		}
		in.err = &Diagnostic{Kind: kind, Message: s.Error, Symbol: s.Symbol}
	}

	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

func validDirection(dx, dy int) bool {
	switch [2]int{dx, dy} {
	case [2]int{0, 0}, [2]int{-1, 0}, [2]int{1, 0}, [2]int{0, -1}, [2]int{0, 1}:
		return true
	}
	return false
}
