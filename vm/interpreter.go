package vm

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// Status and options
// ---------------------------------------------------------------------------

// Status is the coarse execution state of an interpreter.
type Status int

const (
	StatusRunning Status = iota
	StatusAwaitingInput
	StatusDone
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusAwaitingInput:
		return "awaiting-input"
	case StatusDone:
		return "done"
	case StatusErrored:
		return "errored"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// DirectiveMode selects where a "#!" directive is honored.
type DirectiveMode int

const (
	// DirectiveOrigin honors "#!" only at the origin cell (0, 0).
	DirectiveOrigin DirectiveMode = iota
	// DirectiveAnywhere honors "#" wherever the cell to its right is "!".
	DirectiveAnywhere
)

func (m DirectiveMode) String() string {
	switch m {
	case DirectiveOrigin:
		return "origin"
	case DirectiveAnywhere:
		return "anywhere"
	}
	return fmt.Sprintf("DirectiveMode(%d)", int(m))
}

// ParseDirectiveMode parses "origin" or "anywhere". The empty string selects
// DirectiveOrigin.
func ParseDirectiveMode(s string) (DirectiveMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "origin":
		return DirectiveOrigin, nil
	case "anywhere":
		return DirectiveAnywhere, nil
	}
	return DirectiveOrigin, fmt.Errorf("unknown directive mode %q (use origin or anywhere)", s)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets the writer that receives printed characters in batch mode.
// The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithDirective selects the "#!" directive mode.
func WithDirective(mode DirectiveMode) Option {
	return func(in *Interpreter) { in.directive = mode }
}

// ---------------------------------------------------------------------------
// Interpreter: the Argh! state machine
// ---------------------------------------------------------------------------

// Interpreter owns a program grid together with the instruction pointer,
// stack, input queue, output buffer and diagnostics. It is not safe for
// concurrent use; callers serialize access.
type Interpreter struct {
	grid *Grid

	x, y   int // instruction pointer
	dx, dy int // direction

	stack  []int
	input  InputQueue
	stdout strings.Builder

	err        *Diagnostic
	needsInput bool
	steps      int

	out       io.Writer
	directive DirectiveMode
}

// New creates an interpreter for the given source lines.
func New(lines []string, opts ...Option) *Interpreter {
	in := &Interpreter{
		grid: NewGrid(lines),
		out:  os.Stdout,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Reset restores the pointer, direction, stack, input, output and
// diagnostics to their initial values. The grid is left untouched.
func (in *Interpreter) Reset() {
	in.x, in.y = 0, 0
	in.dx, in.dy = 0, 0
	in.stack = nil
	in.input.Clear()
	in.stdout.Reset()
	in.err = nil
	in.needsInput = false
	in.steps = 0
}

// Reload replaces the grid with freshly parsed lines and resets execution
// state. Options given at construction are kept.
func (in *Interpreter) Reload(lines []string) {
	in.grid = NewGrid(lines)
	in.Reset()
}

// ---------------------------------------------------------------------------
// Observable state
// ---------------------------------------------------------------------------

// Instruction returns the code under the instruction pointer.
func (in *Interpreter) Instruction() (int, bool) {
	return in.grid.Get(in.x, in.y)
}

// Done reports whether the program has finished by reaching "q".
func (in *Interpreter) Done() bool {
	code, ok := in.Instruction()
	return ok && code == int(InsQuit)
}

// Err returns the sticky diagnostic, or nil. A non-nil result is always a
// *Diagnostic.
func (in *Interpreter) Err() error {
	if in.err == nil {
		return nil
	}
	return in.err
}

// NeedsInput reports whether the last step stopped on an input instruction
// with an empty queue.
func (in *Interpreter) NeedsInput() bool {
	return in.needsInput
}

// Blocked reports whether Step can make progress without outside help.
func (in *Interpreter) Blocked() bool {
	return in.Done() || in.err != nil || in.needsInput
}

// Status summarizes the interpreter state.
func (in *Interpreter) Status() Status {
	switch {
	case in.err != nil:
		return StatusErrored
	case in.needsInput:
		return StatusAwaitingInput
	case in.Done():
		return StatusDone
	}
	return StatusRunning
}

// Stack returns a copy of the stack, bottom first.
func (in *Interpreter) Stack() []int {
	return append([]int(nil), in.stack...)
}

// Stdout returns everything printed so far.
func (in *Interpreter) Stdout() string {
	return in.stdout.String()
}

// Position returns the instruction pointer as (column, row).
func (in *Interpreter) Position() (int, int) {
	return in.x, in.y
}

// Direction returns the current direction vector.
func (in *Interpreter) Direction() (int, int) {
	return in.dx, in.dy
}

// Steps returns the number of instructions executed since the last reset.
// An input instruction that blocks is counted once, when it completes.
func (in *Interpreter) Steps() int {
	return in.steps
}

// PendingInput returns the queued input codes, front first.
func (in *Interpreter) PendingInput() []int {
	return in.input.Values()
}

// Grid exposes the program grid for rendering and editing.
func (in *Interpreter) Grid() *Grid {
	return in.grid
}

// DirectiveMode returns the configured directive mode.
func (in *Interpreter) DirectiveMode() DirectiveMode {
	return in.directive
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// InputChar queues one input code and clears the awaiting-input flag.
func (in *Interpreter) InputChar(code int) {
	in.input.Push(code)
	in.needsInput = false
}

// InputString queues the code of every rune of s, in order.
func (in *Interpreter) InputString(s string) {
	for _, r := range s {
		in.InputChar(int(r))
	}
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

// Get returns the code at (x, y).
func (in *Interpreter) Get(x, y int) (int, bool) {
	return in.grid.Get(x, y)
}

// Put writes code at (x, y); out-of-bounds writes are ignored.
func (in *Interpreter) Put(x, y, code int) {
	in.grid.Put(x, y, code)
}

// AppendRow adds a blank row to the grid.
func (in *Interpreter) AppendRow() {
	in.grid.AppendRow()
}

// Serialize renders the grid as source lines.
func (in *Interpreter) Serialize() []string {
	return in.grid.Serialize()
}

// MovePointer places the instruction pointer at (x, y) without executing
// anything. Diagnostics are not affected.
func (in *Interpreter) MovePointer(x, y int) error {
	if !in.grid.Valid(x, y) {
		return fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, x, y)
	}
	in.x, in.y = x, y
	return nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Step executes the instruction under the pointer and then advances the
// pointer, unless the machine is blocked. In batch mode printed characters
// are also written to the configured output.
func (in *Interpreter) Step(batch bool) {
	if in.Blocked() {
		return
	}

	code, ok := in.Instruction()
	if !ok {
		in.err = movedOutOfBounds()
		return
	}
	if !IsPrintable(code, false) {
		in.err = invalidInstruction(code)
		return
	}

	in.execute(code, batch)
	if !in.needsInput {
		in.steps++
	}

	if !in.Blocked() {
		in.move()
	}
}

// Run steps until the machine blocks or maxSteps instructions have been
// dispatched (0 means no limit). It returns the number of Step calls made.
func (in *Interpreter) Run(maxSteps int) int {
	n := 0
	for !in.Blocked() {
		if maxSteps > 0 && n >= maxSteps {
			break
		}
		in.Step(false)
		n++
	}
	return n
}

// move advances the pointer one cell along the current direction.
func (in *Interpreter) move() {
	if in.dx == 0 && in.dy == 0 {
		in.err = noDirection()
		return
	}
	nx, ny := in.x+in.dx, in.y+in.dy
	if !in.grid.Valid(nx, ny) {
		in.err = movedOutOfBounds()
		return
	}
	in.x, in.y = nx, ny
}

// jump scans from the pointer along (dx, dy) for the first cell equal to the
// top of the stack. The scan never inspects the starting cell. Pointer and
// direction only change if a match is found.
func (in *Interpreter) jump(dx, dy int) {
	if len(in.stack) == 0 {
		in.err = stackUnderflow()
		return
	}
	target := in.stack[len(in.stack)-1]

	x, y := in.x, in.y
	for {
		x, y = x+dx, y+dy
		code, ok := in.grid.Get(x, y)
		if !ok {
			in.err = jumpedOutOfBounds()
			return
		}
		if code == target {
			break
		}
	}
	in.x, in.y = x, y
	in.dx, in.dy = dx, dy
}

// rotate turns the direction 90 degrees. With y growing downward, clockwise
// maps (dx, dy) to (-dy, dx).
func (in *Interpreter) rotate(clockwise bool) {
	if clockwise {
		in.dx, in.dy = -in.dy, in.dx
	} else {
		in.dx, in.dy = in.dy, -in.dx
	}
}

// directiveApplies reports whether a "#" under the pointer acts as "j".
func (in *Interpreter) directiveApplies() bool {
	if in.directive == DirectiveOrigin && (in.x != 0 || in.y != 0) {
		return false
	}
	code, ok := in.grid.Get(in.x+1, in.y)
	return ok && code == '!'
}
