package vm

import (
	"errors"
)

// Diagnostic kinds. A Diagnostic unwraps to exactly one of these, so drivers
// can classify failures with errors.Is.
var (
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrOutOfBounds        = errors.New("out of bounds")
	ErrNoDirection        = errors.New("no direction")
	ErrUnprintableOutput  = errors.New("unprintable output")
)

// Diagnostic is the sticky error recorded by the interpreter. Once set it
// blocks further stepping until Reset.
type Diagnostic struct {
	Kind    error  // one of the Err* sentinels
	Message string // message shown to the user
	Symbol  string // offending symbol, in short printable form, if any
}

func (d *Diagnostic) Error() string {
	return d.Message
}

// Unwrap returns the diagnostic kind.
func (d *Diagnostic) Unwrap() error {
	return d.Kind
}

func invalidInstruction(code int) *Diagnostic {
	sym := ToPrintable(code, false)
	return &Diagnostic{Kind: ErrInvalidInstruction, Message: "invalid instruction: " + sym, Symbol: sym}
}

func stackUnderflow() *Diagnostic {
	return &Diagnostic{Kind: ErrStackUnderflow, Message: "tried to pop from an empty stack"}
}

func movedOutOfBounds() *Diagnostic {
	return &Diagnostic{Kind: ErrOutOfBounds, Message: "moved out of bounds"}
}

func jumpedOutOfBounds() *Diagnostic {
	return &Diagnostic{Kind: ErrOutOfBounds, Message: "jumped out of bounds"}
}

func readOutOfBounds() *Diagnostic {
	return &Diagnostic{Kind: ErrOutOfBounds, Message: "read out of bounds"}
}

func noDirection() *Diagnostic {
	return &Diagnostic{Kind: ErrNoDirection, Message: "can't move; no direction specified"}
}

func unprintable(code int) *Diagnostic {
	sym := ToPrintable(code, false)
	return &Diagnostic{Kind: ErrUnprintableOutput, Message: "tried to print unprintable character: " + sym, Symbol: sym}
}

// diagnosticKinds maps stable kind names to sentinels; used when a
// diagnostic is rebuilt from saved state.
var diagnosticKinds = map[string]error{
	"invalid-instruction": ErrInvalidInstruction,
	"stack-underflow":     ErrStackUnderflow,
	"out-of-bounds":       ErrOutOfBounds,
	"no-direction":        ErrNoDirection,
	"unprintable-output":  ErrUnprintableOutput,
}

// KindName returns the stable name of a diagnostic kind ("stack-underflow",
// ...), or "" if err is not an engine diagnostic.
func KindName(err error) string {
	for name, kind := range diagnosticKinds {
		if errors.Is(err, kind) {
			return name
		}
	}
	return ""
}
