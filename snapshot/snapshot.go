// Package snapshot serializes complete interpreter states.
//
// Snapshots are encoded as canonical CBOR, so equal states always produce
// identical bytes and therefore identical hashes.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/chazu/arghonaut/vm"
	"github.com/fxamacker/cbor/v2"
)

// Version is the current snapshot format version.
const Version = 1

// ErrVersion is returned when decoding a snapshot written by an unknown
// format version.
var ErrVersion = errors.New("snapshot: unsupported version")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the wire form of vm.State.
type Snapshot struct {
	Version    int     `cbor:"1,keyasint"`
	Rows       [][]int `cbor:"2,keyasint"`
	X          int     `cbor:"3,keyasint"`
	Y          int     `cbor:"4,keyasint"`
	DX         int     `cbor:"5,keyasint"`
	DY         int     `cbor:"6,keyasint"`
	Stack      []int   `cbor:"7,keyasint,omitempty"`
	Input      []int   `cbor:"8,keyasint,omitempty"`
	Stdout     string  `cbor:"9,keyasint,omitempty"`
	Error      string  `cbor:"10,keyasint,omitempty"`
	ErrorKind  string  `cbor:"11,keyasint,omitempty"`
	Symbol     string  `cbor:"12,keyasint,omitempty"`
	NeedsInput bool    `cbor:"13,keyasint,omitempty"`
	Steps      int     `cbor:"14,keyasint,omitempty"`
	Directive  string  `cbor:"15,keyasint"`
}

// Capture records the current state of in.
func Capture(in *vm.Interpreter) *Snapshot {
	s := in.State()
	return &Snapshot{
		Version:    Version,
		Rows:       s.Rows,
		X:          s.X,
		Y:          s.Y,
		DX:         s.DX,
		DY:         s.DY,
		Stack:      s.Stack,
		Input:      s.Input,
		Stdout:     s.Stdout,
		Error:      s.Error,
		ErrorKind:  s.ErrorKind,
		Symbol:     s.Symbol,
		NeedsInput: s.NeedsInput,
		Steps:      s.Steps,
		Directive:  s.Directive.String(),
	}
}

// Restore builds a new interpreter from the snapshot. Options are applied
// after the saved state.
func (s *Snapshot) Restore(opts ...vm.Option) (*vm.Interpreter, error) {
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	mode, err := vm.ParseDirectiveMode(s.Directive)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	in, err := vm.FromState(vm.State{
		Rows:       s.Rows,
		X:          s.X,
		Y:          s.Y,
		DX:         s.DX,
		DY:         s.DY,
		Stack:      s.Stack,
		Input:      s.Input,
		Stdout:     s.Stdout,
		Error:      s.Error,
		ErrorKind:  s.ErrorKind,
		Symbol:     s.Symbol,
		NeedsInput: s.NeedsInput,
		Steps:      s.Steps,
		Directive:  mode,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}
	return in, nil
}

// Marshal serializes a Snapshot to canonical CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return &s, nil
}

// Hash returns the hex SHA-256 of the canonical encoding of s.
func Hash(s *Snapshot) (string, error) {
	data, err := Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ProgramHash returns the hex SHA-256 of the given source lines after they
// have been normalized into a grid. It identifies a program independently of
// any execution state.
func ProgramHash(lines []string) string {
	h := sha256.New()
	for _, line := range vm.NewGrid(lines).Serialize() {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
