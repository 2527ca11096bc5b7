package vm

import "fmt"

// Instruction is one symbol of the Argh! instruction alphabet. The value of
// each constant is the ASCII code of its symbol.
type Instruction byte

const (
	// ========================================================================
	// Direction
	// ========================================================================

	InsLeft  Instruction = 'h' // Set direction to left
	InsRight Instruction = 'l' // Set direction to right
	InsUp    Instruction = 'k' // Set direction to up
	InsDown  Instruction = 'j' // Set direction to down

	// ========================================================================
	// Jump: set direction, then scan for the cell equal to the stack top
	// ========================================================================

	InsJumpLeft  Instruction = 'H'
	InsJumpRight Instruction = 'L'
	InsJumpUp    Instruction = 'K'
	InsJumpDown  Instruction = 'J'

	// ========================================================================
	// I/O (upper case: cell above, lower case: cell below)
	// ========================================================================

	InsPrintAbove Instruction = 'P'
	InsPrintBelow Instruction = 'p'
	InsGetAbove   Instruction = 'G'
	InsGetBelow   Instruction = 'g'
	InsEOFAbove   Instruction = 'E'
	InsEOFBelow   Instruction = 'e'

	// ========================================================================
	// Stack
	// ========================================================================

	InsDelete    Instruction = 'D'
	InsDuplicate Instruction = 'd'
	InsPopAbove  Instruction = 'F'
	InsPopBelow  Instruction = 'f'
	InsAddAbove  Instruction = 'A'
	InsAddBelow  Instruction = 'a'
	InsSubAbove  Instruction = 'R'
	InsSubBelow  Instruction = 'r'
	InsPushAbove Instruction = 'S'
	InsPushBelow Instruction = 's'
	InsTurnIfNeg Instruction = 'X'
	InsTurnIfPos Instruction = 'x'

	// ========================================================================
	// Control
	// ========================================================================

	InsDirective Instruction = '#' // "#!" at the origin behaves as j
	InsQuit      Instruction = 'q'
)

// InstructionInfo provides metadata about an instruction for tooling.
type InstructionInfo struct {
	Name    string // Short mnemonic
	Summary string // One-line description
	Pops    bool   // Requires a non-empty stack
}

var instructionTable = map[Instruction]InstructionInfo{
	InsLeft:  {"LEFT", "set direction to left", false},
	InsRight: {"RIGHT", "set direction to right", false},
	InsUp:    {"UP", "set direction to up", false},
	InsDown:  {"DOWN", "set direction to down", false},

	InsJumpLeft:  {"JUMP_LEFT", "jump left to the next cell equal to the top of the stack", true},
	InsJumpRight: {"JUMP_RIGHT", "jump right to the next cell equal to the top of the stack", true},
	InsJumpUp:    {"JUMP_UP", "jump up to the next cell equal to the top of the stack", true},
	InsJumpDown:  {"JUMP_DOWN", "jump down to the next cell equal to the top of the stack", true},

	InsPrintAbove: {"PRINT_ABOVE", "print the character in the cell above", false},
	InsPrintBelow: {"PRINT_BELOW", "print the character in the cell below", false},
	InsGetAbove:   {"GET_ABOVE", "read one input character into the cell above", false},
	InsGetBelow:   {"GET_BELOW", "read one input character into the cell below", false},
	InsEOFAbove:   {"EOF_ABOVE", "write EOF into the cell above", false},
	InsEOFBelow:   {"EOF_BELOW", "write EOF into the cell below", false},

	InsDelete:    {"DELETE", "delete the top value of the stack", true},
	InsDuplicate: {"DUPLICATE", "duplicate the top value of the stack", true},
	InsPopAbove:  {"POP_ABOVE", "pop the top of the stack into the cell above", true},
	InsPopBelow:  {"POP_BELOW", "pop the top of the stack into the cell below", true},
	InsAddAbove:  {"ADD_ABOVE", "add the cell above to the top of the stack", true},
	InsAddBelow:  {"ADD_BELOW", "add the cell below to the top of the stack", true},
	InsSubAbove:  {"SUB_ABOVE", "subtract the cell above from the top of the stack", true},
	InsSubBelow:  {"SUB_BELOW", "subtract the cell below from the top of the stack", true},
	InsPushAbove: {"PUSH_ABOVE", "push the cell above onto the stack", false},
	InsPushBelow: {"PUSH_BELOW", "push the cell below onto the stack", false},
	InsTurnIfNeg: {"TURN_IF_NEGATIVE", "turn counter-clockwise if the top of the stack is negative", true},
	InsTurnIfPos: {"TURN_IF_POSITIVE", "turn clockwise if the top of the stack is positive", true},

	InsDirective: {"DIRECTIVE", `behave as "j" when "#!" starts the program`, false},
	InsQuit:      {"QUIT", "end the program", false},
}

// instructionOrder lists the alphabet in documentation order.
var instructionOrder = []Instruction{
	InsLeft, InsRight, InsUp, InsDown,
	InsJumpLeft, InsJumpRight, InsJumpUp, InsJumpDown,
	InsPrintAbove, InsPrintBelow, InsGetAbove, InsGetBelow, InsEOFAbove, InsEOFBelow,
	InsDelete, InsDuplicate, InsPopAbove, InsPopBelow,
	InsAddAbove, InsAddBelow, InsSubAbove, InsSubBelow, InsPushAbove, InsPushBelow,
	InsTurnIfNeg, InsTurnIfPos,
	InsDirective, InsQuit,
}

// Decode maps a cell code to an instruction. The second result is false for
// codes outside the alphabet.
func Decode(code int) (Instruction, bool) {
	if code < 0 || code > 0x7f {
		return 0, false
	}
	ins := Instruction(code)
	_, ok := instructionTable[ins]
	return ins, ok
}

// Info returns the metadata for ins.
func (ins Instruction) Info() (InstructionInfo, bool) {
	info, ok := instructionTable[ins]
	return info, ok
}

// Symbol returns the source symbol of ins.
func (ins Instruction) Symbol() string {
	return string(rune(ins))
}

func (ins Instruction) String() string {
	if info, ok := instructionTable[ins]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(ins))
}

// AllInstructions returns every instruction of the alphabet.
func AllInstructions() []Instruction {
	return append([]Instruction(nil), instructionOrder...)
}
