package vm

import "io"

// ---------------------------------------------------------------------------
// Dispatcher: per-instruction semantics
// ---------------------------------------------------------------------------
//
// Upper-case I/O and stack instructions address the cell above the pointer,
// lower-case ones the cell below. Every arm either completes its whole
// effect or records a diagnostic without touching anything else.

// execute runs the instruction with the given (printable) code.
func (in *Interpreter) execute(code int, batch bool) {
	ins := Instruction(code)
	ax, ay := in.x, in.y-1 // above
	bx, by := in.x, in.y+1 // below

	switch ins {
	case InsLeft:
		in.dx, in.dy = -1, 0
	case InsRight:
		in.dx, in.dy = 1, 0
	case InsUp:
		in.dx, in.dy = 0, -1
	case InsDown:
		in.dx, in.dy = 0, 1

	case InsJumpLeft:
		in.jump(-1, 0)
	case InsJumpRight:
		in.jump(1, 0)
	case InsJumpUp:
		in.jump(0, -1)
	case InsJumpDown:
		in.jump(0, 1)

	case InsPrintAbove:
		in.print(ax, ay, batch)
	case InsPrintBelow:
		in.print(bx, by, batch)

	case InsGetAbove:
		in.read(ax, ay)
	case InsGetBelow:
		in.read(bx, by)

	case InsEOFAbove:
		in.grid.Put(ax, ay, EOT)
	case InsEOFBelow:
		in.grid.Put(bx, by, EOT)

	case InsDelete:
		if len(in.stack) == 0 {
			in.err = stackUnderflow()
			return
		}
		in.stack = in.stack[:len(in.stack)-1]
	case InsDuplicate:
		if len(in.stack) == 0 {
			in.err = stackUnderflow()
			return
		}
		in.stack = append(in.stack, in.stack[len(in.stack)-1])

	case InsPopAbove:
		in.popTo(ax, ay)
	case InsPopBelow:
		in.popTo(bx, by)

	case InsAddAbove:
		in.combine(ax, ay, 1)
	case InsAddBelow:
		in.combine(bx, by, 1)
	case InsSubAbove:
		in.combine(ax, ay, -1)
	case InsSubBelow:
		in.combine(bx, by, -1)

	case InsPushAbove:
		in.push(ax, ay)
	case InsPushBelow:
		in.push(bx, by)

	case InsTurnIfNeg:
		if len(in.stack) == 0 {
			in.err = stackUnderflow()
			return
		}
		if in.stack[len(in.stack)-1] < 0 {
			in.rotate(false)
		}
	case InsTurnIfPos:
		if len(in.stack) == 0 {
			in.err = stackUnderflow()
			return
		}
		if in.stack[len(in.stack)-1] > 0 {
			in.rotate(true)
		}

	case InsDirective:
		if !in.directiveApplies() {
			in.err = invalidInstruction(code)
			return
		}
		in.dx, in.dy = 0, 1

	case InsQuit:
		// Done is derived from the cell under the pointer.

	default:
		in.err = invalidInstruction(code)
	}
}

// print appends the character at (x, y) to the output buffer.
func (in *Interpreter) print(x, y int, batch bool) {
	code, ok := in.grid.Get(x, y)
	if !ok {
		in.err = readOutOfBounds()
		return
	}
	if !IsRepresentable(code) {
		in.err = unprintable(code)
		return
	}
	ch := Character(code)
	in.stdout.WriteString(ch)
	if batch && in.out != nil {
		io.WriteString(in.out, ch)
	}
}

// read moves one queued input code into (x, y), or flags that input is
// needed. The pointer stays put in the latter case so the instruction runs
// again on the next step.
func (in *Interpreter) read(x, y int) {
	code, ok := in.input.Pop()
	if !ok {
		in.needsInput = true
		return
	}
	in.grid.Put(x, y, code)
}

// popTo pops the stack top into (x, y).
func (in *Interpreter) popTo(x, y int) {
	if len(in.stack) == 0 {
		in.err = stackUnderflow()
		return
	}
	top := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	in.grid.Put(x, y, top)
}

// combine adds sign*(cell at x, y) to the stack top in place.
func (in *Interpreter) combine(x, y, sign int) {
	if len(in.stack) == 0 {
		in.err = stackUnderflow()
		return
	}
	code, ok := in.grid.Get(x, y)
	if !ok {
		in.err = readOutOfBounds()
		return
	}
	in.stack[len(in.stack)-1] += sign * code
}

// push pushes the cell at (x, y).
func (in *Interpreter) push(x, y int) {
	code, ok := in.grid.Get(x, y)
	if !ok {
		in.err = readOutOfBounds()
		return
	}
	in.stack = append(in.stack, code)
}
