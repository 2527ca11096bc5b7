package vm

// InputQueue buffers codes supplied by the driver until an input
// instruction consumes them. EOT may be queued like any other code.
type InputQueue struct {
	codes []int
}

// Push appends a code to the back of the queue.
func (q *InputQueue) Push(code int) {
	q.codes = append(q.codes, code)
}

// Pop removes and returns the front code. The second result is false when
// the queue is empty.
func (q *InputQueue) Pop() (int, bool) {
	if len(q.codes) == 0 {
		return 0, false
	}
	code := q.codes[0]
	q.codes = q.codes[1:]
	if len(q.codes) == 0 {
		q.codes = nil
	}
	return code, true
}

// Len returns the number of pending codes.
func (q *InputQueue) Len() int {
	return len(q.codes)
}

// Clear drops every pending code.
func (q *InputQueue) Clear() {
	q.codes = nil
}

// Values returns a copy of the pending codes, front first.
func (q *InputQueue) Values() []int {
	return append([]int(nil), q.codes...)
}
