package server

import (
	"errors"
	"fmt"
)

// ErrWorkerStopped is returned by Worker.Do after Stop.
var ErrWorkerStopped = errors.New("worker stopped")

// workRequest represents a unit of work to be executed on the worker
// goroutine.
type workRequest struct {
	fn   func() interface{}
	done chan workResult
}

// workResult holds the return value from a worker operation.
type workResult struct {
	value interface{}
	err   error
}

// Worker serializes all interpreter access through a single goroutine.
// Interpreters are not safe for concurrent use; every RPC handler that
// touches one must go through the worker.
type Worker struct {
	requests chan workRequest
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func() interface{}) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn()
	}()
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func() interface{}) (interface{}, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. Pending and later calls to Do
// return ErrWorkerStopped.
func (w *Worker) Stop() {
	close(w.quit)
}
