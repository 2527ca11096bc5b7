package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/arghonaut/server"
	"github.com/chazu/arghonaut/vm"
)

var errInputAfterEOF = errors.New("tried to read input after EOF")

// lineFeeder supplies program input one line at a time. The end of the
// reader is reported once as EOT; asking again is an error.
type lineFeeder struct {
	r   *bufio.Reader
	eof bool
}

func newLineFeeder(r io.Reader) *lineFeeder {
	return &lineFeeder{r: bufio.NewReader(r)}
}

// next returns the text to queue, or eot=true when input is exhausted.
func (f *lineFeeder) next() (text string, eot bool, err error) {
	if f.eof {
		return "", false, errInputAfterEOF
	}
	line, err := f.r.ReadString('\n')
	if line != "" {
		return strings.TrimSuffix(line, "\n") + "\n", false, nil
	}
	if err != nil && err != io.EOF {
		return "", false, fmt.Errorf("reading input: %w", err)
	}
	f.eof = true
	return "", true, nil
}

// runBatch steps interp to completion, feeding it lines from stdin. With
// echo set, printed characters go to the interpreter's output as they
// execute; otherwise everything printed is written to out when the run
// ends. Diagnostics go to errOut as "Argh! <message>". It returns the
// process exit code.
func runBatch(interp *vm.Interpreter, stdin io.Reader, out, errOut io.Writer, maxSteps int, echo bool) int {
	if !echo {
		defer func() { io.WriteString(out, interp.Stdout()) }()
	}
	feeder := newLineFeeder(stdin)
	for !interp.Done() && interp.Err() == nil {
		if maxSteps > 0 && interp.Steps() >= maxSteps {
			fmt.Fprintf(errOut, "Argh! stopped after %d steps\n", interp.Steps())
			return 1
		}
		interp.Step(echo)
		if !interp.NeedsInput() {
			continue
		}
		text, eot, err := feeder.next()
		if err != nil {
			fmt.Fprintf(errOut, "Argh! %s\n", err)
			return 1
		}
		if eot {
			interp.InputChar(vm.EOT)
		} else {
			interp.InputString(text)
		}
	}

	if err := interp.Err(); err != nil {
		fmt.Fprintf(errOut, "Argh! %s\n", err)
		return 1
	}
	return 0
}

// remoteRun describes a program to execute on a runner service.
type remoteRun struct {
	name      string
	lines     []string
	directive string
	maxSteps  int
}

// runRemote executes a program on a runner service with the same input
// protocol and exit codes as runBatch.
func runRemote(ctx context.Context, client *server.RunnerClient, r remoteRun, stdin io.Reader, stdout, errOut io.Writer) int {
	state, err := client.CreateSession(ctx, &server.CreateSessionRequest{
		Name:      r.name,
		Source:    strings.Join(r.lines, "\n"),
		Directive: r.directive,
	})
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	id := state.SessionID
	defer func() {
		if err := client.DestroySession(context.WithoutCancel(ctx), &server.SessionRequest{SessionID: id}); err != nil {
			log.Warningf("destroying remote session %s: %s", id, err)
		}
	}()
	log.Infof("remote session %s", id)

	feeder := newLineFeeder(stdin)
	printed := 0
	for {
		limit := 0
		if r.maxSteps > 0 {
			limit = r.maxSteps - state.Steps
			if limit <= 0 {
				fmt.Fprintf(errOut, "Argh! stopped after %d steps\n", state.Steps)
				return 1
			}
		}
		state, err = client.Run(ctx, &server.RunRequest{SessionID: id, MaxSteps: limit})
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			return 1
		}
		io.WriteString(stdout, state.Stdout[printed:])
		printed = len(state.Stdout)

		switch state.Status {
		case vm.StatusDone.String():
			return 0
		case vm.StatusErrored.String():
			fmt.Fprintf(errOut, "Argh! %s\n", state.Error)
			return 1
		case vm.StatusRunning.String():
			fmt.Fprintf(errOut, "Argh! stopped after %d steps\n", state.Steps)
			return 1
		}

		text, eot, err := feeder.next()
		if err != nil {
			fmt.Fprintf(errOut, "Argh! %s\n", err)
			return 1
		}
		state, err = client.Input(ctx, &server.InputRequest{SessionID: id, Text: text, EOF: eot})
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			return 1
		}
	}
}
