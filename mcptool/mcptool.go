// Package mcptool exposes the interpreter to Model Context Protocol clients.
package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tliron/commonlog"

	"github.com/chazu/arghonaut/vm"
)

var log = commonlog.GetLogger("argh.mcp")

// DefaultMaxSteps bounds run_argh when the caller gives no limit.
const DefaultMaxSteps = 100000

type RunInput struct {
	Source    string `json:"source" jsonschema:"Argh! program source, one grid row per line"`
	Input     string `json:"input,omitempty" jsonschema:"text read by the program, one line per line of input; a final newline is added if missing and end of input follows it"`
	MaxSteps  int    `json:"max_steps,omitempty" jsonschema:"maximum number of instructions to execute"`
	Directive string `json:"directive,omitempty" jsonschema:"where #! acts as j: origin (default) or anywhere"`
}

type RunOutput struct {
	Status string `json:"status"`
	Stdout string `json:"stdout"`
	Error  string `json:"error,omitempty"`
	Stack  []int  `json:"stack"`
	Steps  int    `json:"steps"`
}

type CheckInput struct {
	Source string `json:"source" jsonschema:"Argh! program source"`
}

// Issue is a lint finding with one-based line and column.
type Issue struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type CheckOutput struct {
	Issues []Issue `json:"issues"`
}

type DescribeInput struct{}

type InstructionDoc struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type DescribeOutput struct {
	Instructions []InstructionDoc `json:"instructions"`
}

// NewServer creates an MCP server with the run_argh, check_argh and
// describe_instructions tools registered.
func NewServer(version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "argh", Version: version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_argh",
		Description: "Run an Argh! program to completion and return its output, final stack and status.",
	}, runArgh)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "check_argh",
		Description: "Statically check an Argh! program for problems without running it.",
	}, checkArgh)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "describe_instructions",
		Description: "List the Argh! instruction set.",
	}, describeInstructions)

	return s
}

// Serve runs the MCP server on stdio until the client disconnects or ctx is
// cancelled.
func Serve(ctx context.Context, version string) error {
	log.Info("serving MCP on stdio")
	return NewServer(version).Run(ctx, &mcp.StdioTransport{})
}

func runArgh(ctx context.Context, req *mcp.CallToolRequest, in RunInput) (*mcp.CallToolResult, RunOutput, error) {
	mode, err := vm.ParseDirectiveMode(in.Directive)
	if err != nil {
		return nil, RunOutput{}, err
	}
	limit := in.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	return nil, Run(vm.ParseSource(in.Source), in.Input, limit, mode), nil
}

// Run executes lines with input queued up front followed by end of input.
// Input is terminated by a newline as the command-line batch driver
// terminates every line it reads, and a program that asks for more input
// after end of input stops with an error, as there.
func Run(lines []string, input string, maxSteps int, mode vm.DirectiveMode) RunOutput {
	if input != "" && !strings.HasSuffix(input, "\n") {
		input += "\n"
	}
	interp := vm.New(lines, vm.WithDirective(mode))
	interp.InputString(input)
	interp.InputChar(vm.EOT)
	interp.Run(maxSteps)

	out := RunOutput{
		Status: interp.Status().String(),
		Stdout: interp.Stdout(),
		Stack:  interp.Stack(),
		Steps:  interp.Steps(),
	}
	if out.Stack == nil {
		out.Stack = []int{}
	}
	switch {
	case interp.Err() != nil:
		out.Error = interp.Err().Error()
	case interp.NeedsInput():
		out.Error = "tried to read input after EOF"
	case !interp.Blocked():
		out.Error = fmt.Sprintf("stopped after %d steps", maxSteps)
	}
	log.Debugf("run_argh: %s after %d steps", out.Status, out.Steps)
	return out
}

func checkArgh(ctx context.Context, req *mcp.CallToolRequest, in CheckInput) (*mcp.CallToolResult, CheckOutput, error) {
	out := CheckOutput{Issues: []Issue{}}
	for _, issue := range vm.Check(vm.ParseSource(in.Source)) {
		out.Issues = append(out.Issues, Issue{
			Line:     issue.Line + 1,
			Column:   issue.Column + 1,
			Severity: issue.Severity.String(),
			Message:  issue.Message,
		})
	}
	return nil, out, nil
}

func describeInstructions(ctx context.Context, req *mcp.CallToolRequest, in DescribeInput) (*mcp.CallToolResult, DescribeOutput, error) {
	var out DescribeOutput
	for _, ins := range vm.AllInstructions() {
		info, _ := ins.Info()
		out.Instructions = append(out.Instructions, InstructionDoc{
			Symbol:  ins.Symbol(),
			Name:    info.Name,
			Summary: info.Summary,
		})
	}
	return nil, out, nil
}
