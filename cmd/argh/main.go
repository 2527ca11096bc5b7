// Argh! CLI - runs, checks and serves Argh! programs
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/chazu/arghonaut/manifest"
	"github.com/chazu/arghonaut/mcptool"
	"github.com/chazu/arghonaut/server"
	"github.com/chazu/arghonaut/snapshot"
	"github.com/chazu/arghonaut/store"
	"github.com/chazu/arghonaut/vm"
)

const version = "0.1.0"

var log = commonlog.GetLogger("argh.cli")

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return fmt.Sprint(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(string) error { *v++; return nil }

func main() {
	var verbose verbosity
	flag.Var(&verbose, "v", "Verbose logging (repeat for more)")
	logPath := flag.String("log", "", "Write log output to `FILE` instead of stderr")
	batch := flag.Bool("b", false, "Run in batch mode (no visualizer)")
	interactive := flag.Bool("i", false, "Start the interactive visualizer even when stdin is not a terminal")
	directive := flag.String("directive", "", "Where #! acts as j: origin or anywhere")
	maxSteps := flag.Int("max-steps", -1, "Stop batch runs after `N` instructions (0 means no limit)")
	check := flag.Bool("check", false, "Check the program for problems without running it")
	serveMode := flag.Bool("serve", false, "Start the runner service (Connect HTTP/JSON)")
	servePort := flag.Int("port", 0, "Runner service port (used with -serve)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	mcpMode := flag.Bool("mcp", false, "Start the MCP tool server on stdio")
	dbPath := flag.String("db", "", "SQLite `PATH` for snapshots and run history")
	saveName := flag.String("save", "", "Save the final state of a batch run as snapshot `NAME` (needs -db)")
	remote := flag.String("remote", "", "Run the program on the runner service at `URL`")
	initName := flag.String("init", "", "Write an argh.toml for program `NAME` in the current directory")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: argh [options] [FILE]\n\n")
		fmt.Fprintf(os.Stderr, "Runs an Argh! program, in the visualizer when attached to a terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  argh hello.agh              # Visualize and step through hello.agh\n")
		fmt.Fprintf(os.Stderr, "  argh -b cat.agh < in.txt    # Run in batch mode\n")
		fmt.Fprintf(os.Stderr, "  argh -check hello.agh       # Report problems without running\n")
		fmt.Fprintf(os.Stderr, "  argh -serve -db argh.db     # Start the runner service on :7070\n")
		fmt.Fprintf(os.Stderr, "  argh -remote http://localhost:7070 hello.agh\n")
	}
	flag.Parse()

	commonlog.Configure(int(verbose), optionalPath(*logPath))

	cwd, err := os.Getwd()
	if err != nil {
		fatalf("Error: %v", err)
	}
	if *initName != "" {
		os.Exit(initProject(cwd, *initName, flag.Arg(0)))
	}

	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if m == nil {
		m = manifest.Default()
		m.Dir = cwd
	} else {
		log.Infof("using %s", filepath.Join(m.Dir, manifest.FileName))
	}

	// Flags override the manifest.
	if *directive != "" {
		m.Run.Directive = *directive
	}
	if *maxSteps >= 0 {
		m.Run.MaxSteps = *maxSteps
	}
	if *servePort != 0 {
		m.Server.Port = *servePort
	}
	storePath := m.StorePath()
	if *dbPath != "" {
		storePath = *dbPath
	}

	mode, err := vm.ParseDirectiveMode(m.Run.Directive)
	if err != nil {
		fatalf("Error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Servers that need no program.
	switch {
	case *lspMode:
		if err := server.NewLSP().Run(); err != nil {
			fatalf("Language server error: %v", err)
		}
		return
	case *mcpMode:
		if err := mcptool.Serve(ctx, version); err != nil && !errors.Is(err, context.Canceled) {
			fatalf("MCP server error: %v", err)
		}
		return
	case *serveMode:
		os.Exit(serve(m, storePath, mode))
	}

	path := flag.Arg(0)
	if path == "" {
		path = m.SourcePath()
	}
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}
	lines, err := readLines(path)
	if err != nil {
		fatalf("Error: %v", err)
	}

	if *check {
		os.Exit(checkProgram(os.Stdout, path, lines))
	}

	if *remote != "" {
		client := server.NewRunnerClient(http.DefaultClient, *remote)
		os.Exit(runRemote(ctx, client, remoteRun{
			name:      filepath.Base(path),
			lines:     lines,
			directive: mode.String(),
			maxSteps:  m.Run.MaxSteps,
		}, os.Stdin, os.Stdout, os.Stderr))
	}

	if !*batch && (*interactive || term.IsTerminal(int(os.Stdin.Fd()))) {
		p := tea.NewProgram(newModel(lines, vm.WithDirective(mode)), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fatalf("Error: %v", err)
		}
		return
	}

	interp := vm.New(lines, vm.WithDirective(mode), vm.WithOutput(os.Stdout))
	code := runBatch(interp, os.Stdin, os.Stdout, os.Stderr, m.Run.MaxSteps, m.EchoOutput())

	if storePath != "" {
		if err := persist(ctx, storePath, lines, interp, *saveName); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	} else if *saveName != "" {
		fmt.Fprintf(os.Stderr, "Warning: -save needs -db or [store] path\n")
	}
	os.Exit(code)
}

func optionalPath(path string) *string {
	if path == "" {
		return nil
	}
	return &path
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// readLines reads the file at path as program lines.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vm.ParseSource(string(data)), nil
}

// checkProgram prints lint issues and returns 1 if any is an error.
func checkProgram(w io.Writer, path string, lines []string) int {
	code := 0
	for _, issue := range vm.Check(lines) {
		fmt.Fprintf(w, "%s:%s\n", path, issue)
		if issue.Severity == vm.SeverityError {
			code = 1
		}
	}
	return code
}

func initProject(dir, name, source string) int {
	m := manifest.Default()
	m.Program.Name = name
	m.Program.Source = source
	if source == "" {
		m.Program.Source = name + ".agh"
	}
	path, err := manifest.Write(dir, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", path)
	return 0
}

func serve(m *manifest.Manifest, storePath string, mode vm.DirectiveMode) int {
	opts := []server.Option{
		server.WithSessionTTL(m.SessionTTL(), m.SweepInterval()),
		server.WithDirective(mode),
	}
	if m.Run.MaxSteps > 0 {
		opts = append(opts, server.WithMaxSteps(m.Run.MaxSteps))
	}
	if storePath != "" {
		st, err := store.Open(storePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer st.Close()
		opts = append(opts, server.WithStore(st))
	}

	srv := server.New(opts...)
	defer srv.Stop()
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", m.Server.Port)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

// persist records a finished batch run and, if name is set, saves the final
// state as a snapshot.
func persist(ctx context.Context, path string, lines []string, interp *vm.Interpreter, name string) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	run := store.Run{
		ProgramHash: snapshot.ProgramHash(lines),
		Status:      interp.Status().String(),
		Stdout:      interp.Stdout(),
		Steps:       interp.Steps(),
	}
	if err := interp.Err(); err != nil {
		run.Error = err.Error()
	}
	if run, err = st.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	log.Infof("recorded run %s", run.ID)

	if name == "" {
		return nil
	}
	hash, err := st.SaveSnapshot(ctx, name, snapshot.Capture(interp))
	if err != nil {
		return fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	log.Infof("saved snapshot %s (%s)", name, shortHash(hash))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
