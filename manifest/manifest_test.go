package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
name = "hello"
source = "src/hello.argh"

[run]
directive = "anywhere"
max-steps = 5000
echo = true

[server]
port = 9090
session-ttl = "10m"
sweep-interval = "30s"

[store]
path = ".argh/runs.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Program.Name != "hello" {
		t.Errorf("program name = %q, want hello", m.Program.Name)
	}
	if m.SourcePath() != filepath.Join(m.Dir, "src", "hello.argh") {
		t.Errorf("SourcePath() = %q", m.SourcePath())
	}
	if m.Run.Directive != "anywhere" {
		t.Errorf("run directive = %q, want anywhere", m.Run.Directive)
	}
	if m.Run.MaxSteps != 5000 {
		t.Errorf("run max-steps = %d, want 5000", m.Run.MaxSteps)
	}
	if !m.EchoOutput() {
		t.Error("EchoOutput() = false, want true")
	}
	if m.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", m.Server.Port)
	}
	if m.SessionTTL() != 10*time.Minute {
		t.Errorf("SessionTTL() = %v, want 10m", m.SessionTTL())
	}
	if m.SweepInterval() != 30*time.Second {
		t.Errorf("SweepInterval() = %v, want 30s", m.SweepInterval())
	}
	if m.StorePath() != filepath.Join(m.Dir, ".argh", "runs.db") {
		t.Errorf("StorePath() = %q", m.StorePath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Run.Directive != "origin" {
		t.Errorf("default directive = %q, want origin", m.Run.Directive)
	}
	if m.Server.Port != 7070 {
		t.Errorf("default port = %d, want 7070", m.Server.Port)
	}
	if m.SessionTTL() != 30*time.Minute {
		t.Errorf("default SessionTTL() = %v, want 30m", m.SessionTTL())
	}
	if m.StorePath() != "" {
		t.Errorf("default StorePath() = %q, want empty", m.StorePath())
	}
	if m.SourcePath() != "" {
		t.Errorf("default SourcePath() = %q, want empty", m.SourcePath())
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad directive", "[run]\ndirective = \"sideways\"\n", "directive"},
		{"negative steps", "[run]\nmax-steps = -1\n", "max-steps"},
		{"port range", "[server]\nport = 70000\n", "port"},
		{"bad duration", "[server]\nsession-ttl = \"soon\"\n", "session-ttl"},
		{"syntax", "[run\n", "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[program]\nname = \"found-project\"\n")

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Program.Name != "found-project" {
		t.Errorf("program name = %q, want found-project", m.Program.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no argh.toml exists")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Default()
	m.Program.Name = "written"
	m.Run.MaxSteps = 42

	path, err := Write(dir, m)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Errorf("Write path = %q", path)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Program.Name != "written" || loaded.Run.MaxSteps != 42 {
		t.Errorf("loaded = %+v", loaded)
	}

	if _, err := Write(dir, m); err == nil {
		t.Error("second Write should refuse to overwrite")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestAbsolutePaths(t *testing.T) {
	m := &Manifest{
		Dir:     "/app",
		Program: Program{Source: "/abs/p.argh"},
		Store:   StoreConfig{Path: ":memory:"},
	}
	if m.SourcePath() != "/abs/p.argh" {
		t.Errorf("SourcePath() = %q", m.SourcePath())
	}
	if m.StorePath() != ":memory:" {
		t.Errorf("StorePath() = %q", m.StorePath())
	}
}

func TestEchoDefaultsOn(t *testing.T) {
	if !Default().EchoOutput() {
		t.Error("default EchoOutput() = false, want true")
	}

	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
name = "quiet"

[run]
echo = false
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.EchoOutput() {
		t.Error("EchoOutput() = true with echo = false")
	}
}
