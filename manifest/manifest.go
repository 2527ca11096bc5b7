// Package manifest handles argh.toml project configuration.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "argh.toml"

// Manifest represents an argh.toml project configuration.
type Manifest struct {
	Program Program      `toml:"program" json:"program"`
	Run     RunConfig    `toml:"run" json:"run"`
	Server  ServerConfig `toml:"server" json:"server"`
	Store   StoreConfig  `toml:"store" json:"store"`

	// Dir is the directory containing the argh.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Program names the program to run.
type Program struct {
	Name   string `toml:"name" json:"name"`
	Source string `toml:"source" json:"source"`
}

// RunConfig configures execution.
type RunConfig struct {
	Directive string `toml:"directive" json:"directive"`
	MaxSteps  int    `toml:"max-steps" json:"max-steps"`
	Echo      *bool  `toml:"echo,omitempty" json:"echo,omitempty"`
}

// ServerConfig configures the runner service.
type ServerConfig struct {
	Port          int    `toml:"port" json:"port"`
	SessionTTL    string `toml:"session-ttl" json:"session-ttl"`
	SweepInterval string `toml:"sweep-interval" json:"sweep-interval"`
}

// StoreConfig configures snapshot and run persistence.
type StoreConfig struct {
	Path string `toml:"path" json:"path"`
}

// Default returns a manifest with every default applied.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Run.Directive == "" {
		m.Run.Directive = "origin"
	}
	if m.Run.Echo == nil {
		echo := true
		m.Run.Echo = &echo
	}
	if m.Server.Port == 0 {
		m.Server.Port = 7070
	}
	if m.Server.SessionTTL == "" {
		m.Server.SessionTTL = "30m"
	}
	if m.Server.SweepInterval == "" {
		m.Server.SweepInterval = "1m"
	}
}

// Load parses an argh.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an argh.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes m as dir/argh.toml. An existing file is not overwritten.
func Write(dir string, m *Manifest) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// SourcePath returns the program source resolved against the manifest
// directory, or "" when none is configured.
func (m *Manifest) SourcePath() string {
	if m.Program.Source == "" {
		return ""
	}
	if filepath.IsAbs(m.Program.Source) {
		return m.Program.Source
	}
	return filepath.Join(m.Dir, m.Program.Source)
}

// StorePath returns the database path resolved against the manifest
// directory, or "" when persistence is disabled.
func (m *Manifest) StorePath() string {
	if m.Store.Path == "" || m.Store.Path == ":memory:" || filepath.IsAbs(m.Store.Path) {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}

// EchoOutput reports whether batch runs print characters as they execute.
// When false the output is written once the run ends.
func (m *Manifest) EchoOutput() bool {
	return m.Run.Echo == nil || *m.Run.Echo
}

// SessionTTL returns the idle lifetime of a server session.
func (m *Manifest) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(m.Server.SessionTTL)
	return d
}

// SweepInterval returns how often idle sessions are swept.
func (m *Manifest) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(m.Server.SweepInterval)
	return d
}
