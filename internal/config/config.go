// Package config loads loom.toml, the runtime and tooling settings shared by
// the CLI commands. Files are found by walking up from the working
// directory; command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"loom/internal/mutation"
	"loom/internal/trace"
	"loom/internal/vdom"
)

// FileName is the configuration file looked up by Find.
const FileName = "loom.toml"

// File mirrors the sections of loom.toml.
type File struct {
	Runtime Runtime `toml:"runtime"`
	Trace   Trace   `toml:"trace"`
	Output  Output  `toml:"output"`
}

// Runtime configures a VirtualDom.
type Runtime struct {
	InlineTemplates    bool `toml:"inline_templates"`
	NormalizeText      bool `toml:"normalize_text"`
	CheckThread        bool `toml:"check_thread"`
	MaxDrainIterations int  `toml:"max_drain_iterations"`
	MaxDiagnostics     int  `toml:"max_diagnostics"`
}

// Trace configures the tracer.
type Trace struct {
	Level     string   `toml:"level"`
	Mode      string   `toml:"mode"`
	Output    string   `toml:"output"`
	RingSize  int      `toml:"ring_size"`
	Heartbeat Duration `toml:"heartbeat"`
}

// Output selects how scripts are printed.
type Output struct {
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the values used when no file is present.
func Default() File {
	return File{
		Runtime: Runtime{
			CheckThread:        true,
			MaxDrainIterations: 10000,
			MaxDiagnostics:     256,
		},
		Trace: Trace{
			Level:    "off",
			Mode:     "stream",
			RingSize: 4096,
		},
		Output: Output{Format: "text"},
	}
}

// Loaded is a decoded file with its origin. Path is empty when defaults
// were used.
type Loaded struct {
	Path string
	File File
}

// Find walks from startDir up to the filesystem root looking for loom.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults. An empty path searches from the
// working directory and falls back to Default when nothing is found.
func Load(path string) (Loaded, error) {
	if path == "" {
		found, ok, err := Find(".")
		if err != nil {
			return Loaded{}, err
		}
		if !ok {
			return Loaded{File: Default()}, nil
		}
		path = found
	}
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Loaded{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Loaded{}, fmt.Errorf("%s: %w", path, err)
	}
	return Loaded{Path: path, File: cfg}, nil
}

// Validate checks enumerations and bounds.
func (f File) Validate() error {
	if f.Runtime.MaxDrainIterations <= 0 {
		return fmt.Errorf("[runtime].max_drain_iterations must be positive")
	}
	if f.Runtime.MaxDiagnostics < 0 {
		return fmt.Errorf("[runtime].max_diagnostics must not be negative")
	}
	if _, err := trace.ParseLevel(f.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(f.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if _, err := mutation.ParseFormat(f.Output.Format); err != nil {
		return fmt.Errorf("[output].format: %w", err)
	}
	return nil
}

// VDom converts the runtime section into a vdom.Config.
func (r Runtime) VDom() vdom.Config {
	return vdom.Config{
		InlineTemplates:    r.InlineTemplates,
		NormalizeText:      r.NormalizeText,
		CheckThread:        r.CheckThread,
		MaxDrainIterations: r.MaxDrainIterations,
		MaxDiagnostics:     r.MaxDiagnostics,
	}
}

// Tracer converts the trace section into a trace.Config.
func (t Trace) Tracer() (trace.Config, error) {
	level, err := trace.ParseLevel(t.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(t.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: t.Output,
		RingSize:   t.RingSize,
		Heartbeat:  t.Heartbeat.Duration,
	}, nil
}

// Encode renders f as TOML, the form written by Init.
func (f File) Encode() (string, error) {
	var sb strings.Builder
	sb.WriteString("# loom runtime configuration\n")
	if err := toml.NewEncoder(&sb).Encode(f); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Init writes a default loom.toml into dir. It refuses to overwrite an
// existing file.
func Init(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	body, err := Default().Encode()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return path, nil
}
