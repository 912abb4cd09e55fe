package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/observ"
	"loom/internal/trace"
	"loom/internal/vdom"
)

// session is the per-invocation state set up before any subcommand runs.
type session struct {
	cfg      config.Loaded
	timer    *observ.Timer
	color    bool
	quiet    bool
	tracer   trace.Tracer
	cleanups []func()
	ended    bool
}

var current *session

// startSession loads loom.toml, applies flag overrides and starts tracing
// and profiling.
func startSession(cmd *cobra.Command, _ []string) error {
	pf := cmd.Root().PersistentFlags()
	path, err := pf.GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, &loaded.File); err != nil {
		return err
	}
	if err := loaded.File.Validate(); err != nil {
		return err
	}

	s := &session{cfg: loaded, tracer: trace.Nop}
	if s.quiet, err = pf.GetBool("quiet"); err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorFlag, err := pf.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		s.color = true
	case "off":
	case "auto":
		s.color = isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	timings, err := pf.GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		s.timer = observ.NewTimer()
	}
	current = s

	stopTrace, err := setupTracing(cmd, loaded.File.Trace)
	if err != nil {
		return err
	}
	s.cleanups = append(s.cleanups, stopTrace)
	stopProfile, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	s.cleanups = append(s.cleanups, stopProfile)
	return nil
}

// endSession prints timings and runs cleanups once, in reverse order.
func endSession(cmd *cobra.Command) {
	s := current
	if s == nil || s.ended {
		return
	}
	s.ended = true
	if s.timer.Len() > 0 && !s.quiet {
		fmt.Fprint(cmd.ErrOrStderr(), s.timer.Summary())
	}
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
}

func applyFlagOverrides(cmd *cobra.Command, f *config.File) error {
	pf := cmd.Root().PersistentFlags()
	if pf.Changed("inline") {
		v, err := pf.GetBool("inline")
		if err != nil {
			return err
		}
		f.Runtime.InlineTemplates = v
	}
	if pf.Changed("max-diagnostics") {
		v, err := pf.GetInt("max-diagnostics")
		if err != nil {
			return err
		}
		f.Runtime.MaxDiagnostics = v
	}
	for flag, dst := range map[string]*string{
		"trace":       &f.Trace.Output,
		"trace-level": &f.Trace.Level,
		"trace-mode":  &f.Trace.Mode,
	} {
		if !pf.Changed(flag) {
			continue
		}
		v, err := pf.GetString(flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = v
	}
	// An output path alone turns tracing on.
	if pf.Changed("trace") && !pf.Changed("trace-level") && f.Trace.Level == "off" {
		f.Trace.Level = "phase"
	}
	if pf.Changed("trace-ring-size") {
		v, err := pf.GetInt("trace-ring-size")
		if err != nil {
			return err
		}
		f.Trace.RingSize = v
	}
	if pf.Changed("trace-heartbeat") {
		v, err := pf.GetDuration("trace-heartbeat")
		if err != nil {
			return err
		}
		f.Trace.Heartbeat.Duration = v
	}
	return nil
}

// runtimeConfig is the vdom configuration for this invocation.
func (s *session) runtimeConfig() vdom.Config {
	cfg := s.cfg.File.Runtime.VDom()
	cfg.Tracer = s.tracer
	return cfg
}

// info prints a status line unless --quiet is set.
func (s *session) info(w io.Writer, format string, args ...any) {
	if s.quiet {
		return
	}
	fmt.Fprintf(w, format, args...)
}
