package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/trace"
)

// setupTracing builds the tracer described by the merged trace settings,
// attaches it to the command context and returns its cleanup.
func setupTracing(cmd *cobra.Command, tc config.Trace) (func(), error) {
	cfg, err := tc.Tracer()
	if err != nil {
		return nil, fmt.Errorf("invalid trace settings: %w", err)
	}

	// If level is off and no output specified, skip tracing
	if cfg.Level == trace.LevelOff && cfg.OutputPath == "" {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)
	if current != nil {
		current.tracer = tracer
	}

	var heartbeat *trace.Heartbeat
	if cfg.Heartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, cfg.Heartbeat)
	}

	cleanup := func() {
		// Stop heartbeat first
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpTraceRing writes the events kept by a ring tracer after a command
// failed. Stream tracers have already written theirs.
func dumpTraceRing(w io.Writer) {
	if current == nil {
		return
	}
	ring, ok := trace.Ring(current.tracer)
	if !ok {
		return
	}
	events := ring.Snapshot()
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(w, "trace: last %d events", len(events))
	if n := ring.Dropped(); n > 0 {
		fmt.Fprintf(w, " (%d older dropped)", n)
	}
	fmt.Fprintln(w)
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}
