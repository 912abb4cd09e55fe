package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"loom/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "loom retained-mode UI runtime toolkit",
	Long: `loom drives the retained-mode UI runtime headless: it runs scripted demo
apps, prints and replays the mutation scripts they produce and benchmarks
the reconciler.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: startSession,
	PersistentPostRun: func(cmd *cobra.Command, _ []string) { endSession(cmd) },
}

// main registers subcommands and persistent flags, then executes the root
// command. A failing command exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("config", "", "path to loom.toml (default: search upwards from the working directory)")
	pf.Bool("inline", false, "expand templates inline instead of registering and cloning them")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics kept (0 = config value)")

	pf.String("trace", "", "write a trace to this file (- for stderr)")
	pf.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 0, "ring buffer size for --trace-mode=ring")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat trace events at this interval")

	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go execution trace to this file")

	if err := rootCmd.Execute(); err != nil {
		dumpTraceRing(os.Stderr)
		endSession(rootCmd)
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "error:", msg)
		}
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
