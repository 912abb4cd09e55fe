package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/apps"
	"loom/internal/diag"
	"loom/internal/diagfmt"
	"loom/internal/mutation"
)

var demoCmd = &cobra.Command{
	Use:   "demo [name]",
	Short: "Run a scripted demo app and print its mutation scripts",
	Long: `Run a scripted demo app headless. Every scripted action is drained and the
resulting mutation batch is printed. Without a name the available demos are
listed.

Demos: ` + strings.Join(apps.Names(), ", "),
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: apps.Names(),
	RunE:      runDemo,
}

func init() {
	demoCmd.Flags().String("format", "", "script format (text|json|msgpack); default from loom.toml")
	demoCmd.Flags().StringP("out", "o", "", "write scripts to this file instead of stdout")
	demoCmd.Flags().Bool("html", false, "print the document after every step (text format only)")
	demoCmd.Flags().String("ui", "off", "interactive step viewer (auto|on|off)")
	demoCmd.Flags().String("diagnostics", "pretty", "diagnostic output (pretty|json)")
}

func runDemo(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, a := range apps.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s\n", a.Name, a.Summary)
		}
		return nil
	}
	app, err := apps.Lookup(args[0])
	if err != nil {
		return err
	}

	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if formatFlag == "" {
		formatFlag = current.cfg.File.Output.Format
	}
	format, err := mutation.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	showHTML, err := cmd.Flags().GetBool("html")
	if err != nil {
		return fmt.Errorf("failed to get html flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	diagFormat, err := cmd.Flags().GetString("diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get diagnostics flag: %w", err)
	}
	if diagFormat != "pretty" && diagFormat != "json" {
		return fmt.Errorf("unsupported diagnostics format %q (must be pretty or json)", diagFormat)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	} else if format == mutation.FormatMsgpack && isTerminal(os.Stdout) {
		return fmt.Errorf("refusing to write msgpack to a terminal; use --out")
	}
	useUI, err := wantViewer(uiFlag, format, outPath, isTerminal(os.Stdout))
	if err != nil {
		return err
	}
	if useUI && outPath == "" {
		// The viewer owns the terminal.
		out = io.Discard
	}

	enc := mutation.NewEncoder(out, format)
	var writeErr error
	after := func(r apps.Result) {
		if writeErr != nil {
			return
		}
		if format == mutation.FormatText {
			if _, writeErr = fmt.Fprintf(out, "== %s\n", r.Step); writeErr != nil {
				return
			}
		}
		if writeErr = enc.Encode(r.Batch); writeErr != nil {
			return
		}
		if showHTML && format == mutation.FormatText {
			_, writeErr = fmt.Fprint(out, indent(r.Tree, r.Step))
		}
	}

	in := app.Build()
	opts := apps.Options{
		Config: current.runtimeConfig(),
		After:  after,
		Timer:  current.timer,
	}
	var (
		h      *apps.Host
		runErr error
	)
	if useUI {
		h, runErr = runDemoWithUI(demoContext(cmd), app.Name, in, opts)
	} else {
		_, h, runErr = apps.Run(demoContext(cmd), in, opts)
	}
	if writeErr != nil {
		return fmt.Errorf("write scripts: %w", writeErr)
	}
	if h != nil {
		if err := printDiagnostics(cmd, h.Dom.Diagnostics(), diagFormat); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if outPath != "" {
		current.info(cmd.ErrOrStderr(), "wrote %s scripts for %s to %s\n", format, app.Name, outPath)
	}
	return nil
}

// indent renders the document of a step below its script.
func indent(tree, step string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- document after %s\n", step)
	for line := range strings.SplitSeq(strings.TrimRight(tree, "\n"), "\n") {
		sb.WriteString("   ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag, format string) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	bag.Sort()
	if format == "json" {
		return diagfmt.JSON(cmd.ErrOrStderr(), bag, diagfmt.JSONOpts{IncludeNotes: true, Indent: true})
	}
	diagfmt.Pretty(cmd.ErrOrStderr(), bag, diagfmt.PrettyOpts{
		Color:     current.color,
		Width:     100,
		ShowNotes: true,
		ShowTitle: true,
	})
	return nil
}

// demoContext is the command context, or Background when cobra ran without
// one.
func demoContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// wantViewer decides whether the step viewer runs. In auto mode it only
// takes the terminal when stdout is one and the scripts are not meant for
// it: a machine format on stdout with no --out is left for a pipe reader.
func wantViewer(mode string, format mutation.Format, outPath string, stdoutTTY bool) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "on":
		return true, nil
	case "", "off":
		return false, nil
	case "auto":
		if !stdoutTTY {
			return false, nil
		}
		return outPath != "" || format == mutation.FormatText, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", mode)
	}
}
