package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"loom/internal/apps"
	"loom/internal/vdom"
)

var inspectCmd = &cobra.Command{
	Use:       "inspect <demo>",
	Short:     "Run a demo and print the runtime's scope and table statistics",
	Args:      cobra.ExactArgs(1),
	ValidArgs: apps.Names(),
	RunE:      runInspect,
}

func init() {
	inspectCmd.Flags().Bool("steps", false, "print table sizes after every step")
	inspectCmd.Flags().Bool("tree", false, "print the final document")
}

func runInspect(cmd *cobra.Command, args []string) error {
	app, err := apps.Lookup(args[0])
	if err != nil {
		return err
	}
	showSteps, err := cmd.Flags().GetBool("steps")
	if err != nil {
		return fmt.Errorf("failed to get steps flag: %w", err)
	}
	showTree, err := cmd.Flags().GetBool("tree")
	if err != nil {
		return fmt.Errorf("failed to get tree flag: %w", err)
	}

	results, h, err := apps.Run(demoContext(cmd), app.Build(), apps.Options{
		Config: current.runtimeConfig(),
		Timer:  current.timer,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if showSteps {
		steps := tablewriter.NewWriter(out)
		steps.SetHeader([]string{"step", "edits", "scopes", "elements", "tasks", "renders"})
		for _, r := range results {
			steps.Append([]string{
				r.Step,
				humanize.Comma(int64(len(r.Batch.Edits))),
				strconv.Itoa(r.Stats.Scopes),
				strconv.Itoa(r.Stats.Elements),
				strconv.Itoa(r.Stats.Tasks),
				humanize.Comma(int64(r.Stats.Renders)),
			})
		}
		steps.Render()
		fmt.Fprintln(out)
	}

	scopes := tablewriter.NewWriter(out)
	scopes.SetHeader([]string{"scope", "component", "parent", "height", "hooks", "renders", "tasks", "children", "template", "boundary", "suspended"})
	h.Dom.EachScope(func(s vdom.ScopeInfo) {
		parent := "-"
		if s.HasParent {
			parent = s.Parent.String()
		}
		boundary, suspended := "", ""
		if s.Boundary {
			boundary = "yes"
		}
		if s.Suspended {
			suspended = "yes"
		}
		scopes.Append([]string{
			s.ID.String(),
			s.Name,
			parent,
			strconv.Itoa(s.Height),
			strconv.Itoa(s.Hooks),
			strconv.Itoa(s.Renders),
			strconv.Itoa(s.Tasks),
			strconv.Itoa(s.Children),
			s.Template,
			boundary,
			suspended,
		})
	})
	scopes.Render()
	fmt.Fprintln(out)

	st := h.Dom.Stats()
	bound, nodes, err := h.Doc.Stats()
	if err != nil {
		return err
	}
	totals := tablewriter.NewWriter(out)
	totals.SetHeader([]string{"counter", "value"})
	for _, row := range [][2]string{
		{"scopes", strconv.Itoa(st.Scopes)},
		{"elements", strconv.Itoa(st.Elements)},
		{"tasks", strconv.Itoa(st.Tasks)},
		{"templates", strconv.Itoa(st.Templates)},
		{"renders", humanize.Comma(int64(st.Renders))},
		{"cycles", humanize.Comma(int64(st.Cycles))},
		{"edits", humanize.Comma(int64(st.Edits))},
		{"polls", humanize.Comma(int64(st.Polls))},
		{"events", humanize.Comma(int64(st.Events))},
		{"diagnostics", strconv.Itoa(st.Diagnostics)},
		{"repeats suppressed", strconv.Itoa(st.Suppressed)},
		{"document nodes", humanize.Comma(int64(nodes))},
		{"bound ids", humanize.Comma(int64(bound))},
	} {
		totals.Append(row[:])
	}
	totals.Render()

	if showTree {
		fmt.Fprintln(out)
		fmt.Fprint(out, h.Doc.Indented())
	}
	return printDiagnostics(cmd, h.Dom.Diagnostics(), "pretty")
}
