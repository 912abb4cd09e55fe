package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/mutation"
	"loom/internal/template"
	"loom/internal/vdom"
	"loom/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the loom version and the renderer protocol it speaks",
	Long: `Print the CLI version. --protocol adds what a renderer backend must
support to apply this build's scripts: the mutation vocabulary, the wire
formats and the templates registered at startup. --runtime adds the runtime
settings in effect after loom.toml and flags are applied.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().Bool("protocol", false, "list mutation ops, wire formats and built-in templates")
	versionCmd.Flags().Bool("runtime", false, "show the effective runtime settings")
	versionCmd.Flags().Bool("build", false, "show commit and build date")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

// versionReport is the JSON form of `loom version`. Sections are only
// present when requested.
type versionReport struct {
	Tool     string           `json:"tool"`
	Version  string           `json:"version"`
	Build    *buildSection    `json:"build,omitempty"`
	Protocol *protocolSection `json:"protocol,omitempty"`
	Runtime  *runtimeSection  `json:"runtime,omitempty"`
}

type buildSection struct {
	Commit  string `json:"commit"`
	Message string `json:"message,omitempty"`
	Date    string `json:"date"`
}

type protocolSection struct {
	Ops       []string `json:"ops"`
	Formats   []string `json:"formats"`
	Templates []string `json:"templates"`
}

type runtimeSection struct {
	InlineTemplates    bool   `json:"inline_templates"`
	NormalizeText      bool   `json:"normalize_text"`
	CheckThread        bool   `json:"check_thread"`
	MaxDrainIterations int    `json:"max_drain_iterations"`
	MaxDiagnostics     int    `json:"max_diagnostics"`
	Clock              string `json:"clock"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	var showProtocol, showRuntime, showBuild bool
	var format string
	var err error
	if showProtocol, err = cmd.Flags().GetBool("protocol"); err != nil {
		return fmt.Errorf("failed to get protocol flag: %w", err)
	}
	if showRuntime, err = cmd.Flags().GetBool("runtime"); err != nil {
		return fmt.Errorf("failed to get runtime flag: %w", err)
	}
	if showBuild, err = cmd.Flags().GetBool("build"); err != nil {
		return fmt.Errorf("failed to get build flag: %w", err)
	}
	if format, err = cmd.Flags().GetString("format"); err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	rep := versionReport{Tool: version.Tool, Version: strings.TrimSpace(version.Version)}
	if rep.Version == "" {
		rep.Version = "dev"
	}
	if showBuild {
		rep.Build = &buildSection{
			Commit:  orUnknown(version.GitCommit),
			Message: strings.TrimSpace(version.GitMessage),
			Date:    orUnknown(version.BuildDate),
		}
	}
	if showProtocol {
		rep.Protocol = describeProtocol(template.Default)
	}
	if showRuntime {
		cfg := vdom.Config{}
		if current != nil {
			cfg = current.runtimeConfig()
		}
		rep.Runtime = describeRuntime(cfg)
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "pretty":
		writeVersion(cmd.OutOrStdout(), rep, current != nil && current.color)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func describeProtocol(store *template.Store) *protocolSection {
	p := &protocolSection{}
	for _, op := range mutation.Ops() {
		p.Ops = append(p.Ops, op.String())
	}
	for _, f := range mutation.Formats() {
		p.Formats = append(p.Formats, f.String())
	}
	for _, tpl := range store.All() {
		p.Templates = append(p.Templates, tpl.Name)
	}
	return p
}

func describeRuntime(cfg vdom.Config) *runtimeSection {
	cfg = cfg.WithDefaults()
	clock := "virtual"
	if cfg.Clock != nil {
		clock = fmt.Sprintf("%T", cfg.Clock)
	}
	return &runtimeSection{
		InlineTemplates:    cfg.InlineTemplates,
		NormalizeText:      cfg.NormalizeText,
		CheckThread:        cfg.CheckThread,
		MaxDrainIterations: cfg.MaxDrainIterations,
		MaxDiagnostics:     cfg.MaxDiagnostics,
		Clock:              clock,
	}
}

func writeVersion(out io.Writer, rep versionReport, colored bool) {
	v := rep.Version
	if colored {
		v = version.Colored(v)
	}
	fmt.Fprintf(out, "%s %s\n", rep.Tool, v)
	if b := rep.Build; b != nil {
		fmt.Fprintf(out, "  commit   %s\n", b.Commit)
		if b.Message != "" {
			fmt.Fprintf(out, "  message  %s\n", b.Message)
		}
		fmt.Fprintf(out, "  built    %s\n", b.Date)
	}
	if p := rep.Protocol; p != nil {
		fmt.Fprintf(out, "protocol\n  formats    %s\n", strings.Join(p.Formats, ", "))
		fmt.Fprintf(out, "  ops (%d)\n", len(p.Ops))
		for i, op := range p.Ops {
			fmt.Fprintf(out, "    %2d %s\n", i+1, op)
		}
		fmt.Fprintf(out, "  templates (%d)\n", len(p.Templates))
		for _, name := range p.Templates {
			fmt.Fprintf(out, "    %s\n", name)
		}
	}
	if r := rep.Runtime; r != nil {
		fmt.Fprintf(out, "runtime\n")
		fmt.Fprintf(out, "  inline_templates      %t\n", r.InlineTemplates)
		fmt.Fprintf(out, "  normalize_text        %t\n", r.NormalizeText)
		fmt.Fprintf(out, "  check_thread          %t\n", r.CheckThread)
		fmt.Fprintf(out, "  max_drain_iterations  %d\n", r.MaxDrainIterations)
		fmt.Fprintf(out, "  max_diagnostics       %d\n", r.MaxDiagnostics)
		fmt.Fprintf(out, "  clock                 %s\n", r.Clock)
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
