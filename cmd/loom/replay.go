package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"loom/internal/mutation"
	"loom/internal/testkit"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a recorded script stream and apply it to an in-memory document",
	Long: `Decode a msgpack or JSON stream written by "loom demo --out" and apply it,
batch by batch, to the reference document. Template ids refer to the demo
templates compiled into this binary. A renderer contract violation stops the
replay with an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().String("format", "", "stream format (json|msgpack); default from the file extension")
	replayCmd.Flags().Bool("print", false, "print every decoded batch as text")
	replayCmd.Flags().Bool("html", true, "print the final document")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if formatFlag == "" {
		switch filepath.Ext(path) {
		case ".json", ".ndjson", ".jsonl":
			formatFlag = "json"
		default:
			formatFlag = "msgpack"
		}
	}
	format, err := mutation.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	printBatches, err := cmd.Flags().GetBool("print")
	if err != nil {
		return fmt.Errorf("failed to get print flag: %w", err)
	}
	showHTML, err := cmd.Flags().GetBool("html")
	if err != nil {
		return fmt.Errorf("failed to get html flag: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	dec, err := mutation.NewDecoder(f, format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	text := mutation.NewEncoder(out, mutation.FormatText)
	doc := testkit.NewDocument(nil)
	batches, edits := 0, 0
	for {
		b, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if printBatches {
			if err := text.Encode(b); err != nil {
				return err
			}
		}
		if err := doc.Apply(b); err != nil {
			return fmt.Errorf("batch %d: %w", batches+1, err)
		}
		batches++
		edits += len(b.Edits)
	}
	if err := doc.CheckInvariants(); err != nil {
		return fmt.Errorf("replayed document is inconsistent: %w", err)
	}
	current.info(cmd.ErrOrStderr(), "replayed %d batches, %d edits\n", batches, edits)
	if showHTML {
		fmt.Fprint(out, doc.Indented())
	}
	return nil
}
