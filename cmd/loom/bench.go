package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"loom/internal/mutation"
	"loom/internal/reactive"
	"loom/internal/template"
	"loom/internal/testkit"
	"loom/internal/vdom"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark keyed list reconciliation",
	Long: `Mount a keyed table of rows and repeatedly rewrite its key order. Every
worker owns an independent runtime on its own goroutine. Drain latency is
reported per workload.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int("rows", 1000, "rows in the keyed table")
	benchCmd.Flags().Int("iterations", 200, "updates per workload and worker")
	benchCmd.Flags().Int("workers", 1, "independent runtimes run in parallel")
	benchCmd.Flags().Uint64("seed", 1, "seed for the update generator")
	benchCmd.Flags().Bool("apply", false, "apply every batch to a reference document")
}

var (
	benchTableTpl = template.MustNew("bench:table",
		template.Elem("table", nil, template.Elem("tbody", nil, template.Dyn(0))),
	)
	benchRowTpl = template.MustNew("bench:row",
		template.Elem("tr", nil,
			template.Elem("td", nil, template.DynText(0)),
			template.Elem("td", nil, template.DynText(1)),
		),
	)
)

// workload rewrites the key order of a table.
type workload struct {
	name   string
	update func(rng *rand.Rand, keys []int, next *int) []int
}

var workloads = []workload{
	{"swap rows", func(rng *rand.Rand, keys []int, _ *int) []int {
		out := slices.Clone(keys)
		if len(out) > 1 {
			i, j := rng.IntN(len(out)), rng.IntN(len(out))
			out[i], out[j] = out[j], out[i]
		}
		return out
	}},
	{"move one", func(rng *rand.Rand, keys []int, _ *int) []int {
		if len(keys) < 2 {
			return slices.Clone(keys)
		}
		i := rng.IntN(len(keys))
		k := keys[i]
		out := slices.Delete(slices.Clone(keys), i, i+1)
		return slices.Insert(out, rng.IntN(len(out)+1), k)
	}},
	{"replace one", func(rng *rand.Rand, keys []int, next *int) []int {
		out := slices.Clone(keys)
		if len(out) > 0 {
			*next++
			out[rng.IntN(len(out))] = *next
		}
		return out
	}},
	{"reverse", func(_ *rand.Rand, keys []int, _ *int) []int {
		out := slices.Clone(keys)
		slices.Reverse(out)
		return out
	}},
	{"shuffle", func(rng *rand.Rand, keys []int, _ *int) []int {
		out := slices.Clone(keys)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}},
}

type benchOptions struct {
	rows       int
	iterations int
	workers    int
	seed       uint64
	apply      bool
	cfg        vdom.Config
}

// benchResult is what one workload measured across all workers.
type benchResult struct {
	name  string
	calc  *tachymeter.Metrics
	edits int64
	moves int64
}

func runBench(cmd *cobra.Command, _ []string) error {
	var opts benchOptions
	var err error
	if opts.rows, err = cmd.Flags().GetInt("rows"); err != nil {
		return fmt.Errorf("failed to get rows flag: %w", err)
	}
	if opts.iterations, err = cmd.Flags().GetInt("iterations"); err != nil {
		return fmt.Errorf("failed to get iterations flag: %w", err)
	}
	if opts.workers, err = cmd.Flags().GetInt("workers"); err != nil {
		return fmt.Errorf("failed to get workers flag: %w", err)
	}
	if opts.seed, err = cmd.Flags().GetUint64("seed"); err != nil {
		return fmt.Errorf("failed to get seed flag: %w", err)
	}
	if opts.apply, err = cmd.Flags().GetBool("apply"); err != nil {
		return fmt.Errorf("failed to get apply flag: %w", err)
	}
	if opts.rows < 0 || opts.iterations < 1 || opts.workers < 1 {
		return fmt.Errorf("rows must be >= 0, iterations and workers >= 1")
	}
	opts.cfg = current.runtimeConfig()
	// Workers share nothing, so every runtime checks its own goroutine.
	opts.cfg.CheckThread = true

	current.info(cmd.ErrOrStderr(), "benchmarking %s rows, %s updates per workload on %d worker(s)\n",
		humanize.Comma(int64(opts.rows)), humanize.Comma(int64(opts.iterations)), opts.workers)

	results := make([]benchResult, 0, len(workloads))
	for _, wl := range workloads {
		idx := current.timer.Begin(wl.name)
		res, err := benchWorkload(demoContext(cmd), wl, opts)
		current.timer.EndEdits(idx, "", int(res.edits))
		if err != nil {
			return fmt.Errorf("%s: %w", wl.name, err)
		}
		results = append(results, res)
	}

	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("keyed reconcile: %s rows x %d worker(s)", humanize.Comma(int64(opts.rows)), opts.workers))
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.AppendHeader(table.Row{"workload", "updates", "edits", "moves", "avg", "min", "p50", "p75", "p99", "max"})
	for _, r := range results {
		tbl.AppendRow(table.Row{
			r.name,
			humanize.Comma(int64(r.calc.Count)),
			humanize.Comma(r.edits),
			humanize.Comma(r.moves),
			r.calc.Time.Avg,
			r.calc.Time.Min,
			r.calc.Time.P50,
			r.calc.Time.P75,
			r.calc.Time.P99,
			r.calc.Time.Max,
		})
	}
	tbl.Render()
	return nil
}

// benchWorkload runs wl on opts.workers independent runtimes.
func benchWorkload(ctx context.Context, wl workload, opts benchOptions) (benchResult, error) {
	tach := tachymeter.New(&tachymeter.Config{Size: opts.iterations * opts.workers})
	var (
		mu    sync.Mutex
		edits int64
		moves int64
	)
	g, ctx := errgroup.WithContext(ctx)
	for w := range opts.workers {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(opts.seed, uint64(w)))
			e, m, err := benchWorker(ctx, wl, opts, rng, func(d time.Duration) {
				mu.Lock()
				tach.AddTime(d)
				mu.Unlock()
			})
			mu.Lock()
			edits += e
			moves += m
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return benchResult{name: wl.name, calc: tach.Calc(), edits: edits, moves: moves}, err
}

// benchWorker mounts the table on the calling goroutine and times every
// drain.
func benchWorker(ctx context.Context, wl workload, opts benchOptions, rng *rand.Rand, observe func(time.Duration)) (edits, moves int64, err error) {
	initial := make([]int, opts.rows)
	for i := range initial {
		initial[i] = i + 1
	}
	next := opts.rows

	var keys *reactive.Signal[[]int]
	root := vdom.NewComponent("BenchTable", func(cx *vdom.Scope) (*vdom.VNode, error) {
		keys = vdom.UseSignalFunc(cx, initial, slices.Equal[[]int])
		ks := keys.Read()
		rows := make([]*vdom.VNode, len(ks))
		for i, k := range ks {
			rows[i] = cx.RenderKeyed(strconv.Itoa(k), benchRowTpl,
				vdom.Nodes(vdom.Textf("%d", k), vdom.Textf("row %d", k)), nil)
		}
		return cx.Render(benchTableTpl, vdom.Nodes(vdom.Fragment(rows...)), nil), nil
	})

	dom := vdom.New(root, vdom.NoProps, opts.cfg)
	script := &mutation.Script{}
	var w mutation.Writer = script
	var doc *testkit.Document
	if opts.apply {
		doc = testkit.NewDocument(opts.cfg.Store)
		w = mutation.Tee(script, doc)
	}
	if err := dom.Rebuild(w); err != nil {
		return 0, 0, err
	}
	script.Reset()

	for range opts.iterations {
		if err := ctx.Err(); err != nil {
			return edits, moves, err
		}
		keys.Write(wl.update(rng, keys.Peek(), &next))
		start := time.Now()
		if err := dom.Drain(w); err != nil {
			return edits, moves, err
		}
		observe(time.Since(start))
		edits += int64(script.Len())
		moves += int64(script.Count(mutation.OpInsertBefore) + script.Count(mutation.OpInsertAfter))
		script.Reset()
		if doc != nil {
			if err := doc.Err(); err != nil {
				return edits, moves, err
			}
		}
	}
	if doc != nil {
		if err := doc.CheckInvariants(); err != nil {
			return edits, moves, err
		}
	}
	if n := dom.Diagnostics().Len(); n > 0 {
		return edits, moves, fmt.Errorf("%d diagnostic(s) raised", n)
	}
	return edits, moves, nil
}
