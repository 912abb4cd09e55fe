// Package trace records what the runtime does while it drains: run loops,
// drain cycles, event dispatch, scope renders, task polls and, at the most
// verbose level, per-node diffing.
//
// A Tracer is built from a Config:
//
//	tr, err := trace.New(trace.Config{Level: trace.LevelDetail, OutputPath: "-"})
//
// and handed to the runtime through vdom.Config.Tracer or a context:
//
//	ctx = trace.WithTracer(ctx, tr)
//
// Events are tagged with a Layer. The Level decides which layers are
// emitted: LevelPhase keeps run and cycle spans, LevelDetail adds scope
// renders and task polls, LevelDebug adds node diffing. Stream tracers
// write text, NDJSON or the Chrome trace-viewer format as events happen;
// ring tracers keep the most recent events for a dump after a failure.
package trace
