package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"loom/internal/apps"
	"loom/internal/ui"
)

type demoOutcome struct {
	host *apps.Host
	err  error
}

// runDemoWithUI drives the demo on its own goroutine, which then owns the
// runtime, and streams step events into the viewer.
func runDemoWithUI(ctx context.Context, title string, in apps.Instance, opts apps.Options) (*apps.Host, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan demoOutcome, 1)
	sink := ui.ChannelSink{Ch: events}

	go func() {
		after := opts.After
		opts.Before = func(step string) {
			sink.OnEvent(ui.Event{Step: step, Status: ui.StatusRunning})
		}
		opts.After = func(r apps.Result) {
			if after != nil {
				after(r)
			}
			sink.OnEvent(ui.Event{Step: r.Step, Status: ui.StatusDone, Batch: r.Batch, HTML: r.HTML})
		}
		_, h, err := apps.Run(ctx, in, opts)
		if err != nil {
			sink.OnEvent(ui.Event{Step: "failed", Status: ui.StatusError, Err: err})
		}
		outcomeCh <- demoOutcome{host: h, err: err}
		close(events)
	}()

	model := ui.NewViewerModel(title, in.StepNames(), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// Keep the producer from blocking if the viewer quit early.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.host, uiErr
	}
	return outcome.host, outcome.err
}
