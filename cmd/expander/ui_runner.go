package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"expander/internal/batch"
	"expander/internal/ui"
)

type batchOutcome struct {
	replies []batch.Reply
	err     error
}

func runBatchWithUI(ctx context.Context, title string, frames []batch.Frame, opt batch.Options) ([]batch.Reply, error) {
	events := make(chan batch.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		o := opt
		o.Progress = batch.ChannelSink{Ch: events}
		replies, err := batch.Run(ctx, frames, o)
		outcomeCh <- batchOutcome{replies: replies, err: err}
		close(events)
	}()

	names := make([]string, len(frames))
	for i := range frames {
		names[i] = frames[i].Name
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	// the worker may still be sending if the UI stopped early
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.replies, uiErr
	}
	return outcome.replies, outcome.err
}
