package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"strata/internal/pipeline"
	"strata/internal/snapshot"
	"strata/internal/ui"
)

type runOutcome struct {
	result pipeline.Result
	err    error
}

func runCanonWithUI(ctx context.Context, title string, req pipeline.Request) (pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		reqCopy := req
		reqCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Run(ctx, reqCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, funcNames(req.Module), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func funcNames(m *snapshot.Module) []string {
	names := make([]string, len(m.Funcs))
	for i, fn := range m.Funcs {
		names[i] = fn.Name
	}
	return names
}
