package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"hbind/internal/pipeline"
	"hbind/internal/ui"
)

// wantProgressView reads --ui. The live view redraws stdout, so auto
// turns it on only for pretty output to a terminal, and json output never
// gets it.
func wantProgressView(flag, format string, quiet, stdoutTTY bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "", "auto":
		return !quiet && format == "pretty" && stdoutTTY, nil
	case "on":
		if format == "json" {
			return false, fmt.Errorf("--ui=on cannot be combined with --format=json")
		}
		return !quiet, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", flag)
	}
}

type checkOutcome struct {
	results []pipeline.UnitResult
	err     error
}

// runCheckWithUI runs the check while a progress view consumes its events.
func runCheckWithUI(ctx context.Context, title string, req *pipeline.CheckRequest) ([]pipeline.UnitResult, error) {
	if req == nil {
		return nil, fmt.Errorf("missing check request")
	}
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Check(ctx, &reqCopy)
		outcomeCh <- checkOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
