package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hbind/internal/trace"
)

// setupTracing reads the trace flags and attaches a recorder to the command
// context. The returned cleanup closes it.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	output, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// An output without a level means "trace passes".
	if level == trace.LevelOff {
		if output == "" {
			return func() {}, nil
		}
		level = trace.LevelPhase
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	rec, err := trace.Open(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, err
	}
	cmd.SetContext(trace.WithRecorder(cmd.Context(), rec))
	return func() {
		if err := rec.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
	}, nil
}

// dumpTrace writes the ring buffer to stderr after a failed unit. Events
// from every unit share the buffer, so it is dumped once per command.
func dumpTrace(cmd *cobra.Command, dumped *bool) {
	ring := trace.FromContext(cmd.Context()).Ring()
	if ring == nil || *dumped {
		return
	}
	*dumped = true
	events := ring.Events()
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "trace: last %d events\n", len(events))
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: %v\n", err)
	}
}
