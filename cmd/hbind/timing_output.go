package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"hbind/internal/pipeline"
)

// printStageTimings writes one line with the recorded stage durations of a unit.
func printStageTimings(out io.Writer, file string, timings pipeline.Timings) {
	if out == nil {
		return
	}
	parts := make([]string, 0, len(pipeline.Stages)+1)
	for _, stage := range pipeline.Stages {
		if timings.Has(stage) {
			parts = append(parts, fmt.Sprintf("%s %.1f ms", stage, toMillis(timings.Duration(stage))))
		}
	}
	if len(parts) == 0 {
		return
	}
	parts = append(parts, fmt.Sprintf("total %.1f ms", toMillis(timings.Sum(pipeline.Stages...))))
	if _, err := fmt.Fprintf(out, "%s: %s\n", file, strings.Join(parts, ", ")); err != nil {
		panic(err)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
