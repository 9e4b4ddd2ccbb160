// Package pipeline checks several declaration units side by side, each in
// its own driver session, and reports per-unit progress.
package pipeline

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"hbind/internal/driver"
	"hbind/internal/raw"
)

// CheckRequest describes one invocation over several units.
type CheckRequest struct {
	Files []string
	// Units bounds how many units run at once; 0 means GOMAXPROCS.
	Units    int
	Options  driver.Options
	Progress ProgressSink
}

// UnitResult is the outcome for one file. Err is set when the unit could
// not be loaded or run; Result is nil then.
type UnitResult struct {
	File    string
	Result  *driver.Result
	Err     error
	Timings Timings
}

// Check runs every file of req. A unit that fails does not stop the
// others; only cancellation of ctx is returned as an error.
func Check(ctx context.Context, req *CheckRequest) ([]UnitResult, error) {
	if req == nil {
		return nil, errors.New("missing check request")
	}
	emitQueued(req.Progress, req.Files)
	results := make([]UnitResult, len(req.Files))
	if len(req.Files) == 0 {
		return results, nil
	}
	units := req.Units
	if units <= 0 {
		units = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(units, len(req.Files)))
	for i, file := range req.Files {
		g.Go(func() error {
			results[i] = checkUnit(gctx, file, req)
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}
	err := g.Wait()
	emit(req.Progress, Event{Stage: StageReport, Status: StatusDone})
	return results, err
}

func checkUnit(ctx context.Context, file string, req *CheckRequest) UnitResult {
	out := UnitResult{File: file}
	started := time.Now()

	emit(req.Progress, Event{File: file, Stage: StageLoad, Status: StatusWorking})
	loadStart := time.Now()
	unit, err := raw.LoadFile(file)
	out.Timings.Set(StageLoad, time.Since(loadStart))
	if err != nil {
		out.Err = err
		emit(req.Progress, Event{File: file, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(started)})
		return out
	}
	emit(req.Progress, Event{File: file, Stage: StageLoad, Status: StatusPassed, Items: len(unit.Decls), Elapsed: out.Timings.Duration(StageLoad)})

	opts := req.Options
	outer := opts.Observer
	opts.Observer = func(ev driver.PhaseEvent) {
		if outer != nil {
			outer(ev)
		}
		switch ev.Status {
		case driver.PhaseStart:
			emit(req.Progress, Event{File: file, Stage: Stage(ev.Name), Status: StatusWorking})
		case driver.PhaseEnd:
			out.Timings.Set(Stage(ev.Name), ev.Elapsed)
			emit(req.Progress, Event{File: file, Stage: Stage(ev.Name), Status: StatusPassed, Items: ev.Items, Elapsed: ev.Elapsed})
		}
	}
	res, err := driver.Run(ctx, unit, opts)
	if err != nil {
		out.Err = err
		emit(req.Progress, Event{File: file, Stage: StageReport, Status: StatusError, Err: err, Elapsed: time.Since(started)})
		return out
	}
	out.Result = res
	emit(req.Progress, Event{File: file, Stage: StageReport, Status: StatusDone, Items: len(res.Entities), Elapsed: time.Since(started)})
	return out
}

func emitQueued(sink ProgressSink, files []string) {
	for _, file := range files {
		emit(sink, Event{File: file, Stage: StageLoad, Status: StatusQueued})
	}
}

func emit(sink ProgressSink, ev Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(ev)
}
