package fuzztests

import (
	"context"
	"errors"
	"testing"
	"time"

	"hbind/internal/diag"
	"hbind/internal/driver"
	"hbind/internal/raw"
	"hbind/internal/testkit"
)

// runTimeout bounds one run; exceeding it means a pass does not terminate.
const runTimeout = 5 * time.Second

func runUnit(t *testing.T, unit *raw.Unit, jobs int) *driver.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	res, err := driver.Run(ctx, unit, driver.Options{Jobs: jobs})
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run did not finish within %s", runTimeout)
	}
	if err != nil {
		// Unknown targets are setup errors, not bugs.
		return nil
	}
	if err := testkit.CheckResultInvariants(res); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	return res
}

func FuzzDecodeAndRun(f *testing.F) {
	addUnitSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		unit, err := raw.Decode(string(input))
		if err != nil {
			return
		}
		runUnit(t, unit, 4)
	})
}

func FuzzRunIsDeterministic(f *testing.F) {
	addUnitSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		unit, err := raw.Decode(string(input))
		if err != nil {
			return
		}
		one := runUnit(t, unit, 1)
		many := runUnit(t, unit, 8)
		if one == nil || many == nil {
			return
		}
		a := diag.FormatGolden(one.Diagnostics.Items(), one.FileSet, true)
		b := diag.FormatGolden(many.Diagnostics.Items(), many.FileSet, true)
		if a != b {
			t.Fatalf("diagnostics depend on worker count:\n%s\n---\n%s", a, b)
		}
	})
}
