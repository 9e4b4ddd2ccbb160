package driver

import (
	"fmt"
	"sync/atomic"
)

// runMetrics tracks the fan-out passes of one run.
type runMetrics struct {
	// Worker pool
	workersCompleted atomic.Int64
	workersErrors    atomic.Int64

	// Outcomes
	layoutsFailed atomic.Int64
	macrosFailed  atomic.Int64
	unsupported   atomic.Int64
	undeclared    atomic.Int64
}

func (m *runMetrics) summary() string {
	return fmt.Sprintf(
		"workers: %d completed, %d errors | layouts failed: %d | macros failed: %d | unsupported: %d, undeclared: %d",
		m.workersCompleted.Load(), m.workersErrors.Load(),
		m.layoutsFailed.Load(), m.macrosFailed.Load(),
		m.unsupported.Load(), m.undeclared.Load(),
	)
}
