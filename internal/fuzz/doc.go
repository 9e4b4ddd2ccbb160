// Package fuzztests houses Go fuzz harnesses that push arbitrary declaration
// units and macro bodies through the whole driver. They guard against panics,
// hangs and results that break the invariants checked by testkit.
package fuzztests
