package types

import (
	"fmt"
	"time"
)

// Failure records one unit failure observed during a run. Failures are
// appended to the run context in execution order; under a fail-slow
// pipeline the caller inspects this sequence after Run returns.
type Failure struct {
	// Unit is the name of the unit that failed
	Unit string

	// Stage is the index of the top-level stage the unit belonged to
	Stage int

	// Critical is the unit's criticality at the time of failure
	Critical bool

	// Err is the error the unit returned
	Err error

	// When is the time the failure was recorded
	When time.Time
}

// String renders the failure for logs and summaries
func (f Failure) String() string {
	return fmt.Sprintf("%s (stage %d, critical=%t): %v", f.Unit, f.Stage, f.Critical, f.Err)
}
