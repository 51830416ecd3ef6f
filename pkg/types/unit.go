package types

import (
	"time"
)

// Unit is a single piece of caller-supplied work executed by a pipeline.
// Implementations mutate the run context they are handed and report
// failure through the returned error.
type Unit interface {
	// Name returns the unit's identifier, used for progress tracking
	// and failure records.
	Name() string

	// Description returns a human-readable summary of what the unit does.
	Description() string

	// Execute runs the unit against the given context.
	Execute(rc *Context) error
}

// CriticalUnit is an optional capability: units implementing it control
// whether their failure aborts a fail-fast pipeline. Units that do not
// implement it are treated as critical.
type CriticalUnit interface {
	Critical() bool
}

// TimeoutHinter is an optional capability declaring an advisory per-unit
// timeout. The engine reads and logs the hint but never enforces it;
// wrapping units must implement their own deadline logic.
type TimeoutHinter interface {
	TimeoutHint() time.Duration
}

// RetryHinter is an optional capability declaring an advisory retry count.
// Like TimeoutHinter, it is read but never acted upon by the engine.
type RetryHinter interface {
	RetryHint() int
}

// IsCritical reports whether the unit's failure should abort a fail-fast
// pipeline. Defaults to true for units without the CriticalUnit capability.
func IsCritical(u Unit) bool {
	if c, ok := u.(CriticalUnit); ok {
		return c.Critical()
	}
	return true
}

// TimeoutOf returns the unit's advisory timeout hint, or zero.
func TimeoutOf(u Unit) time.Duration {
	if t, ok := u.(TimeoutHinter); ok {
		return t.TimeoutHint()
	}
	return 0
}

// RetriesOf returns the unit's advisory retry hint, or zero.
func RetriesOf(u Unit) int {
	if r, ok := u.(RetryHinter); ok {
		return r.RetryHint()
	}
	return 0
}

// FuncUnit adapts a closure into a Unit. The zero value of the optional
// fields gives a critical unit with no advisory hints.
type FuncUnit struct {
	ID          string
	Desc        string
	Fn          func(rc *Context) error
	NonCritical bool
	Timeout     time.Duration
	Retries     int
}

var (
	_ Unit          = (*FuncUnit)(nil)
	_ CriticalUnit  = (*FuncUnit)(nil)
	_ TimeoutHinter = (*FuncUnit)(nil)
	_ RetryHinter   = (*FuncUnit)(nil)
)

// Name returns the unit identifier
func (f *FuncUnit) Name() string { return f.ID }

// Description returns the unit description
func (f *FuncUnit) Description() string { return f.Desc }

// Execute invokes the wrapped closure
func (f *FuncUnit) Execute(rc *Context) error { return f.Fn(rc) }

// Critical reports whether the unit is critical
func (f *FuncUnit) Critical() bool { return !f.NonCritical }

// TimeoutHint returns the advisory timeout
func (f *FuncUnit) TimeoutHint() time.Duration { return f.Timeout }

// RetryHint returns the advisory retry count
func (f *FuncUnit) RetryHint() int { return f.Retries }
