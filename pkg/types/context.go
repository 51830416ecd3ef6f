package types

import (
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/rs/zerolog"
)

// ProgressSink receives per-unit progress updates. The engine binds the
// active tracker to each context before dispatching a unit; units report
// through Context.SetProgress without knowing the sink's identity.
type ProgressSink interface {
	Update(unitID string, progress float64)
}

// Context is the mutable state threaded through a pipeline run. It carries
// the caller's opaque configuration, a logger, the accumulated result map,
// and the ordered failure sequence. It is created once before Run and
// returned (possibly mutated) after.
//
// During a concurrent group stage each unit receives an independent clone,
// so a Context is never written by two goroutines at once.
type Context struct {
	// Config is the opaque application configuration, forwarded by
	// reference and never inspected by the engine.
	Config interface{}

	// Logger is available to units for structured logging.
	Logger zerolog.Logger

	// Results maps result keys to values produced by units.
	Results map[string]interface{}

	// Failures is the ordered sequence of recorded unit failures.
	Failures []Failure

	progress ProgressSink
	unitID   string
}

// NewContext creates a run context carrying the given configuration and logger.
func NewContext(config interface{}, logger zerolog.Logger) *Context {
	return &Context{
		Config:  config,
		Logger:  logger,
		Results: make(map[string]interface{}),
	}
}

// Clone returns a full copy of the context with no shared backing storage
// for the result map or failure sequence. The configuration and logger are
// carried by reference. A clone inherits the tracker binding so cloned
// units can still self-report progress.
func (c *Context) Clone() *Context {
	clone := &Context{
		Config:   c.Config,
		Logger:   c.Logger,
		progress: c.progress,
		unitID:   c.unitID,
	}

	copied, err := copystructure.Copy(c.Results)
	if err == nil {
		clone.Results = copied.(map[string]interface{})
	} else {
		// Unsupported value kinds (channels, funcs) fall back to a
		// top-level copy; such values cannot be merged anyway.
		clone.Results = make(map[string]interface{}, len(c.Results))
		for k, v := range c.Results {
			clone.Results[k] = v
		}
	}

	clone.Failures = make([]Failure, len(c.Failures))
	copy(clone.Failures, c.Failures)

	return clone
}

// BindProgress attaches the active tracker and the executing unit's id.
// Called by the engine before dispatching a unit; not intended for units.
func (c *Context) BindProgress(sink ProgressSink, unitID string) {
	c.progress = sink
	c.unitID = unitID
}

// SetProgress reports the executing unit's internal progress in [0, 100].
// Out-of-range values are clamped by the tracker. A no-op when the context
// is not bound to a tracker.
func (c *Context) SetProgress(progress float64) {
	if c.progress != nil && c.unitID != "" {
		c.progress.Update(c.unitID, progress)
	}
}

// RecordFailure appends a failure to the context's failure sequence.
func (c *Context) RecordFailure(unit string, stage int, critical bool, err error) {
	c.Failures = append(c.Failures, Failure{
		Unit:     unit,
		Stage:    stage,
		Critical: critical,
		Err:      err,
		When:     time.Now(),
	})
}

// HasFailures reports whether any failures were recorded during the run.
func (c *Context) HasFailures() bool {
	return len(c.Failures) > 0
}
