package pipeline

import (
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// Policy is the success policy of a concurrent group stage.
type Policy int

const (
	// PolicyAll fails the group if any unit fails
	PolicyAll Policy = iota
	// PolicyAny succeeds the group if at least one unit succeeds
	PolicyAny
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case PolicyAll:
		return "all"
	case PolicyAny:
		return "any"
	default:
		return "unknown"
	}
}

// GroupConfig configures a concurrent group stage.
type GroupConfig struct {
	// Policy is the ALL/ANY success policy
	Policy Policy

	// MaxConcurrency bounds the worker pool. Zero or negative means
	// available parallelism.
	MaxConcurrency int

	// Deadline bounds the whole group. Zero means no deadline.
	Deadline time.Duration
}

// groupOutcome is the per-unit record a worker fills in. The merge step
// reads outcomes only after all workers quiesced (or abandons them all on
// timeout), so no locking is needed beyond the errgroup wait.
type groupOutcome struct {
	unit         types.Unit
	clone        *types.Context
	baseFailures int
	err          error
}

// runGroup executes a group stage: each unit runs against its own clone of
// the live context inside a bounded worker pool, the group deadline is
// enforced at group granularity, and outcomes are merged back into the
// live context in submission order so the final state is deterministic
// regardless of scheduling.
func (p *Pipeline) runGroup(rc *types.Context, stageIdx int, st Stage) error {
	cfg := st.group
	workers := cfg.MaxConcurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger := p.logger.With().
		Str("group", st.name).
		Int("stage", stageIdx).
		Logger()
	logger.Debug().
		Int("units", len(st.units)).
		Int("workers", workers).
		Stringer("policy", cfg.Policy).
		Dur("deadline", cfg.Deadline).
		Msg("Executing group stage")

	// Clones are taken synchronously before any dispatch so the live
	// context is never read while a timed-out group's failure is being
	// recorded into it.
	outcomes := make([]*groupOutcome, len(st.units))
	for i, u := range st.units {
		clone := rc.Clone()
		outcomes[i] = &groupOutcome{
			unit:         u,
			clone:        clone,
			baseFailures: len(clone.Failures),
		}
	}

	// expired keeps not-yet-started units from running after the deadline
	// fired. In-flight units cannot be preempted; they are abandoned and
	// their results discarded.
	var expired atomic.Bool

	var g errgroup.Group
	g.SetLimit(workers)

	// The deadline clock starts before the first unit is dispatched.
	var deadlineC <-chan time.Time
	if cfg.Deadline > 0 {
		timer := time.NewTimer(cfg.Deadline)
		defer timer.Stop()
		deadlineC = timer.C
	}

	// Submission happens off the waiting goroutine: g.Go blocks while the
	// pool is saturated, and the deadline must bound queued units too, not
	// just the final wave.
	done := make(chan struct{})
	go func() {
		for i, outcome := range outcomes {
			outcome := outcome
			u := outcome.unit
			clone := outcome.clone
			trackID := p.ids[stageIdx][i]

			g.Go(func() error {
				if expired.Load() {
					return nil
				}

				p.tracker.Start(trackID)
				clone.BindProgress(p.tracker, trackID)

				logger.Debug().
					Str("unit", u.Name()).
					Str("description", u.Description()).
					Dur("timeout_hint", types.TimeoutOf(u)).
					Int("retry_hint", types.RetriesOf(u)).
					Msg("Executing group unit")

				err := u.Execute(clone)
				p.tracker.Complete(trackID)

				if err != nil {
					logger.Error().Err(err).Str("unit", u.Name()).Msg("Group unit failed")
					clone.RecordFailure(u.Name(), stageIdx, types.IsCritical(u), err)
					outcome.err = err
				}
				return nil
			})
		}

		// Workers never return errors; Wait is used purely as a barrier.
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-deadlineC:
		expired.Store(true)
		logger.Warn().
			Dur("deadline", cfg.Deadline).
			Msg("Group deadline exceeded, abandoning outstanding units")

		timeoutErr := errors.Newf(errors.ErrGroupTimeout,
			"group %s exceeded deadline of %s", st.name, cfg.Deadline).
			WithDetail("group", st.name).
			WithDetail("deadline", cfg.Deadline)

		if p.cfg.FailFast {
			return timeoutErr
		}
		rc.RecordFailure(st.name, stageIdx, true, timeoutErr)
		return nil
	}

	succeeded, failed, criticalFailed := p.mergeOutcomes(rc, outcomes)

	groupOK := failed == 0
	if cfg.Policy == PolicyAny {
		groupOK = succeeded > 0
	}
	if groupOK {
		return nil
	}

	logger.Error().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Stringer("policy", cfg.Policy).
		Msg("Group failed success policy")

	if p.cfg.FailFast && criticalFailed {
		return errors.Newf(errors.ErrGroupPolicy,
			"group %s failed %s policy (%d of %d units failed)",
			st.name, cfg.Policy, failed, len(st.units)).
			WithDetail("group", st.name).
			WithDetail("failed", failed).
			WithDetail("succeeded", succeeded)
	}

	// Per-unit failures were already merged into the context; fail-slow
	// callers detect the policy violation from the failure sequence.
	return nil
}

// mergeOutcomes folds clone results and failures back into the live
// context, iterating units in submission order. Only deltas relative to
// the pre-group baseline are merged, so values a clone merely inherited
// are not double-counted.
func (p *Pipeline) mergeOutcomes(rc *types.Context, outcomes []*groupOutcome) (succeeded, failed int, criticalFailed bool) {
	var keyOrder []string
	deltas := make(map[string][]interface{})

	for _, o := range outcomes {
		// Newly recorded failures concatenate in submission order.
		rc.Failures = append(rc.Failures, o.clone.Failures[o.baseFailures:]...)

		if o.err != nil {
			failed++
			if types.IsCritical(o.unit) {
				criticalFailed = true
			}
		} else {
			succeeded++
		}

		for k, v := range o.clone.Results {
			if base, ok := rc.Results[k]; ok && reflect.DeepEqual(base, v) {
				continue
			}
			if _, seen := deltas[k]; !seen {
				keyOrder = append(keyOrder, k)
			}
			deltas[k] = append(deltas[k], v)
		}
	}

	for _, k := range keyOrder {
		values := deltas[k]
		merged := values[0]
		for _, v := range values[1:] {
			merged = combine(merged, v)
		}
		rc.Results[k] = merged
	}

	return succeeded, failed, criticalFailed
}
