package pipeline

import (
	"time"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// executeUnit runs a single sequential unit against the live context and
// applies the fail-fast decision table:
//
//	fail-fast + critical      -> fatal, surfaced to the orchestrator
//	fail-fast + non-critical  -> failure recorded, run continues
//	fail-slow (any unit)      -> failure recorded, run continues
//
// The tracker always shows the unit complete afterwards; a unit that never
// self-reported progress reads 100 on success and failure alike.
func (p *Pipeline) executeUnit(rc *types.Context, stageIdx int, u types.Unit, trackID string) error {
	start := time.Now()
	critical := types.IsCritical(u)

	logger := p.logger.With().
		Str("unit", u.Name()).
		Int("stage", stageIdx).
		Logger()

	// Advisory hints are surfaced in logs but never enforced here. A unit
	// that needs a real deadline or retries wraps its own Execute.
	logger.Debug().
		Str("description", u.Description()).
		Bool("critical", critical).
		Dur("timeout_hint", types.TimeoutOf(u)).
		Int("retry_hint", types.RetriesOf(u)).
		Msg("Executing unit")

	p.tracker.Start(trackID)
	rc.BindProgress(p.tracker, trackID)

	err := u.Execute(rc)
	p.tracker.Complete(trackID)

	if err != nil {
		logger.Error().
			Err(err).
			Bool("critical", critical).
			Msg("Unit execution failed")

		if p.cfg.FailFast && critical {
			return errors.Wrapf(err, errors.ErrUnitFailure, "unit %s failed", u.Name()).
				WithDetail("unit", u.Name()).
				WithDetail("critical", true)
		}

		rc.RecordFailure(u.Name(), stageIdx, critical, err)
		return nil
	}

	logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Unit executed successfully")

	return nil
}
