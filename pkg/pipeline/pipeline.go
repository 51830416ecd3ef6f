// Package pipeline implements a staged task-pipeline execution engine: an
// ordered sequence of stages, each either a single unit of work or a group
// of units run concurrently against isolated context clones, with weighted
// progress tracking and fail-fast/fail-slow failure policies.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/logging"
	"github.com/arthur-debert/stagehand/pkg/progress"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// Config is the pipeline-level configuration.
type Config struct {
	// FailFast aborts the run when a critical unit fails. When false,
	// every failure is recorded into the context and the run continues.
	FailFast bool
}

// DefaultConfig returns the default pipeline configuration (fail-fast on).
func DefaultConfig() Config {
	return Config{FailFast: true}
}

// Stage is one element of the pipeline sequence: a single unit, or a named
// group of units executed concurrently.
type Stage struct {
	name  string
	unit  types.Unit
	units []types.Unit
	group GroupConfig
}

// UnitStage wraps a single unit as a sequential stage. The stage takes the
// unit's name.
func UnitStage(u types.Unit) Stage {
	return Stage{name: u.Name(), unit: u}
}

// GroupStage builds a concurrent group stage from the given units.
func GroupStage(name string, cfg GroupConfig, units ...types.Unit) Stage {
	return Stage{name: name, units: units, group: cfg}
}

// Name returns the stage name
func (s Stage) Name() string { return s.name }

// IsGroup reports whether the stage is a concurrent group
func (s Stage) IsGroup() bool { return s.unit == nil }

// Units returns the stage's units: the single unit, or the group members.
func (s Stage) Units() []types.Unit {
	if s.unit != nil {
		return []types.Unit{s.unit}
	}
	return s.units
}

// State is the orchestrator lifecycle state.
type State int

const (
	// StateIdle means Run has not been invoked yet
	StateIdle State = iota
	// StateRunning means a run is in flight
	StateRunning
	// StateCompleted means every stage was dispatched
	StateCompleted
	// StateAborted means a fatal failure stopped the run
	StateAborted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ProgressFunc is invoked once per completed top-level stage.
type ProgressFunc func(stageIndex, stageCount int, stageName string, overall float64)

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithProgressFunc installs the external progress callback.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.onProgress = fn }
}

// WithLogger replaces the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// Pipeline drives an ordered stage sequence. A Pipeline runs exactly once;
// Completed and Aborted are terminal states.
type Pipeline struct {
	cfg        Config
	stages     []Stage
	logger     zerolog.Logger
	onProgress ProgressFunc
	runID      string
	tracker    *progress.Tracker

	// ids holds the tracker id for each unit, indexed [stage][unit].
	ids [][]string

	mu    sync.Mutex
	state State
}

// New creates a pipeline from the given configuration and stage sequence.
// This is the primary constructor.
func New(cfg Config, stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		stages:  stages,
		logger:  logging.GetLogger("pipeline"),
		runID:   uuid.NewString(),
		tracker: progress.NewTracker(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("run_id", p.runID).Logger()

	p.ids = make([][]string, len(stages))
	for i, st := range stages {
		units := st.Units()
		p.ids[i] = make([]string, len(units))
		for j, u := range units {
			p.ids[i][j] = fmt.Sprintf("%d:%d:%s", i, j, u.Name())
		}
	}
	return p
}

// NewPipeline is an alternate construction entry point. It forwards to New
// and behaves identically.
func NewPipeline(cfg Config, stages []Stage, opts ...Option) *Pipeline {
	return New(cfg, stages, opts...)
}

// RunID returns the unique identifier of this pipeline's run.
func (p *Pipeline) RunID() string { return p.runID }

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Status returns a consistent snapshot of overall and per-unit progress.
// Safe to poll from another goroutine while a run is in flight.
func (p *Pipeline) Status() progress.Snapshot {
	return p.tracker.Snapshot()
}

// Run executes the stage sequence against the given context, blocking
// until every stage completes or a fatal abort occurs. Under fail-slow the
// context is always returned and callers inspect its failure sequence; a
// non-nil error is returned only for fail-fast critical failures (and for
// misuse: an empty pipeline or a reused one).
func (p *Pipeline) Run(rc *types.Context) (*types.Context, error) {
	if len(p.stages) == 0 {
		return rc, errors.New(errors.ErrPipelineEmpty, "pipeline has no stages")
	}

	p.mu.Lock()
	if p.state != StateIdle {
		state := p.state
		p.mu.Unlock()
		return rc, errors.Newf(errors.ErrPipelineReused,
			"pipeline already ran (state %s); construct a new one", state)
	}
	p.state = StateRunning
	p.mu.Unlock()

	done := logging.LogOperationStart(p.logger, "pipeline run")
	defer done()

	p.tracker.SetRunning(true)
	defer p.tracker.SetRunning(false)

	p.registerWeights()

	p.logger.Info().
		Int("stages", len(p.stages)).
		Bool("fail_fast", p.cfg.FailFast).
		Msg("Pipeline run started")

	for i, st := range p.stages {
		var err error
		if st.IsGroup() {
			err = p.runGroup(rc, i, st)
		} else {
			err = p.executeUnit(rc, i, st.unit, p.ids[i][0])
		}
		if err != nil {
			p.setState(StateAborted)
			p.logger.Error().
				Err(err).
				Str("stage", st.Name()).
				Msg("Pipeline aborted")
			return rc, err
		}

		if p.onProgress != nil {
			snap := p.tracker.Snapshot()
			p.onProgress(i, len(p.stages), st.Name(), snap.Overall)
		}
	}

	p.setState(StateCompleted)
	p.logger.Info().
		Int("failures", len(rc.Failures)).
		Msg("Pipeline run completed")
	return rc, nil
}

// AggregatedError converts a fail-slow run's recorded failures into a
// single coded error carrying every failure as a detail, or nil when the
// run recorded none. Callers that need an error-shaped verdict from a
// fail-slow run (exit codes, CI gates) use this instead of re-walking the
// failure sequence.
func AggregatedError(rc *types.Context) error {
	if rc == nil || !rc.HasFailures() {
		return nil
	}
	agg := errors.Newf(errors.ErrAggregatedFailures,
		"%d unit failure(s) recorded", len(rc.Failures))
	for i, f := range rc.Failures {
		agg = agg.WithDetail(fmt.Sprintf("failure_%d", i), f.String())
	}
	return agg
}

// registerWeights assigns each top-level stage an equal share of 100 and
// subdivides group shares equally among their units, then registers every
// unit with the tracker before execution begins.
func (p *Pipeline) registerWeights() {
	share := 100.0 / float64(len(p.stages))
	for i, st := range p.stages {
		units := st.Units()
		if len(units) == 0 {
			continue
		}
		weight := share / float64(len(units))
		for j, u := range units {
			p.tracker.Register(p.ids[i][j], u.Name(), weight)
		}
	}
}
