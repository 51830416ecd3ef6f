package pipeline_test

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/pipeline"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// MockUnit implements types.Unit for testing
type MockUnit struct {
	mock.Mock
	ID string
}

func (m *MockUnit) Name() string { return m.ID }

func (m *MockUnit) Description() string { return "mock unit " + m.ID }

func (m *MockUnit) Execute(rc *types.Context) error {
	args := m.Called(rc)
	return args.Error(0)
}

func newContext() *types.Context {
	return types.NewContext(nil, zerolog.Nop())
}

func okUnit(name string) *types.FuncUnit {
	return &types.FuncUnit{
		ID:   name,
		Desc: name,
		Fn: func(rc *types.Context) error {
			rc.Results[name] = "done"
			return nil
		},
	}
}

func failUnit(name string, critical bool) *types.FuncUnit {
	return &types.FuncUnit{
		ID:          name,
		Desc:        name,
		NonCritical: !critical,
		Fn: func(rc *types.Context) error {
			return fmt.Errorf("%s blew up", name)
		},
	}
}

func TestThreeSequentialUnitsReachFullProgress(t *testing.T) {
	stages := []pipeline.Stage{
		pipeline.UnitStage(okUnit("a")),
		pipeline.UnitStage(okUnit("b")),
		pipeline.UnitStage(okUnit("c")),
	}
	p := pipeline.New(pipeline.DefaultConfig(), stages)

	rc, err := p.Run(newContext())
	require.NoError(t, err)

	snap := p.Status()
	assert.InDelta(t, 100.0, snap.Overall, 0.0001)
	require.Len(t, snap.Units, 3)
	for _, u := range snap.Units {
		assert.InDelta(t, 100.0/3, u.Weight, 0.001)
		assert.Equal(t, 100.0, u.Progress)
	}

	assert.Equal(t, pipeline.StateCompleted, p.State())
	assert.Empty(t, rc.Failures)
}

func TestProgressCallbackFiresOncePerStage(t *testing.T) {
	stages := []pipeline.Stage{
		pipeline.UnitStage(okUnit("a")),
		pipeline.UnitStage(okUnit("b")),
	}

	type call struct {
		index, count int
		name         string
		overall      float64
	}
	var calls []call

	p := pipeline.New(pipeline.DefaultConfig(), stages,
		pipeline.WithProgressFunc(func(i, n int, name string, overall float64) {
			calls = append(calls, call{i, n, name, overall})
		}))

	_, err := p.Run(newContext())
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, call{0, 2, "a", 50.0}, calls[0])
	assert.Equal(t, call{1, 2, "b", 100.0}, calls[1])
}

func TestFailFastCriticalFailureAborts(t *testing.T) {
	executed := false
	stages := []pipeline.Stage{
		pipeline.UnitStage(okUnit("a")),
		pipeline.UnitStage(failUnit("boom", true)),
		pipeline.UnitStage(&types.FuncUnit{
			ID: "after",
			Fn: func(rc *types.Context) error {
				executed = true
				return nil
			},
		}),
	}
	p := pipeline.New(pipeline.Config{FailFast: true}, stages)

	rc, err := p.Run(newContext())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnitFailure))
	assert.Equal(t, pipeline.StateAborted, p.State())
	assert.False(t, executed, "stages after the fatal one must not run")

	// The fatal failure is surfaced, not recorded.
	assert.Empty(t, rc.Failures)
}

func TestFailFastNonCriticalFailureContinues(t *testing.T) {
	stages := []pipeline.Stage{
		pipeline.UnitStage(failUnit("warn", false)),
		pipeline.UnitStage(okUnit("b")),
	}
	p := pipeline.New(pipeline.Config{FailFast: true}, stages)

	rc, err := p.Run(newContext())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateCompleted, p.State())

	require.Len(t, rc.Failures, 1)
	assert.Equal(t, "warn", rc.Failures[0].Unit)
	assert.False(t, rc.Failures[0].Critical)
	assert.Equal(t, "done", rc.Results["b"])
}

func TestFailSlowRecordsAllFailures(t *testing.T) {
	stages := []pipeline.Stage{
		pipeline.UnitStage(failUnit("one", true)),
		pipeline.UnitStage(okUnit("ok")),
		pipeline.UnitStage(failUnit("two", true)),
	}
	p := pipeline.New(pipeline.Config{FailFast: false}, stages)

	rc, err := p.Run(newContext())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateCompleted, p.State())

	require.Len(t, rc.Failures, 2)
	assert.Equal(t, "one", rc.Failures[0].Unit)
	assert.Equal(t, "two", rc.Failures[1].Unit)
	assert.Equal(t, "done", rc.Results["ok"])
}

func TestPipelineCannotBeReused(t *testing.T) {
	p := pipeline.New(pipeline.DefaultConfig(), []pipeline.Stage{
		pipeline.UnitStage(okUnit("a")),
	})

	_, err := p.Run(newContext())
	require.NoError(t, err)

	_, err = p.Run(newContext())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPipelineReused))
}

func TestEmptyPipelineIsAnError(t *testing.T) {
	p := pipeline.New(pipeline.DefaultConfig(), nil)

	_, err := p.Run(newContext())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPipelineEmpty))
}

func TestNewPipelineForwardsToNew(t *testing.T) {
	build := func(ctor func(pipeline.Config, []pipeline.Stage, ...pipeline.Option) *pipeline.Pipeline) *pipeline.Pipeline {
		return ctor(pipeline.Config{FailFast: false}, []pipeline.Stage{
			pipeline.UnitStage(failUnit("x", true)),
			pipeline.UnitStage(okUnit("y")),
		})
	}

	p1 := build(pipeline.New)
	p2 := build(pipeline.NewPipeline)

	rc1, err1 := p1.Run(newContext())
	rc2, err2 := p2.Run(newContext())

	assert.Equal(t, err1, err2)
	assert.Equal(t, p1.State(), p2.State())
	assert.Equal(t, len(rc1.Failures), len(rc2.Failures))
	assert.Equal(t, p1.Status().Overall, p2.Status().Overall)
}

func TestSelfReportedProgressIsPreserved(t *testing.T) {
	stages := []pipeline.Stage{
		pipeline.UnitStage(&types.FuncUnit{
			ID: "half",
			Fn: func(rc *types.Context) error {
				rc.SetProgress(50)
				return nil
			},
		}),
	}
	p := pipeline.New(pipeline.DefaultConfig(), stages)

	_, err := p.Run(newContext())
	require.NoError(t, err)

	snap := p.Status()
	require.Len(t, snap.Units, 1)
	assert.Equal(t, 50.0, snap.Units[0].Progress)
}

func TestMockUnitIsExecutedExactlyOnce(t *testing.T) {
	m := &MockUnit{ID: "mocked"}
	m.On("Execute", mock.Anything).Return(nil).Once()

	p := pipeline.New(pipeline.DefaultConfig(), []pipeline.Stage{
		pipeline.UnitStage(m),
	})

	_, err := p.Run(newContext())
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestAggregatedError(t *testing.T) {
	rc := newContext()
	assert.NoError(t, pipeline.AggregatedError(rc))

	rc.RecordFailure("a", 0, true, fmt.Errorf("x"))
	rc.RecordFailure("b", 1, false, fmt.Errorf("y"))

	err := pipeline.AggregatedError(rc)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAggregatedFailures))
	assert.Contains(t, err.Error(), "2 unit failure(s)")
}
