package units_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/types"
	"github.com/arthur-debert/stagehand/pkg/units"
)

func newContext() *types.Context {
	return types.NewContext(nil, zerolog.Nop())
}

func TestExecuteCapturesStdout(t *testing.T) {
	u := &units.CommandUnit{ID: "greet", Command: "echo hello"}

	rc := newContext()
	require.NoError(t, u.Execute(rc))
	assert.Equal(t, "hello", rc.Results["greet"])
}

func TestExecuteFailureCarriesStderr(t *testing.T) {
	u := &units.CommandUnit{ID: "bad", Command: "echo oops >&2; exit 3"}

	err := u.Execute(newContext())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandExit))

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "oops", details["stderr"])
}

func TestExecuteFailureLeavesNoResult(t *testing.T) {
	u := &units.CommandUnit{ID: "bad", Command: "exit 1"}

	rc := newContext()
	require.Error(t, u.Execute(rc))
	assert.NotContains(t, rc.Results, "bad")
}

func TestExecuteAppliesEnv(t *testing.T) {
	u := &units.CommandUnit{
		ID:      "env",
		Command: "echo $STAGEHAND_TEST_VAR",
		Env:     map[string]string{"STAGEHAND_TEST_VAR": "layered"},
	}

	rc := newContext()
	require.NoError(t, u.Execute(rc))
	assert.Equal(t, "layered", rc.Results["env"])
}

func TestExecuteRunsInDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0644))

	u := &units.CommandUnit{ID: "ls", Command: "ls", Dir: dir}

	rc := newContext()
	require.NoError(t, u.Execute(rc))
	assert.Equal(t, "marker", rc.Results["ls"])
}

func TestExecuteReportsFullProgress(t *testing.T) {
	sink := &captureSink{}
	rc := newContext()
	rc.BindProgress(sink, "0:0:greet")

	u := &units.CommandUnit{ID: "greet", Command: "true"}
	require.NoError(t, u.Execute(rc))
	assert.Equal(t, 100.0, sink.last)
}

func TestDescriptionFallsBackToCommand(t *testing.T) {
	u := &units.CommandUnit{ID: "x", Command: "make build"}
	assert.Equal(t, "make build", u.Description())

	u.Desc = "compile everything"
	assert.Equal(t, "compile everything", u.Description())
}

func TestCapabilities(t *testing.T) {
	u := &units.CommandUnit{
		ID:          "x",
		Command:     "true",
		NonCritical: true,
		Timeout:     time.Minute,
		Retries:     2,
	}

	assert.False(t, types.IsCritical(u))
	assert.Equal(t, time.Minute, types.TimeoutOf(u))
	assert.Equal(t, 2, types.RetriesOf(u))
}

type captureSink struct {
	last float64
}

func (s *captureSink) Update(unitID string, progress float64) { s.last = progress }
