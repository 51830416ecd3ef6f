package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/pipeline"
)

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func boolPtr(b bool) *bool { return &b }

func TestLoadTOML(t *testing.T) {
	path := writePlan(t, "release.toml", `
name = "release"
fail-fast = false

[[stages]]
name = "build"
command = "make build"
timeout = "2m"

[[stages]]
name = "checks"
policy = "any"
max-concurrency = 2
deadline = "30s"

  [[stages.units]]
  name = "lint"
  command = "make lint"
  critical = false

  [[stages.units]]
  name = "test"
  command = "make test"
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "release", p.Name)
	require.NotNil(t, p.FailFast)
	assert.False(t, *p.FailFast)

	require.Len(t, p.Stages, 2)
	assert.Equal(t, "build", p.Stages[0].Name)
	assert.Equal(t, "make build", p.Stages[0].Command)
	assert.Equal(t, "2m", p.Stages[0].Timeout)

	checks := p.Stages[1]
	assert.Equal(t, "any", checks.Policy)
	assert.Equal(t, 2, checks.MaxConcurrency)
	require.Len(t, checks.Units, 2)
	require.NotNil(t, checks.Units[0].Critical)
	assert.False(t, *checks.Units[0].Critical)
	assert.Nil(t, checks.Units[1].Critical)
}

func TestLoadYAML(t *testing.T) {
	path := writePlan(t, "deploy.yaml", `
name: deploy
stages:
  - name: push
    command: git push
  - name: verify
    policy: all
    units:
      - name: smoke
        command: ./smoke.sh
        env:
          TARGET: staging
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deploy", p.Name)
	require.Len(t, p.Stages, 2)
	assert.Equal(t, "staging", p.Stages[1].Units[0].Env["TARGET"])
}

func TestLoadDefaultsFailFastTrue(t *testing.T) {
	path := writePlan(t, "minimal.toml", `
[[stages]]
name = "only"
command = "true"
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.True(t, p.Config().FailFast)
}

func TestLoadNameDefaultsToBasename(t *testing.T) {
	path := writePlan(t, "nightly.yml", `
stages:
  - name: backup
    command: ./backup.sh
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", p.Name)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writePlan(t, "plan.json", `{}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPlanLoad))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPlanLoad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr string
	}{
		{
			name:    "no stages",
			plan:    Plan{},
			wantErr: "no stages",
		},
		{
			name: "unnamed stage",
			plan: Plan{Stages: []StageSpec{
				{Command: "true"},
			}},
			wantErr: "has no name",
		},
		{
			name: "command and units together",
			plan: Plan{Stages: []StageSpec{
				{Name: "x", Command: "true", Units: []UnitSpec{{Name: "u", Command: "true"}}},
			}},
			wantErr: "both a command and units",
		},
		{
			name: "neither command nor units",
			plan: Plan{Stages: []StageSpec{
				{Name: "x"},
			}},
			wantErr: "neither a command nor units",
		},
		{
			name: "unknown policy",
			plan: Plan{Stages: []StageSpec{
				{Name: "x", Policy: "most", Units: []UnitSpec{{Name: "u", Command: "true"}}},
			}},
			wantErr: "invalid policy",
		},
		{
			name: "unnamed group unit",
			plan: Plan{Stages: []StageSpec{
				{Name: "x", Units: []UnitSpec{{Command: "true"}}},
			}},
			wantErr: "has no name",
		},
		{
			name: "group unit without command",
			plan: Plan{Stages: []StageSpec{
				{Name: "x", Units: []UnitSpec{{Name: "u"}}},
			}},
			wantErr: "has no command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrPlanInvalid))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAcceptsWellFormedPlan(t *testing.T) {
	p := Plan{Stages: []StageSpec{
		{Name: "a", Command: "true"},
		{Name: "b", Policy: "any", Units: []UnitSpec{{Name: "u", Command: "true"}}},
	}}
	assert.NoError(t, p.Validate())
}

func TestBuild(t *testing.T) {
	p := Plan{Stages: []StageSpec{
		{Name: "prep", Command: "make prep", Critical: boolPtr(false), Timeout: "90s", Retries: 1},
		{Name: "gate", Policy: "any", MaxConcurrency: 3, Deadline: "1m", Units: []UnitSpec{
			{Name: "a", Command: "true"},
			{Name: "b", Command: "true"},
		}},
	}}

	stages, err := p.Build()
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.False(t, stages[0].IsGroup())
	require.Len(t, stages[0].Units(), 1)
	prep := stages[0].Units()[0]
	assert.Equal(t, "prep", prep.Name())

	assert.True(t, stages[1].IsGroup())
	assert.Equal(t, "gate", stages[1].Name())
	assert.Len(t, stages[1].Units(), 2)
}

func TestBuildInvalidTimeout(t *testing.T) {
	p := Plan{Stages: []StageSpec{
		{Name: "x", Command: "true", Timeout: "soon"},
	}}

	_, err := p.Build()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPlanInvalid))
}

func TestBuildInvalidDeadline(t *testing.T) {
	p := Plan{Stages: []StageSpec{
		{Name: "x", Deadline: "later", Units: []UnitSpec{{Name: "u", Command: "true"}}},
	}}

	_, err := p.Build()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPlanInvalid))
}

func TestParsePolicy(t *testing.T) {
	got, err := parsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, pipeline.PolicyAll, got)

	got, err = parsePolicy("any")
	require.NoError(t, err)
	assert.Equal(t, pipeline.PolicyAny, got)

	_, err = parsePolicy("quorum")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	d, err = parseDuration("45s")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}

func TestConfigFailFastOverride(t *testing.T) {
	p := Plan{FailFast: boolPtr(false)}
	assert.False(t, p.Config().FailFast)

	p = Plan{}
	assert.True(t, p.Config().FailFast)
}
