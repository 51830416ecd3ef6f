// Package plan loads pipeline definitions from TOML or YAML files and
// builds runnable stage sequences from them.
package plan

import (
	"time"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/pipeline"
	"github.com/arthur-debert/stagehand/pkg/types"
	"github.com/arthur-debert/stagehand/pkg/units"
)

// Plan is a parsed pipeline definition.
type Plan struct {
	// Name identifies the pipeline in output and reports
	Name string `koanf:"name" yaml:"name"`

	// FailFast aborts the run on critical failure; defaults to true
	FailFast *bool `koanf:"fail-fast" yaml:"fail-fast"`

	// Stages is the ordered stage sequence
	Stages []StageSpec `koanf:"stages" yaml:"stages"`
}

// StageSpec is one stage of a plan: either a single command, or a group of
// units run concurrently.
type StageSpec struct {
	Name        string `koanf:"name" yaml:"name"`
	Description string `koanf:"description" yaml:"description"`

	// Single-unit stage fields
	Command  string `koanf:"command" yaml:"command"`
	Critical *bool  `koanf:"critical" yaml:"critical"`
	Timeout  string `koanf:"timeout" yaml:"timeout"`
	Retries  int    `koanf:"retries" yaml:"retries"`
	Dir      string `koanf:"dir" yaml:"dir"`

	// Group stage fields
	Units          []UnitSpec `koanf:"units" yaml:"units"`
	Policy         string     `koanf:"policy" yaml:"policy"`
	MaxConcurrency int        `koanf:"max-concurrency" yaml:"max-concurrency"`
	Deadline       string     `koanf:"deadline" yaml:"deadline"`
}

// UnitSpec is one unit of a group stage.
type UnitSpec struct {
	Name        string            `koanf:"name" yaml:"name"`
	Description string            `koanf:"description" yaml:"description"`
	Command     string            `koanf:"command" yaml:"command"`
	Critical    *bool             `koanf:"critical" yaml:"critical"`
	Timeout     string            `koanf:"timeout" yaml:"timeout"`
	Retries     int               `koanf:"retries" yaml:"retries"`
	Dir         string            `koanf:"dir" yaml:"dir"`
	Env         map[string]string `koanf:"env" yaml:"env"`
}

// Config returns the pipeline configuration the plan declares.
func (p *Plan) Config() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if p.FailFast != nil {
		cfg.FailFast = *p.FailFast
	}
	return cfg
}

// Build validates the plan and constructs the runnable stage sequence.
func (p *Plan) Build() ([]pipeline.Stage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	stages := make([]pipeline.Stage, 0, len(p.Stages))
	for _, spec := range p.Stages {
		if len(spec.Units) == 0 {
			unit, err := buildUnit(spec.Name, spec.Description, spec.Command, spec.Dir, nil,
				spec.Critical, spec.Timeout, spec.Retries)
			if err != nil {
				return nil, err
			}
			stages = append(stages, pipeline.UnitStage(unit))
			continue
		}

		groupCfg, err := buildGroupConfig(spec)
		if err != nil {
			return nil, err
		}

		members := make([]types.Unit, 0, len(spec.Units))
		for _, us := range spec.Units {
			unit, err := buildUnit(us.Name, us.Description, us.Command, us.Dir, us.Env,
				us.Critical, us.Timeout, us.Retries)
			if err != nil {
				return nil, err
			}
			members = append(members, unit)
		}
		stages = append(stages, pipeline.GroupStage(spec.Name, groupCfg, members...))
	}
	return stages, nil
}

// Validate checks the plan for structural problems before building.
func (p *Plan) Validate() error {
	if len(p.Stages) == 0 {
		return errors.New(errors.ErrPlanInvalid, "plan declares no stages")
	}
	for i, spec := range p.Stages {
		if spec.Name == "" {
			return errors.Newf(errors.ErrPlanInvalid, "stage %d has no name", i)
		}
		single := spec.Command != ""
		group := len(spec.Units) > 0
		switch {
		case single && group:
			return errors.Newf(errors.ErrPlanInvalid,
				"stage %s declares both a command and units", spec.Name)
		case !single && !group:
			return errors.Newf(errors.ErrPlanInvalid,
				"stage %s declares neither a command nor units", spec.Name)
		}
		if group {
			if _, err := parsePolicy(spec.Policy); err != nil {
				return errors.Wrapf(err, errors.ErrPlanInvalid,
					"stage %s has an invalid policy", spec.Name)
			}
			for j, us := range spec.Units {
				if us.Name == "" {
					return errors.Newf(errors.ErrPlanInvalid,
						"stage %s unit %d has no name", spec.Name, j)
				}
				if us.Command == "" {
					return errors.Newf(errors.ErrPlanInvalid,
						"stage %s unit %s has no command", spec.Name, us.Name)
				}
			}
		}
	}
	return nil
}

func buildUnit(name, desc, command, dir string, env map[string]string,
	critical *bool, timeout string, retries int) (*units.CommandUnit, error) {

	d, err := parseDuration(timeout)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrPlanInvalid,
			"unit %s has an invalid timeout", name)
	}

	return &units.CommandUnit{
		ID:          name,
		Desc:        desc,
		Command:     command,
		Dir:         dir,
		Env:         env,
		NonCritical: critical != nil && !*critical,
		Timeout:     d,
		Retries:     retries,
	}, nil
}

func buildGroupConfig(spec StageSpec) (pipeline.GroupConfig, error) {
	policy, err := parsePolicy(spec.Policy)
	if err != nil {
		return pipeline.GroupConfig{}, errors.Wrapf(err, errors.ErrPlanInvalid,
			"stage %s has an invalid policy", spec.Name)
	}
	deadline, err := parseDuration(spec.Deadline)
	if err != nil {
		return pipeline.GroupConfig{}, errors.Wrapf(err, errors.ErrPlanInvalid,
			"stage %s has an invalid deadline", spec.Name)
	}
	return pipeline.GroupConfig{
		Policy:         policy,
		MaxConcurrency: spec.MaxConcurrency,
		Deadline:       deadline,
	}, nil
}

func parsePolicy(s string) (pipeline.Policy, error) {
	switch s {
	case "", "all":
		return pipeline.PolicyAll, nil
	case "any":
		return pipeline.PolicyAny, nil
	default:
		return pipeline.PolicyAll, errors.Newf(errors.ErrPlanInvalid,
			"unknown policy %q (want all or any)", s)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
