package plan

import (
	_ "embed"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/stagehand/pkg/errors"
)

//go:embed defaults.toml
var defaultPlan []byte

// Load reads a plan file (TOML or YAML, by extension) layered over the
// embedded defaults and unmarshals it.
func Load(path string) (*Plan, error) {
	k := koanf.New(".")

	// 1. System defaults
	if err := k.Load(rawbytes.Provider(defaultPlan), toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load plan defaults")
	}

	// 2. The plan file itself
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, errors.Wrapf(err, errors.ErrPlanLoad, "failed to load plan from %s", path)
	}

	var p Plan
	if err := k.Unmarshal("", &p); err != nil {
		return nil, errors.Wrapf(err, errors.ErrPlanParse, "failed to parse plan from %s", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, errors.Newf(errors.ErrPlanLoad,
			"unsupported plan format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}
