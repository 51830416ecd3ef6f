// Package units provides the concrete unit types used by the stagehand
// runner. The engine itself only knows the types.Unit interface; these are
// the units a plan file produces.
package units

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// CommandUnit runs a shell command. Its captured stdout is stored in the
// context's result map under the unit name, so later stages (and group
// merges) can consume it.
type CommandUnit struct {
	// ID is the unit name
	ID string

	// Desc is a human-readable description; defaults to the command line
	Desc string

	// Command is the shell command line, run via sh -c
	Command string

	// Dir is the working directory; empty means the current directory
	Dir string

	// Env holds extra environment variables layered over the process env
	Env map[string]string

	// NonCritical marks the unit's failure as non-fatal under fail-fast
	NonCritical bool

	// Timeout is the advisory timeout hint from the plan; not enforced
	Timeout time.Duration

	// Retries is the advisory retry hint from the plan; not enforced
	Retries int
}

var (
	_ types.Unit          = (*CommandUnit)(nil)
	_ types.CriticalUnit  = (*CommandUnit)(nil)
	_ types.TimeoutHinter = (*CommandUnit)(nil)
	_ types.RetryHinter   = (*CommandUnit)(nil)
)

// Name returns the unit identifier
func (u *CommandUnit) Name() string { return u.ID }

// Description returns the description, falling back to the command line
func (u *CommandUnit) Description() string {
	if u.Desc != "" {
		return u.Desc
	}
	return u.Command
}

// Critical reports whether the unit is critical
func (u *CommandUnit) Critical() bool { return !u.NonCritical }

// TimeoutHint returns the advisory timeout
func (u *CommandUnit) TimeoutHint() time.Duration { return u.Timeout }

// RetryHint returns the advisory retry count
func (u *CommandUnit) RetryHint() int { return u.Retries }

// Execute runs the command and stores its trimmed stdout under the unit
// name in the result map.
func (u *CommandUnit) Execute(rc *types.Context) error {
	logger := rc.Logger.With().Str("unit", u.ID).Logger()
	logger.Debug().Str("command", u.Command).Str("dir", u.Dir).Msg("Running command")

	cmd := exec.Command("/bin/sh", "-c", u.Command)
	cmd.Dir = u.Dir

	if len(u.Env) > 0 {
		env := os.Environ()
		for k, v := range u.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, errors.ErrCommandStart, "failed to start command for unit %s", u.ID).
			WithDetail("command", u.Command)
	}

	err := cmd.Wait()
	rc.SetProgress(100)

	if err != nil {
		logger.Error().
			Err(err).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("Command failed")
		return errors.Wrapf(err, errors.ErrCommandExit, "command for unit %s exited with error", u.ID).
			WithDetail("command", u.Command).
			WithDetail("stderr", strings.TrimSpace(stderr.String()))
	}

	rc.Results[u.ID] = strings.TrimRight(stdout.String(), "\n")

	logger.Debug().
		Dur("duration", time.Since(start)).
		Msg("Command completed")
	return nil
}
