// Package report writes machine-readable reports of a finished pipeline
// run, in the JUnit XML dialect CI systems ingest.
package report

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/progress"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// Run is the data a report is built from.
type Run struct {
	// Plan is the pipeline name
	Plan string

	// Snapshot is the final progress snapshot of the run
	Snapshot progress.Snapshot

	// Failures is the context's recorded failure sequence
	Failures []types.Failure

	// Aborted reports whether the run stopped on a fatal failure
	Aborted bool

	// Duration is the wall-clock duration of the run
	Duration time.Duration
}

// WriteJUnit writes the run as a JUnit XML file: one testsuite for the
// plan, one testcase per tracked unit, failures embedded under the unit
// they belong to.
func WriteJUnit(path string, run Run) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	failuresByUnit := make(map[string][]types.Failure)
	for _, f := range run.Failures {
		failuresByUnit[f.Unit] = append(failuresByUnit[f.Unit], f)
	}

	suite := doc.CreateElement("testsuite")
	suite.CreateAttr("name", run.Plan)
	suite.CreateAttr("tests", fmt.Sprintf("%d", len(run.Snapshot.Units)))
	suite.CreateAttr("failures", fmt.Sprintf("%d", len(run.Failures)))
	suite.CreateAttr("time", fmt.Sprintf("%.3f", run.Duration.Seconds()))
	if run.Aborted {
		suite.CreateAttr("errors", "1")
	}

	for _, u := range run.Snapshot.Units {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", u.Name)
		tc.CreateAttr("classname", run.Plan)

		if !u.Done {
			tc.CreateElement("skipped")
		}
		for _, f := range failuresByUnit[u.Name] {
			fe := tc.CreateElement("failure")
			fe.CreateAttr("message", f.Err.Error())
			fe.CreateAttr("type", fmt.Sprintf("critical=%t", f.Critical))
			fe.SetText(f.String())
		}
	}

	// Group-level failures (timeouts) have no matching unit; report them
	// on the suite so they are not silently dropped.
	tracked := make(map[string]bool, len(run.Snapshot.Units))
	for _, u := range run.Snapshot.Units {
		tracked[u.Name] = true
	}
	for _, f := range run.Failures {
		if tracked[f.Unit] {
			continue
		}
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", f.Unit)
		tc.CreateAttr("classname", run.Plan)
		fe := tc.CreateElement("failure")
		fe.CreateAttr("message", f.Err.Error())
		fe.SetText(f.String())
	}

	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return errors.Wrapf(err, errors.ErrReportWrite, "failed to write report to %s", path)
	}
	return nil
}
