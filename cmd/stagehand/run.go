package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/logging"
	"github.com/arthur-debert/stagehand/pkg/pipeline"
	"github.com/arthur-debert/stagehand/pkg/plan"
	"github.com/arthur-debert/stagehand/pkg/report"
	"github.com/arthur-debert/stagehand/pkg/style"
	"github.com/arthur-debert/stagehand/pkg/types"
	"github.com/arthur-debert/stagehand/pkg/ui"
)

var (
	reportPath string
	strictRun  bool
	formatFlag string
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute a pipeline plan",
	Long: `Execute the stages declared in a plan file (TOML or YAML), printing
progress after each completed stage and a summary at the end. Under
fail-fast (the default) a critical failure aborts the run; otherwise
failures are recorded and the run continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		stages, err := p.Build()
		if err != nil {
			return err
		}

		requested, err := ui.ParseFormat(formatFlag)
		if err != nil {
			return errors.Wrap(err, errors.ErrInvalidInput, "invalid --format value")
		}
		format := ui.Resolve(requested, os.Stdout)
		renderer := style.ForTerminal(format == ui.FormatTerminal)

		pipe := pipeline.New(p.Config(), stages,
			pipeline.WithProgressFunc(func(i, n int, name string, overall float64) {
				fmt.Println(renderer.RenderStageProgress(i, n, name, overall))
			}))

		rc := types.NewContext(p, logging.GetLogger("run"))

		start := time.Now()
		rc, runErr := pipe.Run(rc)
		elapsed := time.Since(start)

		snap := pipe.Status()
		aborted := pipe.State() == pipeline.StateAborted
		fmt.Print(renderer.RenderSummary(p.Name, snap, rc.Failures, aborted))

		if reportPath != "" {
			if err := report.WriteJUnit(reportPath, report.Run{
				Plan:     p.Name,
				Snapshot: snap,
				Failures: rc.Failures,
				Aborted:  aborted,
				Duration: elapsed,
			}); err != nil {
				return err
			}
		}

		if runErr != nil {
			return runErr
		}
		if strictRun {
			return pipeline.AggregatedError(rc)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&reportPath, "report", "", "Write a JUnit XML report of the run to this path")
	runCmd.Flags().BoolVar(&strictRun, "strict", false, "Exit non-zero when a fail-slow run recorded failures")
	runCmd.Flags().StringVar(&formatFlag, "format", "auto", "Output format: auto, term or text")

	rootCmd.AddCommand(runCmd)
}
