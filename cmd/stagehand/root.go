package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/stagehand/internal/version"
	"github.com/arthur-debert/stagehand/pkg/logging"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbosity int
	noColor   bool

	rootCmd = &cobra.Command{
		Use:   "stagehand",
		Short: "A staged task-pipeline runner",
		Long: `stagehand runs pipelines of tasks declared in a plan file: an ordered
sequence of stages, where each stage is a single command or a group of
commands executed concurrently, with weighted progress reporting and
fail-fast or fail-slow failure handling.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(verbosity)

			if noColor {
				// Both lipgloss/termenv and format auto-detection
				// honor NO_COLOR.
				_ = os.Setenv("NO_COLOR", "1")
				pterm.DisableColor()
			}

			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Verbosity flag for logging
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stagehand %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}
