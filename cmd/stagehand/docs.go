package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

//go:embed docs/plans.md
var plansTopic string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the plan file format documentation",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Plain output when piped or redirected
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			fmt.Print(plansTopic)
			return nil
		}

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			fmt.Print(plansTopic)
			return nil
		}
		rendered, err := renderer.Render(plansTopic)
		if err != nil {
			fmt.Print(plansTopic)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
