package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/stagehand/pkg/plan"
)

var printPlan bool

var validateCmd = &cobra.Command{
	Use:   "validate <plan-file>",
	Short: "Validate a pipeline plan without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}

		if printPlan {
			out, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}

		fmt.Printf("%s: %d stage(s), ok\n", p.Name, len(p.Stages))
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&printPlan, "print", false, "Print the normalized plan as YAML")

	rootCmd.AddCommand(validateCmd)
}
