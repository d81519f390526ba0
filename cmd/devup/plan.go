// File: cmd/devup/plan.go
// Brief: The 'devup plan' command: print the stage table.

package main

import (
	"github.com/spf13/cobra"

	"github.com/example/devup/internal/pipeline"
)

func newPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the stage pipeline with dependency waves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graph := pipeline.DefaultGraph()
			if err := graph.Validate(); err != nil {
				return err
			}
			return pipeline.PrintPlanTable(cmd.OutOrStdout(), graph)
		},
	}
}
