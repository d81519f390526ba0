// File: cmd/devup/reset.go
// Brief: The 'devup reset' command: re-open the pipeline from a stage.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/devup/internal/config"
	"github.com/example/devup/internal/pipeline"
)

func newResetCommand(opts *config.Options, logLevel *string) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a stage and every later stage back to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := buildLogger(*logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if err := opts.Validate(); err != nil {
				return err
			}
			if from == "" {
				return fmt.Errorf("--from is required (see 'devup plan' for stage names)")
			}

			liveSum := ""
			if resolved, _, err := loadResolvedConfig(opts.ConfigFile, logger); err == nil {
				liveSum = pipeline.Checksum(resolved)
			}
			graph := pipeline.DefaultGraph()
			store := pipeline.NewStore(opts.ProgressFile, graph, liveSum, logger)
			orch := pipeline.NewOrchestrator(graph, store, logger)
			if err := orch.ResetFrom(from); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset stages from %s onward to pending.\n", from)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First stage to reset; all later declared stages are reset too")
	return cmd
}
