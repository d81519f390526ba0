// File: cmd/devup/status.go
// Brief: The 'devup status' command: render the progress report.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/devup/internal/config"
	"github.com/example/devup/internal/pipeline"
)

func newStatusCommand(opts *config.Options, logLevel *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-stage progress from the persisted snapshot",
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

			// The report stays producible without a readable config;
			// staleness warnings just drop out.
			liveSum := ""
			if resolved, _, err := loadResolvedConfig(opts.ConfigFile, logger); err == nil {
				liveSum = pipeline.Checksum(resolved)
			} else {
				logger.Debug("config not readable, skipping staleness check", zap.Error(err))
			}

			graph := pipeline.DefaultGraph()
			store := pipeline.NewStore(opts.ProgressFile, graph, liveSum, logger)
			orch := pipeline.NewOrchestrator(graph, store, logger)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(orch.Snapshot())
			}
			orch.Report(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "report", "Output format: report or json")
	return cmd
}
