// File: cmd/devup/configcmd.go
// Brief: The 'devup config resolve' command: print the resolved tree.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/devup/internal/config"
	"github.com/example/devup/internal/configtree"
)

func newConfigCommand(opts *config.Options, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the setup configuration",
	}
	cmd.AddCommand(newConfigResolveCommand(opts, logLevel))
	return cmd
}

func newConfigResolveCommand(opts *config.Options, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the configuration with paths and variables resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := buildLogger(*logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			resolved, res, err := loadResolvedConfig(opts.ConfigFile, logger)
			if err != nil {
				return err
			}
			if res.Status != configtree.StatusResolved {
				logger.Warn("configuration only partially resolved",
					zap.String("status", string(res.Status)),
					zap.Strings("unresolved", res.Unresolved))
			}
			out, err := configtree.MarshalJSON(resolved)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
