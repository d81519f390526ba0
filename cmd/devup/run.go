// File: cmd/devup/run.go
// Brief: The 'devup run' command: resolve config, resume, execute.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/example/devup/internal/actions"
	"github.com/example/devup/internal/config"
	"github.com/example/devup/internal/configtree"
	"github.com/example/devup/internal/pipeline"
)

func newRunCommand(opts *config.Options, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the provisioning pipeline, resuming where the last run stopped",
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

			resolved, res, err := loadResolvedConfig(opts.ConfigFile, logger)
			if err != nil {
				return err
			}
			if res.Status != configtree.StatusResolved {
				logger.Warn("configuration only partially resolved",
					zap.String("status", string(res.Status)),
					zap.Strings("unresolved", res.Unresolved))
			}

			graph := pipeline.DefaultGraph()
			if err := graph.Validate(); err != nil {
				return err
			}
			store := pipeline.NewStore(opts.ProgressFile, graph, pipeline.Checksum(resolved), logger)
			orch := pipeline.NewOrchestrator(graph, store, logger)

			if resume, ok := orch.ResumePoint(); ok {
				logger.Info("resuming setup", zap.String("stage", resume))
			} else if !opts.Force {
				fmt.Fprintln(cmd.OutOrStdout(), "All stages already completed. Use --force to re-run.")
				return nil
			}

			if !opts.Yes && !autoConfirm(resolved) {
				ok, err := confirm(cmd, "Proceed with setup?")
				if err != nil {
					return err
				}
				if !ok {
					logger.Info("setup cancelled by user")
					return nil
				}
			}

			runner := pipeline.NewRunner(orch, actions.FromConfig(resolved, graph, logger), pipeline.RunOptions{
				Force:           opts.Force,
				ContinueOnError: opts.ContinueOnError,
			}, logger)
			runErr := runner.Run(cmd.Context(), resolved)

			fmt.Fprintln(cmd.OutOrStdout())
			orch.Report(cmd.OutOrStdout())
			return runErr
		},
	}
}

// loadResolvedConfig loads and resolves the setup configuration.
// Resolution itself never fails; only a missing or unparsable file
// does.
func loadResolvedConfig(path string, logger *zap.Logger) (cty.Value, configtree.Result, error) {
	root, err := configtree.Load(path)
	if err != nil {
		return cty.NilVal, configtree.Result{}, err
	}
	res := configtree.NewResolver(logger).Resolve(root)
	return res.Root, res, nil
}

func autoConfirm(resolved cty.Value) bool {
	v, ok := configtree.LookupString(resolved, "setup_options.auto_confirm")
	return ok && v == "true"
}

// confirm asks y/N on the terminal. A non-interactive stdin counts as a
// decline so unattended runs must pass --yes explicitly.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(cmd.OutOrStdout(), "Refusing to proceed without a terminal; pass --yes to confirm non-interactively.")
		return false, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (y/N): ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
