// main.go bootstraps devup: it builds the root Cobra command, wires the
// viper config/env binding, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/example/devup/internal/config"
	"github.com/example/devup/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	logLevel := "info"
	cmd := &cobra.Command{
		Use:           "devup",
		Short:         "Resumable development environment provisioning",
		Long:          "devup provisions a multi-service development environment from a setup configuration, tracking per-stage progress so interrupted runs resume where they left off.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for devup output (debug, info, warn, error)")
	opts.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newRunCommand(opts, &logLevel),
		newStatusCommand(opts, &logLevel),
		newPlanCommand(),
		newResetCommand(opts, &logLevel),
		newConfigCommand(opts, &logLevel),
		newVersionCommand(),
	)
	bindViper(cmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("DEVUP")
	v.AutomaticEnv()
	configFile := os.Getenv("DEVUP_CONFIG")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("devup")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	return logging.New(level)
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		message = fmt.Sprintf("%s\nHint: the run was interrupted; 'devup run' will resume from the first incomplete stage.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
