// File: cmd/devup/version.go
// Brief: The 'devup version' command.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/devup/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devup version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().Short())
		},
	}
}
