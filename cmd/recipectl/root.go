package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recipectl",
		Short:         "Inspect recipe source tables and prompt templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newTableCommand())
	rootCmd.AddCommand(newPromptsCommand())

	return rootCmd
}
