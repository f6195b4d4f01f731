package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "cardkeep",
		Short:         "Scan trading cards into staged collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newCommitCommand(ctx))
	rootCmd.AddCommand(newUndoCommand(ctx))
	rootCmd.AddCommand(newCollectionCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
