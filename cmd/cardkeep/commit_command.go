package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cardkeep/internal/staging"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	var collectionName string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Merge staged scans into the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(collectionName)
			if err != nil {
				return err
			}

			staged := session.StagingSnapshot()
			quantity := staged.TotalQuantity()

			if err := session.Commit(); err != nil {
				if errors.Is(err, staging.ErrNothingStaged) {
					fmt.Fprintf(cmd.OutOrStdout(), "nothing staged for %s\n", collectionName)
					return nil
				}
				if notifyErr := ctx.notifier().NotifyError(cmd.Context(), err, "commit"); notifyErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), notifyErr)
				}
				return err
			}

			if err := ctx.notifier().NotifyCommitCompleted(cmd.Context(), collectionName, quantity); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %d cards into %s\n", quantity, collectionName)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "main", "Collection to commit into")
	return cmd
}

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var collectionName string

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent staging or collection change",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(collectionName)
			if err != nil {
				return err
			}
			if err := session.Undo(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reverted last change")
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "main", "Collection to undo against")
	return cmd
}
