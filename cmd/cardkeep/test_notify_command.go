package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.notifier().TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
