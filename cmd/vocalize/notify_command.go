package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vocalize/internal/app"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if a.Config.Notifications.NtfyTopic == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Notifications disabled (notifications.ntfy_topic is empty)")
					return nil
				}
				if err := a.Notifier.TestNotification(cmd.Context()); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	})
	return notifyCmd
}
