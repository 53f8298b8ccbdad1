package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvyanru/chatctl/internal/cli/ui"
)

// notificationsCmd lists notifications when run without a subcommand
var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notes"},
	Short:   "list, add and mark notifications",
	Args:    cobra.NoArgs,
	RunE:    runNotificationsList,
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list notifications",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read",
	Short: "mark all notifications as read",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsRead,
}

var notificationsAddCmd = &cobra.Command{
	Use:   "add <message>",
	Short: "store a notification",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsAdd,
}

func init() {
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsAddCmd)

	notificationsCmd.SilenceUsage = true
	for _, c := range notificationsCmd.Commands() {
		c.SilenceUsage = true
	}
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()

	sess, err := e.requireSession(ctx)
	if err != nil {
		return err
	}
	if err := e.notes.Sync(ctx, sess.Token); err != nil {
		e.expired(ctx, err)
		return fmt.Errorf("notifications failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotifications(e.notes.Items()))
	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()

	sess, err := e.requireSession(ctx)
	if err != nil {
		return err
	}
	if err := e.notes.MarkAllRead(ctx, sess.Token); err != nil {
		e.expired(ctx, err)
		return fmt.Errorf("mark read failed")
	}
	ui.PrintSuccess("All notifications marked as read")
	return nil
}

func runNotificationsAdd(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()

	sess, err := e.requireSession(ctx)
	if err != nil {
		return err
	}
	if err := e.notes.Add(ctx, sess.Token, args[0]); err != nil {
		ui.PrintDomainError("Failed to add notification", err)
		e.expired(ctx, err)
		return fmt.Errorf("add failed")
	}
	return nil
}
