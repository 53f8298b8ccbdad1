package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvyanru/chatctl/internal/cli/chat"
	"github.com/lvyanru/chatctl/internal/cli/tui"
	"github.com/lvyanru/chatctl/internal/cli/ui"
	"github.com/lvyanru/chatctl/internal/domain"
)

// chatCmd is the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "start interactive chat",
	Long: `Start an interactive chat session.

Features:
  • Streamed replies rendered as they arrive
  • One credit per answered message, shown in the status bar
  • Markdown rendering of finished replies`,
	Example: `  # Start interactive chat
  $ chatctl chat

  # Keyboard controls:
  • Enter sends the message
  • ↑↓ / PgUp PgDn scroll
  • Esc quits`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.SilenceUsage = true
}

func runChat(cmd *cobra.Command, args []string) error {
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

	// toasts belong to the TUI while it owns the terminal
	wakeups := tui.NewWakeups()
	e.notes.OnToast = wakeups.OnToast
	ctrl := e.controller(sess, nil, wakeups.Observe)

	program := tui.NewChatProgram(tui.Options{
		Controller:       ctrl,
		Notifications:    e.notes,
		Wakeups:          wakeups,
		RefreshInterval:  e.cfg.Chat.RefreshInterval,
		RefreshAfterSend: e.cfg.Chat.RefreshAfterSend,
		Markdown:         e.cfg.UI.Markdown,
		Logger:           e.logger,
	})
	if err := program.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrNotLoggedIn) {
			ui.PrintWarning("%s", chat.MsgSessionExpired)
			loginHint{}.ToLogin("chat")
			return fmt.Errorf("session expired")
		}
		return fmt.Errorf("failed to run chat TUI: %w", err)
	}

	if final := ctrl.Session(); final != nil {
		ui.PrintInfo("%d credits left", final.Credits)
	}
	return nil
}
