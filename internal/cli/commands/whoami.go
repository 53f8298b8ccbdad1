package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvyanru/chatctl/internal/cli/profile"
	"github.com/lvyanru/chatctl/internal/cli/ui"
	"github.com/lvyanru/chatctl/internal/domain"
)

// whoamiCmd shows the logged-in user with a fresh credit balance
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "show the current user and credit balance",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

// profileCmd groups profile edits
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "edit your profile",
}

var profileSetUsernameCmd = &cobra.Command{
	Use:     "set-username <name>",
	Short:   "change your username",
	Example: `  $ chatctl profile set-username ann`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSetUsername,
}

func init() {
	profileCmd.AddCommand(profileSetUsernameCmd)

	whoamiCmd.SilenceUsage = true
	profileSetUsernameCmd.SilenceUsage = true
}

func runWhoami(cmd *cobra.Command, args []string) error {
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

	ctrl := e.controller(sess, loginHint{}, nil)
	if err := ctrl.Refresh(ctx); err != nil {
		if domain.IsAuthExpired(err) {
			return fmt.Errorf("session expired")
		}
		// the presenter already warned; fall back to the stored record
	}
	_ = e.notes.Sync(ctx, sess.Token)

	current := ctrl.Session()
	fmt.Println(ui.RenderProfile(ui.Profile{
		Username: current.Username,
		Email:    current.Email,
		Credits:  current.Credits,
		Unread:   e.notes.Unread(),
		Server:   e.api.Server(),
	}))
	return nil
}

func runSetUsername(cmd *cobra.Command, args []string) error {
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

	ctrl := e.controller(sess, loginHint{}, nil)
	editor := profile.NewEditor(e.api, ctrl, e.notes, e.logger)
	if _, err := editor.Update(ctx, args[0]); err != nil {
		switch {
		case domain.IsValidation(err):
			ui.PrintDomainError("Failed to update profile", err)
		case domain.IsServerRejected(err):
			ui.PrintError("%s", ui.ErrorMessage(err))
		}
		e.expired(ctx, err)
		return fmt.Errorf("profile update failed")
	}
	return nil
}
