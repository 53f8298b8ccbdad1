package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/cli/ui"
)

var (
	loginEmail         string
	loginPasswordStdin bool

	registerUsername string
	registerEmail    string

	logoutForce bool
)

// loginCmd is the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "sign in and store the session locally",
	Long: `Sign in with email and password and save the session locally.

The session (token and credit balance) is stored under ~/.chatctl and used
automatically by all other commands until it expires or you log out.`,
	Example: `  # Login (prompts for email and password)
  $ chatctl login

  # Login against another server
  $ chatctl login -s http://api.example.com:8080 -e ann@example.com

  # Non-interactive
  $ echo "$PASSWORD" | chatctl login -e ann@example.com --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// registerCmd creates an account
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "create a new account",
	Example: `  $ chatctl register -u ann -e ann@example.com`,
	Args:    cobra.NoArgs,
	RunE:    runRegister,
}

// logoutCmd removes the stored session
var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "forget the stored session",
	Example: `  $ chatctl logout --force`,
	Args:    cobra.NoArgs,
	RunE:    runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Email for authentication")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")

	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Email")
	registerCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")

	logoutCmd.Flags().BoolVarP(&logoutForce, "force", "f", false, "Skip confirmation prompt")

	// Silence usage to avoid showing help on every error
	loginCmd.SilenceUsage = true
	registerCmd.SilenceUsage = true
	logoutCmd.SilenceUsage = true
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()

	email := loginEmail
	if email == "" {
		prompt := &survey.Input{Message: "Email:"}
		if err := survey.AskOne(prompt, &email, survey.WithValidator(survey.Required)); err != nil {
			ui.PrintError("failed to read email: %v", err)
			return fmt.Errorf("input failed")
		}
	}

	password, err := readPassword(cmd, "Password:")
	if err != nil {
		return err
	}

	ui.PrintInfo("Connecting to %s...", e.api.Server())

	res, err := e.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		ui.PrintErrorBox("Login Failed", ui.ErrorMessage(err))
		return fmt.Errorf("authentication failed")
	}

	sess := &session.Session{
		ID:       res.User.ID,
		Username: res.User.Username,
		Email:    res.User.Email,
		Token:    res.Token,
		Credits:  res.User.Credits,
	}
	if err := e.store.Save(ctx, sess); err != nil {
		ui.PrintError("failed to save session: %v", err)
		return fmt.Errorf("session save failed")
	}

	successContent := fmt.Sprintf(`Username:       %s
Email:          %s
Credits:        %d
Session saved:  %s`,
		sess.Username,
		sess.Email,
		sess.Credits,
		e.cfg.Session.Path,
	)
	ui.PrintSuccessBox("✓ Login Successful", successContent)

	fmt.Println()
	ui.PrintInfo("You can now use the following commands:")
	ui.PrintBold("  chatctl chat              # Interactive chat")
	ui.PrintBold("  chatctl send \"question\"   # One-shot question")
	ui.PrintBold("  chatctl credits packages  # Buy more credits")

	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	answers := struct {
		Username string
		Email    string
	}{Username: registerUsername, Email: registerEmail}

	var qs []*survey.Question
	if answers.Username == "" {
		qs = append(qs, &survey.Question{Name: "username", Prompt: &survey.Input{Message: "Username:"}, Validate: survey.Required})
	}
	if answers.Email == "" {
		qs = append(qs, &survey.Question{Name: "email", Prompt: &survey.Input{Message: "Email:"}, Validate: survey.Required})
	}
	if len(qs) > 0 {
		if err := survey.Ask(qs, &answers); err != nil {
			ui.PrintError("failed to read input: %v", err)
			return fmt.Errorf("input failed")
		}
	}

	password, err := readPassword(cmd, "Password:")
	if err != nil {
		return err
	}
	if !loginPasswordStdin {
		confirm, err := readPassword(cmd, "Confirm password:")
		if err != nil {
			return err
		}
		if confirm != password {
			ui.PrintError("passwords do not match")
			return fmt.Errorf("input failed")
		}
	}

	res, err := e.api.Register(cmd.Context(), strings.TrimSpace(answers.Username), strings.TrimSpace(answers.Email), password)
	if err != nil {
		ui.PrintErrorBox("Registration Failed", ui.ErrorMessage(err))
		return fmt.Errorf("registration failed")
	}

	ui.PrintSuccess("Registration successful! Please log in.")
	ui.PrintBold("  chatctl login -e %s", res.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()

	sess, err := e.store.Load(ctx)
	if err != nil {
		ui.PrintError("failed to read session: %v", err)
		return fmt.Errorf("session load failed")
	}
	if sess == nil {
		ui.PrintInfo("Not logged in")
		return nil
	}

	if !logoutForce {
		confirm := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Log out %s?", sess.Email),
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			ui.PrintError("failed to read confirmation: %v", err)
			return fmt.Errorf("input failed")
		}
		if !confirm {
			ui.PrintInfo("Logout cancelled")
			return nil
		}
	}

	if err := e.store.Clear(ctx); err != nil {
		ui.PrintError("failed to clear session: %v", err)
		return fmt.Errorf("logout failed")
	}
	ui.PrintSuccess("Logged out")
	return nil
}

// readPassword prompts for a hidden password, or reads one line from stdin
// with --password-stdin
func readPassword(cmd *cobra.Command, message string) (string, error) {
	if loginPasswordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			ui.PrintError("failed to read password from stdin: %v", err)
			return "", fmt.Errorf("input failed")
		}
		return line, nil
	}

	var password string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &password, survey.WithValidator(survey.Required)); err != nil {
		ui.PrintError("failed to read password: %v", err)
		return "", fmt.Errorf("input failed")
	}
	return password, nil
}
