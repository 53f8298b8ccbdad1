package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvyanru/chatctl/internal/cli/payment"
	"github.com/lvyanru/chatctl/internal/cli/ui"
	"github.com/lvyanru/chatctl/internal/domain"
)

var creditsOpen bool

// creditsCmd groups the purchase flow
var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "list, buy and verify credit packages",
	Example: `  # What can I buy?
  $ chatctl credits packages

  # Open hosted checkout for a package
  $ chatctl credits buy basic

  # After paying, hand back the page you were redirected to
  $ chatctl credits verify 'http://localhost:8080/chat.html?payment_success=true&session_id=cs_123'`,
}

var creditsPackagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "list purchasable credit packages",
	Args:  cobra.NoArgs,
	RunE:  runCreditsPackages,
}

var creditsBuyCmd = &cobra.Command{
	Use:   "buy <package>",
	Short: "start checkout for a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreditsBuy,
}

var creditsVerifyCmd = &cobra.Command{
	Use:   "verify <return-url|session-id>",
	Short: "confirm a finished checkout and update the balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreditsVerify,
}

var creditsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "show past purchases",
	Args:  cobra.NoArgs,
	RunE:  runCreditsHistory,
}

func init() {
	creditsBuyCmd.Flags().BoolVar(&creditsOpen, "open", true, "Open the checkout page in the browser")

	creditsCmd.AddCommand(creditsPackagesCmd)
	creditsCmd.AddCommand(creditsBuyCmd)
	creditsCmd.AddCommand(creditsVerifyCmd)
	creditsCmd.AddCommand(creditsHistoryCmd)

	for _, c := range creditsCmd.Commands() {
		c.SilenceUsage = true
	}
}

// redirector builds the payment flow for the stored session
func redirector(cmd *cobra.Command, nav payment.Navigator) (*env, *payment.Redirector, error) {
	e, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	sess, err := e.requireSession(cmd.Context())
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	ctrl := e.controller(sess, loginHint{}, nil)
	return e, payment.NewRedirector(e.api, ctrl, nav, e.notes, e.logger), nil
}

func runCreditsPackages(cmd *cobra.Command, args []string) error {
	e, r, err := redirector(cmd, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	pkgs, err := r.Packages(cmd.Context())
	if err != nil {
		ui.PrintDomainError("Failed to load credit packages", err)
		e.expired(cmd.Context(), err)
		return fmt.Errorf("packages failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderPackages(pkgs))
	return nil
}

func runCreditsBuy(cmd *cobra.Command, args []string) error {
	var nav payment.Navigator
	if creditsOpen {
		nav = payment.BrowserNavigator{}
	}
	e, r, err := redirector(cmd, nav)
	if err != nil {
		return err
	}
	defer e.Close()

	url, err := r.Checkout(cmd.Context(), args[0])
	if err != nil {
		if domain.IsValidation(err) || domain.IsServerRejected(err) {
			ui.PrintError("%s", ui.ErrorMessage(err))
		}
		e.expired(cmd.Context(), err)
		return fmt.Errorf("checkout failed")
	}

	ui.PrintInfo("Checkout page: %s", url)
	fmt.Println()
	ui.PrintBold("After paying, verify with:")
	ui.PrintBold("  chatctl credits verify '<the URL you were sent back to>'")
	return nil
}

func runCreditsVerify(cmd *cobra.Command, args []string) error {
	ret, err := payment.ParseReturn(args[0])
	if err != nil {
		ui.PrintDomainError("Invalid return URL", err)
		return fmt.Errorf("invalid arguments")
	}

	e, r, err := redirector(cmd, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	added, err := r.Settle(cmd.Context(), ret)
	if err != nil {
		if domain.IsValidation(err) {
			ui.PrintDomainError("Cannot verify payment", err)
		}
		e.expired(cmd.Context(), err)
		return fmt.Errorf("verification failed")
	}
	if added {
		if sess, _ := e.store.Load(cmd.Context()); sess != nil {
			ui.PrintInfo("Balance: %d credits", sess.Credits)
		}
	}
	return nil
}

func runCreditsHistory(cmd *cobra.Command, args []string) error {
	e, r, err := redirector(cmd, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	txs, err := r.History(cmd.Context())
	if err != nil {
		ui.PrintDomainError("Failed to load transactions", err)
		e.expired(cmd.Context(), err)
		return fmt.Errorf("history failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTransactions(txs))
	return nil
}
