package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/lvyanru/chatctl/internal/cli/payment"
	"github.com/lvyanru/chatctl/internal/cli/types"
)

var (
	nameStyle      = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(colorUser)
	keyStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle     = lipgloss.NewStyle().Foreground(colorValue)
	highlightStyle = lipgloss.NewStyle().Foreground(colorHeading).Bold(true)

	summaryStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
)

// Profile is what whoami shows
type Profile struct {
	Username string
	Email    string
	Credits  int
	Unread   int
	Server   string
}

// RenderProfile renders the logged-in user as a small tree
func RenderProfile(p Profile) string {
	t := tree.Root(nameStyle.Render(p.Username))
	t.Child(field("email", p.Email))
	t.Child(field("credits", creditsLabel(p.Credits)))
	if p.Unread > 0 {
		t.Child(field("notifications", fmt.Sprintf("%d unread", p.Unread)))
	}
	t.Child(field("server", p.Server))
	return t.String()
}

// RenderPackages renders credit packages (price in cents)
func RenderPackages(packages []payment.Package) string {
	if len(packages) == 0 {
		return keyStyle.Render("No credit packages available")
	}

	t := tree.Root(highlightStyle.Render("Credit packages"))
	for _, p := range packages {
		label := fmt.Sprintf("%s  %s  %s",
			nameStyle.Render(p.ID),
			valueStyle.Render(fmt.Sprintf("%d credits", p.Credits)),
			keyStyle.Render(formatPrice(p.Price)),
		)
		t.Child(label)
	}
	return t.String() + "\n" + summaryStyle.Render("Buy with: chatctl credits buy <package>")
}

// RenderTransactions renders the payment history
func RenderTransactions(txs []types.Transaction) string {
	if len(txs) == 0 {
		return keyStyle.Render("No transactions found")
	}

	t := tree.Root(highlightStyle.Render("Transactions"))
	for _, tx := range txs {
		node := tree.Root(fmt.Sprintf("%s %s", nameStyle.Render(tx.ID), keyStyle.Render(tx.Date)))
		node.Child(field("amount", fmt.Sprintf("$%.2f", tx.Amount)))
		node.Child(field("credits", fmt.Sprintf("+%d", tx.Credits)))
		node.Child(field("status", tx.Status))
		t.Child(node)
	}
	return t.String() + "\n" + summaryStyle.Render(fmt.Sprintf("Total: %d transaction(s)", len(txs)))
}

// RenderNotifications renders notifications, unread first marked with •
func RenderNotifications(items []types.Notification) string {
	if len(items) == 0 {
		return keyStyle.Render("No notifications")
	}

	unread := 0
	t := tree.Root(highlightStyle.Render("Notifications"))
	for _, n := range items {
		marker := keyStyle.Render("  ")
		if !n.Read {
			marker = highlightStyle.Render("• ")
			unread++
		}
		t.Child(fmt.Sprintf("%s%s %s", marker, n.Message, keyStyle.Render(n.CreatedAt.Format("2006-01-02 15:04"))))
	}
	return t.String() + "\n" + summaryStyle.Render(fmt.Sprintf("%d unread of %d", unread, len(items)))
}

// RenderHistory renders past exchanges
func RenderHistory(records []types.ChatRecord) string {
	if len(records) == 0 {
		return keyStyle.Render("No chat history")
	}

	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(keyStyle.Render(r.CreatedAt.Format("2006-01-02 15:04")) + "\n")
		b.WriteString(userStyle.Render("You: ") + r.Message + "\n")
		b.WriteString(nameStyle.Render("AI: ") + r.Response + "\n")
	}
	return b.String()
}

func field(key, value string) string {
	return fmt.Sprintf("%s %s", keyStyle.Render(key+":"), valueStyle.Render(value))
}

func creditsLabel(n int) string {
	if n <= 0 {
		return Styles.Warning.Render("0 (buy more with: chatctl credits packages)")
	}
	return fmt.Sprintf("%d", n)
}

func formatPrice(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
