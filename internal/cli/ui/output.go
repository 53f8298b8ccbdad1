package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/domain"
)

// Out receives all command output; color.Output strips colors when stdout is
// not a terminal
var Out io.Writer = color.Output

// one color and symbol per toast level
var levels = map[notify.Level]struct {
	color  *color.Color
	symbol string
}{
	notify.LevelSuccess: {color.New(color.FgGreen, color.Bold), "✓"},
	notify.LevelError:   {color.New(color.FgRed, color.Bold), "✗"},
	notify.LevelWarning: {color.New(color.FgYellow, color.Bold), "⚠"},
	notify.LevelInfo:    {color.New(color.FgCyan), "ℹ"},
}

var boldColor = color.New(color.Bold)

func printLevel(level notify.Level, format string, args ...any) {
	l, ok := levels[level]
	if !ok {
		l = levels[notify.LevelInfo]
	}
	l.color.Fprintf(Out, "%s %s\n", l.symbol, fmt.Sprintf(format, args...))
}

// PrintSuccess prints a success line
func PrintSuccess(format string, args ...any) { printLevel(notify.LevelSuccess, format, args...) }

// PrintError prints an error line
func PrintError(format string, args ...any) { printLevel(notify.LevelError, format, args...) }

// PrintWarning prints a warning line
func PrintWarning(format string, args ...any) { printLevel(notify.LevelWarning, format, args...) }

// PrintInfo prints an info line
func PrintInfo(format string, args ...any) { printLevel(notify.LevelInfo, format, args...) }

// PrintBold prints a bold line
func PrintBold(format string, args ...any) {
	boldColor.Fprintln(Out, fmt.Sprintf(format, args...))
}

// PrintToast prints a toast in its level's color
func PrintToast(t notify.Toast) {
	printLevel(t.Level, "%s", t.Message)
}

// ErrorMessage returns the user-facing text of err
func ErrorMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.UserMessage()
	}
	return err.Error()
}

// PrintDomainError prints what failed and why, without internal detail
func PrintDomainError(action string, err error) {
	PrintError("%s: %s", action, ErrorMessage(err))
}

// PrintSuccessBox prints title and content in a green box
func PrintSuccessBox(title, content string) {
	printBox(colorSuccess, levels[notify.LevelSuccess].color, title, content)
}

// PrintErrorBox prints title and content in a red box
func PrintErrorBox(title, content string) {
	printBox(colorError, levels[notify.LevelError].color, title, content)
}

func printBox(border lipgloss.Color, titleColor *color.Color, title, content string) {
	body := titleColor.Sprint(title) + "\n\n" + content
	fmt.Fprintln(Out, resultBox(border).Render(body))
}
