package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lvyanru/chatctl/internal/cli/chat"
	"github.com/lvyanru/chatctl/internal/cli/loader"
	"github.com/lvyanru/chatctl/internal/cli/ui"
	"github.com/lvyanru/chatctl/internal/domain"
)

var sendFile string

// sendCmd sends one message (or a prompt script) and prints the reply
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "send a message and print the reply",
	Long: `Send a message without the interactive UI. Streamed replies are written
to stdout as they arrive. With -f, every message of a PromptScript file is sent
in order.`,
	Example: `  # One question
  $ chatctl send "explain channels in one paragraph"

  # A scripted conversation
  $ chatctl send -f questions.yaml

  # questions.yaml
  kind: PromptScript
  spec:
    messages:
      - hello
      - what did I just say?
    stopOnError: true`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

// historyCmd prints the stored chat history
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "show past conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "PromptScript YAML file")

	sendCmd.SilenceUsage = true
	historyCmd.SilenceUsage = true
}

func runSend(cmd *cobra.Command, args []string) error {
	var messages []string
	stopOnError := true

	switch {
	case sendFile != "" && len(args) > 0:
		ui.PrintError("use either a message or -f, not both")
		fmt.Printf("\nRun '%s --help' for usage.\n", cmd.CommandPath())
		return fmt.Errorf("invalid arguments")
	case sendFile != "":
		script, err := loader.LoadFromFile(sendFile)
		if err != nil {
			ui.PrintError("failed to load file: %v", err)
			return fmt.Errorf("invalid script")
		}
		messages = script.Spec.Messages
		stopOnError = script.StopOnError()
	case len(args) == 1 && strings.TrimSpace(args[0]) != "":
		messages = []string{args[0]}
	default:
		ui.PrintError("message is required")
		fmt.Printf("\nRun '%s --help' for usage.\n", cmd.CommandPath())
		return fmt.Errorf("invalid arguments")
	}

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

	out := cmd.OutOrStdout()
	printer := &replyPrinter{out: out}
	ctrl := e.controller(sess, loginHint{}, printer.observe)

	failed := 0
	for i, msg := range messages {
		if len(messages) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			ui.PrintBold("> %s", msg)
		}

		printer.reset()
		err := ctrl.Submit(ctx, msg)
		if err != nil {
			failed++
			if !domain.IsValidation(err) {
				ui.PrintDomainError(chat.MsgReplyFailed, err)
			}
			if domain.IsAuthExpired(err) || domain.IsValidation(err) || stopOnError || ctx.Err() != nil {
				return fmt.Errorf("send failed")
			}
			continue
		}
		printer.finish(ctrl.Snapshot())
	}

	if final := ctrl.Session(); final != nil {
		ui.PrintInfo("%d credits left", final.Credits)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(messages))
	}
	return nil
}

// replyPrinter writes streamed deltas as they arrive and whole replies at the end
type replyPrinter struct {
	out      io.Writer
	streamed bool
}

func (p *replyPrinter) observe(ev chat.Event) {
	if ev.Kind == chat.EventStreamDelta {
		p.streamed = true
		fmt.Fprint(p.out, ev.Delta)
	}
}

func (p *replyPrinter) reset() { p.streamed = false }

func (p *replyPrinter) finish(v chat.View) {
	if !p.streamed && len(v.Entries) > 0 {
		last := v.Entries[len(v.Entries)-1]
		if last.Kind == chat.KindAssistant {
			fmt.Fprint(p.out, last.Content)
		}
	}
	fmt.Fprintln(p.out)
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	records, err := e.api.ChatHistory(ctx, sess.Token)
	if err != nil {
		ui.PrintDomainError("Failed to load chat history", err)
		e.expired(ctx, err)
		return fmt.Errorf("history failed")
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderHistory(records))
	return nil
}
