package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lvyanru/chatctl/internal/cli/commands"
	"github.com/lvyanru/chatctl/internal/cli/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		// commands print their own failures; only cobra's parse errors reach here unprinted
		errMsg := err.Error()
		if strings.Contains(errMsg, "unknown command") || strings.Contains(errMsg, "flag") || strings.Contains(errMsg, "arg(s)") {
			ui.PrintError("%s", errMsg)
			fmt.Println("\nRun 'chatctl --help' for usage.")
		}
		stop()
		os.Exit(1)
	}
}
