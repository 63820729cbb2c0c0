package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	chatcmder "github.com/smartguide/smartguide/cmd/smartguide/chat"
	servecmder "github.com/smartguide/smartguide/cmd/smartguide/serve"
)

const rootLongDesc string = `Smart Guide is a homework helper chat assistant.

Run the relay that talks to the AI gateway with "smartguide serve", then
chat with it from the terminal with "smartguide chat".`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smartguide",
		Short:         "Smart Guide homework helper",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
