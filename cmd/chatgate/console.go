package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chaqqon/chatgate/internal/data"
	"github.com/chaqqon/chatgate/internal/infra/clock"
	"github.com/chaqqon/chatgate/internal/infra/console"
	"github.com/chaqqon/chatgate/internal/server"
)

func newConsoleCmd() *cobra.Command {
	var group bool

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the router on stdin/stdout",
		Long: "Each input line is one message, written as \"name: text\" (name defaults to \"you\").\n" +
			"Start a line with \">\" to mark it as a reply to the bot.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, vocab, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := console.NewClient(cmd.InOrStdin(), cmd.OutOrStdout())
			messageRepo := data.NewConsoleRepo(client, cfg.Console.Admins)
			dispatcher := wireDispatcher(cfg, vocab, messageRepo, clock.Real())

			return server.NewConsoleServer(client, dispatcher, group).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "treat the session as a group chat")
	return cmd
}
