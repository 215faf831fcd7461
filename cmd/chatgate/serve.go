package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chaqqon/chatgate/internal/data"
	"github.com/chaqqon/chatgate/internal/infra/clock"
	"github.com/chaqqon/chatgate/internal/infra/feishu"
	"github.com/chaqqon/chatgate/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Feishu and answer messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, vocab, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateFeishu(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			clk := clock.Real()
			feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
			dispatcher := wireDispatcher(cfg, vocab, data.NewFeishuRepo(feishuClient), clk)
			srv := server.NewFeishuServer(feishuClient, dispatcher, clk)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(ctx)
			}()

			log.Info().Str("component", "main").Str("model", cfg.OpenAI.Model).Msg("chatgate serving Feishu")
			select {
			case <-ctx.Done():
				log.Info().Str("component", "main").Msg("Shutting down")
				srv.Stop()
				return nil
			case err := <-errCh:
				if err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}
		},
	}
}

