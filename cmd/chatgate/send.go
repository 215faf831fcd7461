package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaqqon/chatgate/internal/conf"
	"github.com/chaqqon/chatgate/internal/infra/feishu"
)

func newSendCmd() *cobra.Command {
	var (
		chatID string
		tip    bool
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Post a message, or a random study tip, to a Feishu chat",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" && !tip {
				return fmt.Errorf("nothing to send: pass a message or --tip")
			}

			cfg := conf.LoadFromEnv()
			if err := cfg.ValidateFeishu(); err != nil {
				return err
			}
			if tip {
				vocab, err := conf.LoadVocabulary(cfg.VocabPath)
				if err != nil {
					return err
				}
				text = pickTip(vocab.Tips, rand.New(rand.NewSource(time.Now().UnixNano())))
			}

			client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
			if err := client.SendText(cmd.Context(), chatID, text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Message sent successfully!")
			return nil
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "target chat id (oc_...)")
	cmd.Flags().BoolVar(&tip, "tip", false, "send a random tip from the vocabulary")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func pickTip(tips []string, rnd *rand.Rand) string {
	if len(tips) == 0 {
		return ""
	}
	return tips[rnd.Intn(len(tips))]
}
