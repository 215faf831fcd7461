package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chatgate",
		Short:         "Chat-bot router that decides when a group message deserves an AI reply",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if err := godotenv.Load(); err != nil {
				log.Debug().Msg("No .env file found, using environment variables")
			}
			setupLogging(os.Getenv("LOG_LEVEL"), os.Getenv("DEBUG") == "true")
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newConsoleCmd(),
		newSendCmd(),
	)
	return rootCmd
}

// setupLogging configures the global zerolog logger. Debug mode switches to
// the human-readable console writer.
func setupLogging(level string, debug bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		if lvl > zerolog.DebugLevel {
			lvl = zerolog.DebugLevel
		}
	}
	zerolog.SetGlobalLevel(lvl)
}
