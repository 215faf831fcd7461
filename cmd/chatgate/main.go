package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/chaqqon/chatgate/internal/conf"
)

func main() {
	os.Exit(exitCode(newRootCmd().Execute()))
}

// exitCode logs a command failure once and maps it to the process status.
// Configuration problems exit with 2.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *conf.ConfigError
	if errors.As(err, &cfgErr) {
		log.Error().Str("field", cfgErr.Field).Msg("Invalid configuration: " + cfgErr.Message)
		return 2
	}
	log.Error().Err(err).Msg("Command failed")
	return 1
}
