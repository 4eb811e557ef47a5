package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New constructs the process logger. Logs are JSON on stdout; set
// LOG_PRETTY=1 for a human-readable console writer during development.
func New() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") == "1" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}
