package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger configured at the provided level. Pretty
// enables the human-readable console writer used in development. If the level
// string is invalid it defaults to info.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() zerolog.Logger {
	return zerolog.Nop()
}
