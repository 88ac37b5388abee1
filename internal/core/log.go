package core

import (
	"os"

	"github.com/rs/zerolog"
)

var baseLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
	Level(zerolog.WarnLevel).
	With().Timestamp().Logger()

// SetupLogging configures the global log level. Verbose enables DEBUG;
// quiet raises the floor to ERROR.
func SetupLogging(verbose, quiet bool) {
	level := zerolog.WarnLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.ErrorLevel
	}
	baseLogger = baseLogger.Level(level)
}

// Logger returns a component-tagged logger writing to stderr.
func Logger(component string) zerolog.Logger {
	return baseLogger.With().Str("component", component).Logger()
}
