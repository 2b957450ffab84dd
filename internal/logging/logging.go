// Package logging provides the process-wide structured logger every
// FluxGraph component logs through, following the console-writer-plus-
// caller-info setup of the example pack's zerolog usage.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the default logger: console-formatted, stderr, with caller info.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
	With().
	Timestamp().
	Caller().
	Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// SetLevel adjusts the global minimum log level, e.g. for a --verbose flag.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// Named returns a child logger tagged with component=name, used so a shard,
// a reactor, or a coordinator can be told apart in mixed output.
func Named(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}
