// Package logging builds the process-wide zerolog.Logger, matching the
// teacher's structured-logging setup (internal/single/monitoring/logger.go)
// but trimmed down to the two knobs esper exposes: level and format.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the console encoder, separate from the level.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// New builds a logger at level, writing JSON to stdout unless format is
// FormatPretty, in which case it writes zerolog's human-readable console
// encoding instead.
func New(level zerolog.Level, format Format) zerolog.Logger {
	var output io.Writer = os.Stdout
	if format == FormatPretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "esper").
		Logger()
}
