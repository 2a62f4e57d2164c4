// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to out at the given level. Format "json"
// emits one JSON object per line; anything else uses the console writer.
func New(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	w := out
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Printf adapts a zerolog logger to the Printf-style writer gorm expects.
type Printf struct {
	Logger zerolog.Logger
}

func (p Printf) Printf(format string, args ...interface{}) {
	p.Logger.Warn().Str("component", "gorm").Msgf(format, args...)
}
