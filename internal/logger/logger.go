package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Service is attached to every log line.
const Service = "exstem-qbank"

// Setup builds the process logger.
//   - level: trace, debug, info, warn, error, fatal or panic; unknown values fall back to info
//   - format: "pretty" for console output, anything else writes JSON
//   - cmd: the binary name, e.g. "server" or "seed-questions"
func Setup(level, format, cmd string) zerolog.Logger {
	return New(os.Stdout, level, format).With().Str("cmd", cmd).Logger()
}

// New is Setup with an explicit writer.
func New(out io.Writer, level, format string) zerolog.Logger {
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", Service).
		Caller().
		Logger()
}
