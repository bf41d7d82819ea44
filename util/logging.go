package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	Logger zerolog.Logger
)

func ParseLevel(inlevel string) zerolog.Level {
	switch strings.ToLower(inlevel) {
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func LogInit(inlevel string) {
	LogInitTo(os.Stderr, inlevel)
}

// LogInitTo is LogInit with an explicit sink. The console writer is kept even
// for non-terminal sinks so log lines look the same under systemd and tests.
func LogInitTo(out io.Writer, inlevel string) {
	level := ParseLevel(inlevel)
	Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stderr},
	).Level(level).With().Timestamp().Caller().Logger()

	Logger.Info().Msgf("logging initialized at level %v", level)
}
