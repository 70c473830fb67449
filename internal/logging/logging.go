package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const EnvLogLevel = "SS2_LOG_LEVEL"

var testOnce sync.Once

// Init installs a console logger on stderr as the global zerolog logger.
// stdout stays free for decoded output.
func Init(app string) zerolog.Logger {
	return initWith(os.Stderr, app, zerolog.InfoLevel)
}

// InitTest silences logging for package tests unless SS2_LOG_LEVEL is set.
func InitTest() {
	testOnce.Do(func() {
		initWith(os.Stderr, "test", zerolog.Disabled)
	})
}

func initWith(out io.Writer, app string, fallback zerolog.Level) zerolog.Logger {
	level, ok := ParseLevel(os.Getenv(EnvLogLevel))
	if !ok {
		level = fallback
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
