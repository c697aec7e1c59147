// internal/logging/logging.go

// Package logging installs the go-logging backend shared by the CLI and the
// library packages.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

// LevelEnv names the environment variable that overrides the log level.
const LevelEnv = "KFPARSE_LOG_LEVEL"

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}%{color:reset}`,
)

var plainFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}`,
)

// Setup sends log output to stderr with the given prefix. The level comes
// from KFPARSE_LOG_LEVEL (CRITICAL, ERROR, WARNING, NOTICE, INFO or DEBUG)
// and falls back to defaultLevel. It applies to every module logger.
func Setup(prefix string, defaultLevel logging.Level) logging.LeveledBackend {
	return setup(os.Stderr, prefix, defaultLevel, !noColor())
}

// SetupQuiet discards all log output.
func SetupQuiet() logging.LeveledBackend {
	leveled := logging.AddModuleLevel(logging.NewLogBackend(io.Discard, "", 0))
	leveled.SetLevel(logging.CRITICAL, "")
	logging.SetBackend(leveled)
	return leveled
}

func setup(w io.Writer, prefix string, defaultLevel logging.Level, color bool) logging.LeveledBackend {
	if prefix != "" && !strings.HasSuffix(prefix, " ") {
		prefix += " "
	}
	format := plainFormat
	if color {
		format = stderrFormat
	}
	backend := logging.NewBackendFormatter(logging.NewLogBackend(w, prefix, 0), format)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(Level(os.Getenv(LevelEnv), defaultLevel), "")
	logging.SetBackend(leveled)
	return leveled
}

// Level parses a level name, returning def when name is empty or unknown.
func Level(name string, def logging.Level) logging.Level {
	if name == "" {
		return def
	}
	level, err := logging.LogLevel(strings.ToUpper(name))
	if err != nil {
		return def
	}
	return level
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
