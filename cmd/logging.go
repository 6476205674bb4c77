package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevelEnv names the environment variable selecting the log level.
const LogLevelEnv = "FICHECODE_LOG_LEVEL"

// NewLogger returns a text logger writing to w at the named level. An empty
// name selects info.
func NewLogger(levelName string, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(levelName)) {
	case "", "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("%s: unknown log level %q", LogLevelEnv, levelName)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
