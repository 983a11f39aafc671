package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the default text handler. Debug mode lowers the
// level so per-field fill attempts show up in the operator's terminal.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
