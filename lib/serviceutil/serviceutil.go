package serviceutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"
)

// SignalContext returns a context that will live until Ctrl+C is pressed.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

// CrashGuard recovers a panic, writes a crash_<timestamp>.log with the
// stack into dir and re-panics so the process still dies loudly.
// Intended usage: `defer serviceutil.CrashGuard("logs")`.
func CrashGuard(dir string) {
	r := recover()
	if r == nil {
		return
	}

	_ = os.MkdirAll(dir, 0o755)
	name := fmt.Sprintf("crash_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(dir, name)

	body := fmt.Sprintf("panic: %v\n\n%s\n", r, debug.Stack())
	err := os.WriteFile(path, []byte(body), 0o644)
	if err != nil {
		slog.Error("failed to write crash log", "path", path, "err", err)
	} else {
		slog.Error("wrote crash log", "path", path)
	}

	panic(r)
}
