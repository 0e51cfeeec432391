// Package log provides the process-wide structured logger. Records are routed
// to stdout, stderr and an optional rotated file depending on their level.
package log

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

var (
	multiLogger *slog.Logger
	loggerMu    sync.RWMutex
)

// Start initializes the logging package from the loaded configuration.
// If no configuration has been loaded yet, stdout and stderr are used.
func Start() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if multiLogger != nil {
		return ErrLoggerAlreadyInitialized
	}

	cfg := makeConfig()
	multiLogger = cfg.makeMultiLogger()

	return nil
}

// Stop flushes and closes every destination. Logging after Stop is a no-op.
func Stop() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if rotatedLogFile != nil {
		rotatedLogFile.Close()
		rotatedLogFile = nil
	}

	multiLogger = nil
}

func Debug(msg string, args ...any) {
	logWithLevel(slog.LevelDebug, msg, args...)
}

func Info(msg string, args ...any) {
	logWithLevel(slog.LevelInfo, msg, args...)
}

func Warn(msg string, args ...any) {
	logWithLevel(slog.LevelWarn, msg, args...)
}

func Error(msg string, args ...any) {
	logWithLevel(slog.LevelError, msg, args...)
}

func logWithLevel(level slog.Level, msg string, args ...any) {
	// skip [runtime.Callers, handle, this function, Debug/Info/...]
	handle(context.Background(), level, msg, 4, args)
}

func handle(ctx context.Context, level slog.Level, msg string, skip int, args []any) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	if multiLogger == nil || !multiLogger.Enabled(ctx, level) {
		return
	}

	// Code copy from [slog.Logger:log()]
	//
	// This is needed to feed the correct caller frame PC to the Record
	// since we wrapped the [slog.Logger].
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])

	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	multiLogger.Handler().Handle(ctx, record)
}
