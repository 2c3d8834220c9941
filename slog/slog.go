// Package slog provides context-first structured logging for this repo.
//
// All packages log through this facade so call sites stay uniform:
//
//	slog.Infow(ctx, "created container", "container", name)
//	slog.Errorw(ctx, oops.Wrapf(err, "deploy pipeline"), nil)
//
// The context parameter is reserved for request-scoped fields; the CLI
// logger does not extract any from it today.
package slog

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop().Sugar()
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// SetUpDefaultCLILogger installs a human-readable console logger on stderr.
// Call once at process start, before any other slog function.
func SetUpDefaultCLILogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	l, err := cfg.Build()
	if err != nil {
		// The development config cannot fail to build with these options.
		panic(err)
	}
	replaceLogger(l.Sugar())
}

// SetVerbose switches the minimum level between debug and info.
func SetVerbose(verbose bool) {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

func replaceLogger(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	get().Debugw(msg, keysAndValues...)
}

func Infow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	get().Infow(msg, keysAndValues...)
}

func Warnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	get().Warnw(msg, keysAndValues...)
}

// Errorw logs an error with optional string tags appended as fields.
func Errorw(ctx context.Context, err error, tags map[string]string, keysAndValues ...interface{}) {
	kvs := keysAndValues
	for k, v := range tags {
		kvs = append(kvs, k, v)
	}
	get().Errorw(err.Error(), kvs...)
}

// Fatalw logs the message and exits the process with a non-zero status.
func Fatalw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	get().Fatalw(msg, keysAndValues...)
}
