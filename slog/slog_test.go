package slog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func withObserver(t *testing.T, lvl zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(lvl)
	prev := get()
	replaceLogger(zap.New(core).Sugar())
	t.Cleanup(func() { replaceLogger(prev) })
	return logs
}

func TestInfow(t *testing.T) {
	logs := withObserver(t, zapcore.InfoLevel)

	Infow(context.Background(), "created container", "container", "orders")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "created container", entries[0].Message)
	require.Equal(t, "orders", entries[0].ContextMap()["container"])
}

func TestErrorwTags(t *testing.T) {
	logs := withObserver(t, zapcore.InfoLevel)

	Errorw(context.Background(), errors.New("boom"), map[string]string{"stage": "deploy"})

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "boom", entries[0].Message)
	require.Equal(t, "deploy", entries[0].ContextMap()["stage"])
}

func TestDebugwSuppressedAtInfo(t *testing.T) {
	logs := withObserver(t, zapcore.InfoLevel)

	Debugw(context.Background(), "noisy detail")

	require.Empty(t, logs.All())
}
