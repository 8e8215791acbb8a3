package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestLogger_ContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &Logger{zap.New(core)}

	scoped := base.With(RequestIDField("req-1"))
	ctx := NewContext(context.Background(), scoped)

	base.InfoContext(ctx, "backtest queued", BacktestField("bt-1"))
	base.InfoContext(context.Background(), "no request")

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, "bt-1", first["backtest_id"])

	_, ok := entries[1].ContextMap()["request_id"]
	assert.False(t, ok)
}
