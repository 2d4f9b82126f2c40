package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), testTelemetryConfig(false), "test")
	require.NoError(t, err)

	assert.False(t, lp.Enabled())
	core := lp.Core("course-library", zapcore.DebugLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel), "disabled export drops everything")
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestNewLoggerProvider_OnlyWithTelemetry(t *testing.T) {
	cfg := testTelemetryConfig(true)
	cfg.Enabled = false

	lp, err := NewLoggerProvider(context.Background(), cfg, "test")
	require.NoError(t, err)
	assert.False(t, lp.Enabled())
}

func TestNewLoggerProvider_Enabled(t *testing.T) {
	original := global.GetLoggerProvider()
	t.Cleanup(func() { global.SetLoggerProvider(original) })

	lp, err := NewLoggerProvider(context.Background(), testTelemetryConfig(true), "test")
	require.NoError(t, err)
	assert.True(t, lp.Enabled())

	core := lp.Core("course-library", zapcore.InfoLevel)
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = lp.Shutdown(ctx)
}
