package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{}},
		{name: "console stdout", cfg: Config{Level: "debug", Format: "console", Output: "stdout"}},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: "invalid log level"},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: "invalid log format"},
		{name: "bad output", cfg: Config{Output: "syslog"}, wantErr: "invalid log output"},
		{name: "file without path", cfg: Config{Output: "file"}, wantErr: "file path is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := Setup(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestSetupFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chatctl.log")

	logger, err := Setup(Config{Level: "info", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)

	logger.Info("hello", zap.String("k", "v"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestContextRoundTrip(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx := WithContext(context.Background(), logger)
	FromContext(ctx).Info("from context")
	WithRequestID(FromContext(ctx), "req-1").Info("with id")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "req-1", logs.All()[1].ContextMap()["request_id"])

	// missing logger falls back to a no-op logger instead of panicking
	FromContext(context.Background()).Info("dropped")
	assert.Equal(t, 2, logs.Len())

	FromContextOr(context.Background(), logger).Info("fallback")
	assert.Equal(t, 3, logs.Len())
	assert.Same(t, logger, FromContextOr(ctx, zap.NewNop()))
}

func TestHertzZapAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewHertzZapAdapter(zap.New(core))

	adapter.Infof("listening on %s", ":8080")
	adapter.Warn("slow", " handler")
	adapter.CtxErrorf(context.Background(), "boom %d", 1)
	adapter.Trace("trace")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "listening on :8080", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom 1", entries[2].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

func TestHertzZapAdapterRequestScoped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core, zap.AddCaller())
	adapter := NewHertzZapAdapter(base)

	ctx := WithContext(context.Background(), WithRequestID(base, "req-42"))
	adapter.CtxInfof(ctx, "handled %s", "/api/chat")
	adapter.CtxWarnf(context.Background(), "no request")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "handled /api/chat", entries[0].Message)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.True(t, strings.HasSuffix(entries[0].Caller.File, "logger_test.go"), entries[0].Caller.File)
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestHertzZapAdapterSetLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewHertzZapAdapter(zap.New(core))

	adapter.SetLevel(hlog.LevelWarn)
	adapter.Info("dropped")
	adapter.CtxDebugf(context.Background(), "dropped")
	adapter.Warn("kept")
	adapter.Fatalf("kept %d", 2)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
