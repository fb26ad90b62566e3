// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package log

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cortnet.log")

	l := New(&Config{Level: zapcore.DebugLevel, LogPath: logPath, Component: "test"})
	l.Info("bridge created")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.Contains(out, `"msg":"bridge created"`), out)
	assert.True(t, strings.Contains(out, `"component":"test"`), out)
	assert.True(t, strings.Contains(out, `"pid":`), out)
}

func TestNewRespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cortnet.log")

	l := New(&Config{Level: zapcore.WarnLevel, LogPath: logPath})
	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "dropped")
	assert.Contains(t, string(b), "kept")
}

func TestNewWithoutLogPathSkipsFile(t *testing.T) {
	l := New(&Config{Level: zapcore.DebugLevel})
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))

	l = New(&Config{Level: zapcore.InfoLevel, Console: true})
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestInitializeReplacesLogger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := Initialize(ctx, &Config{LogPath: filepath.Join(t.TempDir(), "x.log")})
	assert.Same(t, Logger, l)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
