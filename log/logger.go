// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package log

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeInMB   = 5
	defaultMaxBackups    = 8
	defaultComponentName = "cortnet"
)

type Config struct {
	Level       zapcore.Level
	LogPath     string
	MaxSizeInMB int
	MaxBackups  int
	Component   string
	// Console additionally writes human readable entries to stderr.
	Console bool
}

// Logger is the process logger. It is a no-op until Initialize is called.
var Logger = zap.NewNop()

// Initialize builds the process logger from cfg and syncs it when ctx is done.
func Initialize(ctx context.Context, cfg *Config) *zap.Logger {
	Logger = New(cfg)

	go func() {
		<-ctx.Done()
		if err := Logger.Sync(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to sync logger")
		}
	}()

	return Logger
}

// New returns a logger writing JSON entries to a rotated file, teed to stderr when cfg.Console is set.
// An empty LogPath disables the file.
func New(cfg *Config) *zap.Logger {
	c := withDefaults(cfg)

	var cores []zapcore.Core
	if c.LogPath != "" {
		cores = append(cores, newFileCore(c))
	}
	if c.Console {
		cores = append(cores, newConsoleCore(c.Level))
	}

	return zap.New(zapcore.NewTee(cores...)).
		With(zap.Int("pid", os.Getpid())).
		With(zap.String("component", c.Component))
}

func withDefaults(cfg *Config) Config {
	c := Config{Level: zapcore.InfoLevel}
	if cfg != nil {
		c = *cfg
	}
	if c.MaxSizeInMB <= 0 {
		c.MaxSizeInMB = defaultMaxSizeInMB
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = defaultMaxBackups
	}
	if c.Component == "" {
		c.Component = defaultComponentName
	}
	return c
}

func newFileCore(cfg Config) zapcore.Core {
	logFileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    cfg.MaxSizeInMB,
		MaxBackups: cfg.MaxBackups,
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), logFileWriter, cfg.Level)
}

func newConsoleCore(level zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
}

// ParseLevel maps a level name such as "debug" or "warn" to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
