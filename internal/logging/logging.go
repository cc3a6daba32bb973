// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide zap logger. Diagnostic logs go
// to stderr; user-facing progress lines are written by callers to their own
// io.Writer and do not pass through here.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Output string // stderr, stdout, or a file path
}

var (
	mu     sync.Mutex
	global *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.WarnLevel)
)

// Init builds the global logger from cfg. An empty or unknown level falls
// back to warn.
func Init(cfg Config) error {
	l := zapcore.WarnLevel
	if cfg.Level != "" {
		if err := l.UnmarshalText([]byte(cfg.Level)); err != nil {
			l = zapcore.WarnLevel
		}
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}

	level.SetLevel(l)
	zc.Level = level
	out := cfg.Output
	if out == "" {
		out = "stderr"
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	global = logger
	mu.Unlock()
	return nil
}

// SetLevel changes the level at runtime. Invalid names are ignored.
func SetLevel(name string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return
	}
	level.SetLevel(l)
}

// L returns the global logger, a no-op logger if Init was never called.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return zap.NewNop()
	}
	return global
}

// Named returns a child of the global logger for one component.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return nil
	}
	return global.Sync()
}
