// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.RWMutex
	l  = zap.NewNop()
)

// New builds a zap.Logger configured for development or production at the given level.
func New(development bool, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps debug, info, warn and error onto zap levels. Anything else is treated as
// error so a typo silences the logs rather than flooding them.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Init replaces the process-global logger.
func Init(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	l = logger
	mu.Unlock()
}

// L returns the process-global logger. It is a no-op logger until Init runs.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return l
}
