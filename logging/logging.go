// Package logging builds the zap logger shared by the module center and the
// stock modules. The level is held in a zap.AtomicLevel so it can follow
// configuration reloads.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New returns a logger writing to stdout. level is one of debug, info, warn,
// error; format is json or console. Empty values mean info and json.
func New(level, format string) (*Logger, error) {
	lvl := zap.NewAtomicLevel()
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	switch format {
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case FormatJSON, "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = lvl

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{Logger: l, level: lvl}, nil
}

// Wrap adapts an existing zap logger, e.g. zaptest's. Its level is fixed by
// the core it was built with; SetLevel only affects the recorded value.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l, level: zap.NewAtomicLevel()}
}

// SetLevel changes the level at runtime.
func (l *Logger) SetLevel(level string) error {
	return l.level.UnmarshalText([]byte(level))
}

func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Handler exposes the level over HTTP: GET returns it, PUT
// {"level":"debug"} changes it.
func (l *Logger) Handler() zap.AtomicLevel {
	return l.level
}
