// Package logging provides the Logger interface every driver component
// logs through, backed by go.uber.org/zap. The interface shape mirrors
// the teacher's plugin.Logger / lsp.Logger: printf-style methods at
// four levels, so components never depend on zap directly.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the logging interface consumed by the Coordinator, Router,
// Resolver and frontend adapters.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// zapLogger adapts a *zap.SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

// New builds a Logger writing to stderr at the given level ("debug",
// "info", "warn", "error"); an unrecognized level falls back to "info".
func New(level string) (Logger, *zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return &zapLogger{s: base.Sugar()}, base, nil
}

// Noop returns a Logger that discards everything, for tests that don't
// care about log output.
func Noop() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }
