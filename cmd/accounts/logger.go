package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-accounts"
)

// zapLogger adapts a sugared zap logger to accounts.Logger
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ accounts.Logger = zapLogger{}

func (l zapLogger) Debug(format string, args ...any) { l.s.Debugf(format, args...) }
func (l zapLogger) Info(format string, args ...any)  { l.s.Infof(format, args...) }
func (l zapLogger) Warn(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l zapLogger) Error(format string, args ...any) { l.s.Errorf(format, args...) }

func newZapLogger(level string, debug bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

func named(base *zap.Logger, name string) accounts.Logger {
	return zapLogger{s: base.Named(name).Sugar()}
}
