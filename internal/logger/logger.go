package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config captures runtime metadata used to annotate logs.
type Config struct {
	Service string
	Env     string
}

// New builds a sugared zap logger: JSON in production, colored console otherwise.
func New(cfg Config) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Env, "development") {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	service := cfg.Service
	if service == "" {
		service = "kinobot"
	}
	return l.Sugar().With("service", service, "env", cfg.Env), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
