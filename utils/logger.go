package utils

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logLocation is the zone log timestamps are rendered in; the forum is German.
var logLocation = loadLocation("Europe/Berlin")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewLogger builds the root logger. In debug mode a human readable console
// encoder at debug level is used, otherwise JSON at info level.
func NewLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(logLocation).Format("2006-01-02T15:04:05.000Z07:00"))
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// LeveledZap adapts a zap logger to the leveled logger interfaces used by the
// HTTP retry client and the cron scheduler.
type LeveledZap struct {
	inner *zap.SugaredLogger
}

// NewLeveledZap wraps logger.
func NewLeveledZap(logger *zap.Logger) LeveledZap {
	return LeveledZap{inner: logger.Sugar()}
}

// Error re-writes HTTP client errors to warnings because they are retried.
func (l LeveledZap) Error(msg string, keysAndValues ...any) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l LeveledZap) Warn(msg string, keysAndValues ...any) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l LeveledZap) Info(msg string, keysAndValues ...any) {
	l.inner.Debugw(msg, keysAndValues...)
}

func (l LeveledZap) Debug(msg string, keysAndValues ...any) {
	l.inner.Debugw(msg, keysAndValues...)
}
