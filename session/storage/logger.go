package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = time.Second

// GormLogger routes gorm's logging through slog.
type GormLogger struct {
	Logger   *slog.Logger
	LogLevel logger.LogLevel
}

func NewGormLogger(l *slog.Logger) *GormLogger {
	if l == nil {
		l = slog.Default()
	}
	return &GormLogger{
		Logger:   l,
		LogLevel: logger.Warn,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Info {
		l.Logger.InfoContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Warn {
		l.Logger.WarnContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Error {
		l.Logger.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		"sql", sql,
		"rows", rows,
		"elapsed", elapsed,
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= logger.Error:
		l.Logger.ErrorContext(ctx, "sql failed", append(fields, "error", err)...)
	case elapsed > slowQueryThreshold && l.LogLevel >= logger.Warn:
		l.Logger.WarnContext(ctx, "slow sql", append(fields, "threshold", slowQueryThreshold)...)
	case l.LogLevel == logger.Info:
		l.Logger.DebugContext(ctx, "sql", fields...)
	}
}
