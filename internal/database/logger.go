package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/placeshare/placeshare/internal/config"
)

const slowQueryThreshold = 200 * time.Millisecond

// SlogGormLogger sends gorm's query log to slog. Statements are logged at
// debug level; failures and slow statements are raised above it.
type SlogGormLogger struct {
	Logger        *slog.Logger
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

func NewSlogGormLogger(l *slog.Logger) *SlogGormLogger {
	return &SlogGormLogger{
		Logger:        l,
		LogLevel:      gormLevel(config.GetEnv(config.ENV_KEY_LOG_LEVEL, "INFO")),
		SlowThreshold: slowQueryThreshold,
	}
}

func gormLevel(lvl string) logger.LogLevel {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		return logger.Info
	case "ERROR":
		return logger.Error
	case "SILENT":
		return logger.Silent
	default:
		return logger.Warn
	}
}

func (l *SlogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *SlogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= logger.Info {
		l.Logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= logger.Warn {
		l.Logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= logger.Error {
		l.Logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	slow := l.SlowThreshold != 0 && elapsed > l.SlowThreshold
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)

	var lvl slog.Level
	switch {
	case failed && l.LogLevel >= logger.Error:
		lvl = slog.LevelError
	case slow && l.LogLevel >= logger.Warn:
		lvl = slog.LevelWarn
	case l.LogLevel >= logger.Info:
		lvl = slog.LevelDebug
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Duration("latency", elapsed),
		slog.String("source", callerOutsideGorm()),
	}
	if rows >= 0 {
		attrs = append(attrs, slog.Int64("rows", rows))
	}
	if failed {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	l.Logger.LogAttrs(ctx, lvl, "sql", attrs...)
}

func callerOutsideGorm() string {
	for i := 3; i < 16; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if !strings.Contains(file, "gorm.io") && !strings.HasSuffix(file, "internal/database/logger.go") {
			return file + ":" + strconv.Itoa(line)
		}
	}
	return ""
}
