package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dbaportal/config"
	deliverycontext "dbaportal/internal/delivery/context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// queryLogger routes gorm output into slog. Unless params logging is enabled
// it implements gorm's ParamsFilter so statements are logged with placeholders only.
type queryLogger struct {
	base          *slog.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
	keepParams    bool
}

var (
	_ logger.Interface  = (*queryLogger)(nil)
	_ gorm.ParamsFilter = (*queryLogger)(nil)
)

func newQueryLogger(base *slog.Logger, cfg *config.Config) *queryLogger {
	l := &queryLogger{
		base:  base,
		level: logger.Warn,
	}
	if cfg != nil {
		if cfg.Env.Debug {
			l.level = logger.Info
		}
		l.slowThreshold = cfg.Database.SlowQueryThreshold
		l.keepParams = cfg.Database.LogQueryParams
	}

	return l
}

func (l *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cloned := *l
	cloned.level = level

	return &cloned
}

// ParamsFilter drops the bind values of each statement.
func (l *queryLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.keepParams {
		return sql, params
	}

	return sql, nil
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, logger.Error, slog.LevelError, msg, args)
}

func (l *queryLogger) printf(ctx context.Context, threshold logger.LogLevel, level slog.Level, msg string, args []any) {
	if l.level < threshold {
		return
	}

	l.emit(ctx, level, "gorm", slog.String("message", fmt.Sprintf(msg, args...)))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.emit(ctx, slog.LevelError, "query failed", append(statementAttrs(fc, elapsed), slog.String("error", err.Error()))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= logger.Warn:
		l.emit(ctx, slog.LevelWarn, "slow query", append(statementAttrs(fc, elapsed), slog.Duration("threshold", l.slowThreshold))...)
	case l.level >= logger.Info:
		l.emit(ctx, slog.LevelDebug, "query", statementAttrs(fc, elapsed)...)
	}
}

// emit prefers the request-scoped logger so statements carry the request_id.
func (l *queryLogger) emit(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if l.base == nil {
		return
	}

	deliverycontext.GetLoggerOrDefault(ctx, l.base).LogAttrs(ctx, level, msg, attrs...)
}

func statementAttrs(fc func() (string, int64), elapsed time.Duration) []slog.Attr {
	sql, rows := fc()

	return []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
}
