// Package repo implements the data persistence layer for domain entities,
// backed by GORM on a pure Go SQLite driver.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-recently-viewed/internal/domain"
)

// sqlitePragmas go through the DSN so every pooled connection gets them.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type openOptions struct {
	maxOpen int
	slow    time.Duration
}

// Option tunes OpenSQLite.
type Option func(*openOptions)

// WithMaxOpenConns sizes the connection pool. Values below 1 are ignored.
func WithMaxOpenConns(n int) Option {
	return func(o *openOptions) {
		if n >= 1 {
			o.maxOpen = n
		}
	}
}

// WithSlowQueryThreshold logs statements slower than d at warn. 0 disables.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *openOptions) { o.slow = d }
}

// OpenSQLite opens (or creates) the database at path with WAL and foreign
// keys on, sizes the pool and installs the OpenTelemetry GORM plugin.
// GORM diagnostics are routed through zerolog.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	o := openOptions{maxOpen: 10, slow: 200 * time.Millisecond}
	for _, fn := range opts {
		fn(&o)
	}

	// A missing directory otherwise surfaces as an opaque driver error.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(withPragmas(path)), &gorm.Config{
		Logger: &gormLogger{slow: o.slow, level: logger.Warn},
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.maxOpen)
	sqlDB.SetMaxIdleConns(o.maxOpen)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// AutoMigrate creates or updates the schema for all persisted models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Product{},
		&domain.ViewRecord{},
		&domain.ProductStat{},
	)
}

func withPragmas(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// gormLogger adapts GORM's logger to zerolog. It logs through log.Ctx so
// statements issued inside a request carry that request's fields.
type gormLogger struct {
	slow  time.Duration
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		log.Ctx(ctx).Info().Str("component", "gorm").Msgf(msg, args...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		log.Ctx(ctx).Warn().Str("component", "gorm").Msgf(msg, args...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		log.Ctx(ctx).Error().Str("component", "gorm").Msgf(msg, args...)
	}
}

// Trace reports failed statements at error and slow ones at warn. Lookups
// that find nothing are expected and stay quiet.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		ev = log.Ctx(ctx).Error().Err(err)
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		ev = log.Ctx(ctx).Warn().Dur("threshold", l.slow)
	case l.level >= logger.Info:
		ev = log.Ctx(ctx).Debug()
	default:
		return
	}
	sql, rows := fc()
	ev.Str("component", "gorm").
		Str("sql", sql).
		Int64("rows", rows).
		Dur("elapsed", elapsed).
		Msg("query")
}
