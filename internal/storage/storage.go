// Package storage is the SQL implementation of the remote table ports, on
// SQLite (modernc) or Postgres (pgx). Every query on planning data is
// filtered by couple.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// timeLayout is fixed width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Options struct {
	Dialect Dialect
	// DSN is a file path for SQLite and a connection URL for Postgres.
	DSN    string
	Logger *applog.Logger
	Now    func() time.Time
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *applog.Logger
	now     func() time.Time
}

var (
	_ remote.CoupleDirectory = (*Repository)(nil)
	_ remote.BudgetStore     = (*Repository)(nil)
	_ remote.EventStore      = (*Repository)(nil)
	_ remote.PhotoStore      = (*Repository)(nil)
	_ remote.UserStore       = (*Repository)(nil)
	_ remote.Admin           = (*Repository)(nil)
)

// Open connects, migrates and returns a ready repository.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if opts.DSN == "" {
		return nil, errors.New("storage: empty DSN")
	}
	dsn := opts.DSN
	switch opts.Dialect {
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("storage: unsupported dialect %q", opts.Dialect)
	}

	db, err := sql.Open(opts.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Dialect, err)
	}
	if opts.Dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent synchronizers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(opts.Dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Repository{
		db:      db,
		dialect: opts.Dialect,
		logger:  logger.WithComponent(applog.ComponentStorage),
		now:     now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by readiness checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Dialect() Dialect { return r.dialect }

// q rewrites ? placeholders to $n for Postgres.
func (r *Repository) q(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

// mapError turns driver errors into core sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.ConstraintName)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", core.ErrConflict, err)
		}
	}
	return err
}

// timeText scans the fixed-width TEXT timestamps.
type timeText struct{ t *time.Time }

func (s timeText) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case time.Time:
		*s.t = v.UTC()
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return fmt.Errorf("scan timestamp %q: %w", raw, err)
	}
	*s.t = t
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableDate(d *core.Date) any {
	if d == nil || d.IsEmpty() {
		return nil
	}
	return d.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}
