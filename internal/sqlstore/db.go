// Package sqlstore keeps timesheet data in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect selects the database/sql driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Options configures Open.
type Options struct {
	Dialect  Dialect
	DSN      string // file path for SQLite, connection string for PostgreSQL
	MaxConns int
}

// Open connects, applies pending migrations and returns a Store.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		db  *sql.DB
		err error
	)
	switch opts.Dialect {
	case SQLite:
		db, err = openSQLite(opts.DSN)
	case Postgres:
		db, err = openPostgres(opts.DSN, opts.MaxConns)
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", opts.Dialect)
	}
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open: ping: %w", err)
	}
	if err := Migrate(db, opts.Dialect, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open: migrate: %w", err)
	}
	return New(db, opts.Dialect, log), nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open: create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func openPostgres(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	return db, nil
}

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Migrate applies the embedded migrations. It is safe to call repeatedly.
func Migrate(db *sql.DB, dialect Dialect, log *zap.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log.Sugar()})
	gd := "postgres"
	if dialect == SQLite {
		gd = "sqlite3"
	}
	if err := goose.SetDialect(gd); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

type gooseLogger struct{ s *zap.SugaredLogger }

func (g gooseLogger) Fatalf(format string, v ...interface{}) { g.s.Fatalf(format, v...) }
func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.s.Debugf(strings.TrimSpace(format), v...)
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
