// Package sqlstore implements the repositories on database/sql for
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite). Queries are written
// with ? placeholders and rebound for PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store wraps a database handle with the dialect its queries are bound for.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects and creates the schema. SQLite is limited to one connection,
// which also keeps ":memory:" databases alive across queries.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	var driver string
	switch dialect {
	case Postgres:
		driver = "postgres"
	case SQLite:
		driver = "sqlite"
		if !strings.Contains(dsn, "_time_format") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_time_format=sqlite"
		}
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the necessary tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return s.upgrade(ctx)
}

// upgrade adds columns missing from tables created by older releases.
// SQLite has no ADD COLUMN IF NOT EXISTS, so existing columns are listed first.
func (s *Store) upgrade(ctx context.Context) error {
	existing := map[string]bool{}
	if s.dialect == SQLite {
		rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('emails')`)
		if err != nil {
			return fmt.Errorf("failed to inspect emails table: %w", err)
		}
		names, err := scanStrings(rows)
		if err != nil {
			return fmt.Errorf("failed to inspect emails table: %w", err)
		}
		for _, name := range names {
			existing[name] = true
		}
	}

	for _, col := range headerColumns {
		name := strings.Fields(col)[0]
		stmt := `ALTER TABLE emails ADD COLUMN ` + col
		if s.dialect == Postgres {
			stmt = `ALTER TABLE emails ADD COLUMN IF NOT EXISTS ` + col
		} else if existing[name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", name, err)
		}
	}
	return nil
}

// rebind turns ? placeholders into $1, $2... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
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

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// utc normalizes timestamps so SQLite's text ordering matches time order.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
