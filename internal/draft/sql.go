package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Dialect selects placeholder style and DDL.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	postgresSchema = `CREATE TABLE IF NOT EXISTS inspection_drafts (
	draft_key   TEXT PRIMARY KEY,
	draft_value TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	sqliteSchema = `CREATE TABLE IF NOT EXISTS inspection_drafts (
	draft_key   TEXT PRIMARY KEY,
	draft_value TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`
)

// SQLBackend stores drafts in a single inspection_drafts table.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect, now: time.Now}
}

// InitSchema ensures the drafts table exists.
func (s *SQLBackend) InitSchema(ctx context.Context) error {
	ddl := postgresSchema
	if s.dialect == DialectSQLite {
		ddl = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init drafts schema: %w", err)
	}
	return nil
}

func (s *SQLBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT draft_value FROM inspection_drafts WHERE draft_key = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select draft %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLBackend) Set(ctx context.Context, key, value string) error {
	query := s.rebind(`INSERT INTO inspection_drafts (draft_key, draft_value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (draft_key) DO UPDATE SET draft_value = excluded.draft_value, updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, key, value, s.timestamp()); err != nil {
		return fmt.Errorf("upsert draft %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM inspection_drafts WHERE draft_key = ?"), key); err != nil {
		return fmt.Errorf("delete draft %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) DeletePrefix(ctx context.Context, prefix string) error {
	query := s.rebind(`DELETE FROM inspection_drafts WHERE draft_key LIKE ? ESCAPE '\'`)
	if _, err := s.db.ExecContext(ctx, query, escapeLike(prefix)+"%"); err != nil {
		return fmt.Errorf("delete drafts %s*: %w", prefix, err)
	}
	return nil
}

func (s *SQLBackend) timestamp() interface{} {
	now := s.now().UTC()
	if s.dialect == DialectSQLite {
		return now.Format("2006-01-02T15:04:05.000Z")
	}
	return now
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLBackend) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
