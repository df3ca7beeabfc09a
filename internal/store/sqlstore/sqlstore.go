// Package sqlstore persists the console's bearer token in a SQL database so
// a session survives process restarts. Postgres (pgx) and SQLite (modernc)
// are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"adminpanel.org/internal/auth"
	"adminpanel.org/internal/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect is a database/sql driver name.
type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the driver names used in configuration.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q", name)
	}
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return migrate.Dollar(n)
	}
	return migrate.Question(n)
}

// Store implements auth.TokenStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	key     string
	now     func() time.Time
}

var _ auth.TokenStore = (*Store)(nil)

// Open connects with the named driver. Call Migrate before first use.
func Open(driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlstore: dsn is required")
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if dialect == SQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	return New(db, dialect), nil
}

// New wraps an existing handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, key: auth.TokenKey, now: time.Now}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

// Migrator returns a manager over the embedded schema.
func (s *Store) Migrator() *migrate.Manager {
	return migrate.NewManager(s.db, migrations, "migrations", migrate.WithPlaceholder(s.dialect.placeholder))
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Migrator().Up(ctx)
	return err
}

func (s *Store) Load(ctx context.Context) (string, error) {
	q := fmt.Sprintf(`select token from client_sessions where key = %s`, s.dialect.placeholder(1))
	var token string
	err := s.db.QueryRowContext(ctx, q, s.key).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", auth.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore: load token: %w", err)
	}
	if token == "" {
		return "", auth.ErrNoToken
	}
	return token, nil
}

func (s *Store) Save(ctx context.Context, token string) error {
	p := s.dialect.placeholder
	q := fmt.Sprintf(`
		insert into client_sessions(key, token, updated_at) values (%s, %s, %s)
		on conflict (key) do update set token = excluded.token, updated_at = excluded.updated_at`,
		p(1), p(2), p(3))
	if _, err := s.db.ExecContext(ctx, q, s.key, token, s.now().UTC()); err != nil {
		return fmt.Errorf("sqlstore: save token: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	q := fmt.Sprintf(`delete from client_sessions where key = %s`, s.dialect.placeholder(1))
	if _, err := s.db.ExecContext(ctx, q, s.key); err != nil {
		return fmt.Errorf("sqlstore: clear token: %w", err)
	}
	return nil
}
