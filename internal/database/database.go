package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"streamlens/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// DB wraps the sql pool together with the dialect it was opened with.
type DB struct {
	*sql.DB
	dialect string
}

// Querier is satisfied by both *sql.DB and *sql.Tx so repository
// methods can run inside or outside a sync pass transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the configured store and applies pending
// migrations. Postgres is used when credentials are present, otherwise
// a local SQLite file (the kind of zero-setup default used for
// development and tests).
func Open(cfg config.DatabaseSettings) (*DB, error) {
	var (
		db      *sql.DB
		dialect string
		err     error
	)

	if cfg.UsePostgres() {
		dialect = "postgres"
		db, err = sql.Open("pgx", cfg.PostgresDSN())
	} else {
		dialect = "sqlite3"
		dsn := cfg.Path
		if dsn != ":memory:" {
			if mkErr := os.MkdirAll(filepath.Dir(dsn), 0o755); mkErr != nil {
				return nil, fmt.Errorf("create database directory: %w", mkErr)
			}
		}
		// Pragmas ride along on the DSN so they apply to every connection.
		dsn += "?_journal_mode=WAL&_busy_timeout=30000&_foreign_keys=on&_loc=UTC"
		db, err = sql.Open("sqlite3", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect == "sqlite3" && cfg.Path == ":memory:" {
		// Every new connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &DB{DB: db, dialect: dialect}, nil
}

func migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	dir := "migrations/sqlite"
	if dialect == "postgres" {
		dir = "migrations/postgres"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.Up(db, dir)
}

// Connection exposes the underlying pool for callers that manage their
// own transactions.
func (db *DB) Connection() *sql.DB {
	return db.DB
}

// rebind converts ? placeholders to the $N form Postgres expects.
// SQLite queries pass through untouched.
func (db *DB) rebind(query string) string {
	if db.dialect != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
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

// Genre lists are stored as JSON text so the column stays portable
// across engines.
func encodeGenres(genres []string) (string, error) {
	if genres == nil {
		genres = []string{}
	}
	raw, err := json.Marshal(genres)
	if err != nil {
		return "", fmt.Errorf("encode genres: %w", err)
	}
	return string(raw), nil
}

func decodeGenres(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw.String), &genres); err != nil {
		return []string{}
	}
	return genres
}
