package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting and the value SQLite reports once it is
// applied.
type pragma struct {
	name   string
	value  string
	expect string
}

// Every pragma is read back after it is set.
var pragmas = []pragma{
	{name: "journal_mode", value: "WAL", expect: "wal"},
	{name: "synchronous", value: "NORMAL", expect: "1"},
	{name: "busy_timeout", value: "5000", expect: "5000"},
	{name: "foreign_keys", value: "ON", expect: "1"},
}

// migration upgrades a state database to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// Version 0 is the bare schema.sql.
var migrations = []migration{
	{
		version: 1,
		name:    "index progress by write order",
		stmt: `
			CREATE INDEX IF NOT EXISTS idx_resolved_seq ON resolved(seq);
			CREATE INDEX IF NOT EXISTS idx_failed_seq ON failed(seq);
		`,
	},
}

// currentSchemaVersion is the version of the last migration.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store keeps the upload state of one batch in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the state database at path. The schema is created
// if missing and pending migrations are applied.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path}
	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// applyPragmas sets every pragma. journal_mode may fall back to "delete"
// without an error, so each value is read back.
func (s *Store) applyPragmas() error {
	for _, p := range pragmas {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", p.name, err)
		}
		if err := s.verifyPragma(p.name, p.expect); err != nil {
			return fmt.Errorf("state database %s: %w", s.path, err)
		}
	}
	return nil
}

// applySchema creates missing tables and runs the migrations newer than
// the database's user_version. Safe to call on every open.
func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("state database has schema version %d, this build supports up to %d", version, currentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := s.db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
