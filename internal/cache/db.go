package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding persisted sessions and profiles.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite cache database and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			origin TEXT PRIMARY KEY,
			username TEXT,
			saved_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cookies (
			origin TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			saved_at INTEGER NOT NULL,
			PRIMARY KEY (origin, name)
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			username TEXT PRIMARY KEY,
			message TEXT,
			bank_balance REAL DEFAULT 0,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_fetched_at ON profiles(fetched_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
