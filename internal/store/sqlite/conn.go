package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path with WAL
// journaling and a busy timeout, then ensures the library schema.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the collection tables if they do not exist.
// created_at holds Unix microseconds so ordering is exact.
func EnsureSchema(db *sql.DB) error {
	var stmts []string
	for _, table := range []string{"asanas", "series", "sequences"} {
		stmts = append(stmts,
			`CREATE TABLE IF NOT EXISTS `+table+` (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            created_at INTEGER NOT NULL,
            doc TEXT NOT NULL
        );`,
			`CREATE INDEX IF NOT EXISTS `+table+`_created_idx ON `+table+` (created_at DESC, id DESC);`,
			`CREATE INDEX IF NOT EXISTS `+table+`_owner_created_idx ON `+table+` (owner_id, created_at DESC, id DESC);`,
		)
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
