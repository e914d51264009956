package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// the staging table exists. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// The merge engine is a single writer; WAL keeps readers cheap while
	// a load runs.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

// Amounts are stored as fixed two-fraction-digit TEXT rather than REAL so
// decimal values round-trip exactly.
func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS raw_nordea_transactions (
			transaction_hash TEXT PRIMARY KEY,
			posting_date TEXT NOT NULL,
			amount TEXT NOT NULL,
			sender TEXT,
			recipient TEXT,
			name TEXT,
			description TEXT,
			balance TEXT,
			currency TEXT NOT NULL DEFAULT 'DKK',
			reconciled TEXT,
			source_file TEXT NOT NULL,
			loaded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_nordea_posting_date ON raw_nordea_transactions(posting_date)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_nordea_source_file ON raw_nordea_transactions(source_file)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:50], err)
		}
	}

	return nil
}
