// Package sqlite persists the event and relationship records plus the
// append-only score history. The scoring engine treats the event tables as
// read-only; the write helpers exist for the surrounding CRUD layer, the
// seeder, and tests.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database under dir and applies migrations.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, "sahayog.db")

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets score reads proceed while a recomputation commits.
	pragmas := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	for _, stmt := range Migrations() {
		if _, err := sqlDB.Exec(stmt); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &DB{db: sqlDB}, nil
}

// Close closes the connection.
func (d *DB) Close() error { return d.db.Close() }

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
// Timestamps are stored as epoch milliseconds so range comparisons in SQL
// are exact.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			created_at         INTEGER NOT NULL,
			latest_snapshot_id TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS communities (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			type       TEXT NOT NULL DEFAULT 'shg',
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS memberships (
			user_id      TEXT NOT NULL REFERENCES users(id),
			community_id TEXT NOT NULL REFERENCES communities(id),
			joined_at    INTEGER NOT NULL,
			active       INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (user_id, community_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_community ON memberships(community_id, active)`,

		`CREATE TABLE IF NOT EXISTS loans (
			id           TEXT PRIMARY KEY,
			borrower_id  TEXT NOT NULL REFERENCES users(id),
			community_id TEXT NOT NULL REFERENCES communities(id),
			principal    REAL NOT NULL,
			status       TEXT NOT NULL DEFAULT 'pending',
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_community ON loans(community_id, status)`,

		`CREATE TABLE IF NOT EXISTS repayments (
			id      TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL REFERENCES loans(id),
			amount  REAL NOT NULL,
			due_at  INTEGER NOT NULL,
			paid_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_repayments_loan ON repayments(loan_id)`,
		`CREATE INDEX IF NOT EXISTS idx_repayments_due ON repayments(due_at)`,

		// Append-only score history. Rows are never updated or deleted;
		// users.latest_snapshot_id moves forward in the same transaction
		// as each insert.
		`CREATE TABLE IF NOT EXISTS score_snapshots (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES users(id),
			computed_at     INTEGER NOT NULL,
			total           INTEGER NOT NULL,
			cold_start      INTEGER NOT NULL DEFAULT 0,
			components_json TEXT NOT NULL,
			content_hash    TEXT NOT NULL,
			explanation     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_user ON score_snapshots(user_id, computed_at DESC)`,

		`CREATE TABLE IF NOT EXISTS cluster_health (
			id               TEXT PRIMARY KEY,
			community_id     TEXT NOT NULL REFERENCES communities(id),
			computed_at      INTEGER NOT NULL,
			member_count     INTEGER NOT NULL,
			avg_score        REAL NOT NULL,
			on_time_rate_90d REAL NOT NULL,
			active_borrowers INTEGER NOT NULL,
			total_disbursed  REAL NOT NULL,
			total_outstanding REAL NOT NULL,
			status           TEXT NOT NULL,
			at_risk_json     TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_health_community ON cluster_health(community_id, computed_at DESC)`,
	}
}
