// Package store persists tenants, access credentials, structured property
// info, and the append-only security event log in sqlite.
//
// DESIGN: One Store type owns the *sql.DB; per-entity methods live in
// sibling files (tenants.go, credentials.go, property_info.go, security.go).
// The halted-flag lazy expiry is implemented here in the reader, not by a
// background job, so the very next observation past the deadline sees the
// tenant cleared.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (and bootstraps) the sqlite database at path.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer; serialize access through one connection
	// to avoid SQLITE_BUSY under concurrent request load.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT 'standard',
			support_contact TEXT NOT NULL DEFAULT '',
			halted INTEGER NOT NULL DEFAULT 0,
			halt_reason TEXT,
			halt_expires_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			token TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			valid_from TIMESTAMP NOT NULL,
			valid_until TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS property_info (
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			category TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (tenant_id, category, field)
		)`,
		`CREATE TABLE IF NOT EXISTS security_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			tenant_id TEXT,
			credential_ref TEXT,
			ip TEXT,
			details TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_tenant
			ON security_events(tenant_id, created_at)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
