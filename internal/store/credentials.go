package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Credential is a guest access token bound to exactly one tenant and a
// validity window derived from the stay dates.
type Credential struct {
	Token      string
	TenantID   string
	ValidFrom  time.Time
	ValidUntil time.Time
}

var (
	// ErrCredentialNotFound means the token resolves to nothing.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialExpired means the stay window has not started or has ended.
	ErrCredentialExpired = errors.New("credential outside validity window")
	// ErrTenantMismatch means the token is valid but bound to a different
	// tenant than the caller claimed. This is a security event, never a
	// silent failure.
	ErrTenantMismatch = errors.New("credential bound to different tenant")
)

// ValidateCredential resolves a token and checks its validity window.
// tenantHint, when non-empty, is the caller-supplied legacy property id; a
// mismatch against the bound tenant returns ErrTenantMismatch along with the
// bound tenant id so the caller can log the attempt.
func (s *Store) ValidateCredential(ctx context.Context, token, tenantHint string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, valid_from, valid_until FROM credentials WHERE token = ?`, token)

	var (
		tenantID   string
		validFrom  time.Time
		validUntil time.Time
	)
	err := row.Scan(&tenantID, &validFrom, &validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("validate credential: %w", err)
	}

	if tenantHint != "" && tenantHint != tenantID {
		return tenantID, ErrTenantMismatch
	}

	now := time.Now()
	if now.Before(validFrom) || now.After(validUntil) {
		return tenantID, ErrCredentialExpired
	}

	return tenantID, nil
}

// InsertCredential mints a credential row. Used by provisioning and tests.
func (s *Store) InsertCredential(ctx context.Context, c Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (token, tenant_id, valid_from, valid_until)
		VALUES (?, ?, ?, ?)`,
		c.Token, c.TenantID, c.ValidFrom, c.ValidUntil)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}
