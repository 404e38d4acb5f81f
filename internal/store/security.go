package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Security event types. Only security-relevant denials are recorded;
// ordinary not-found or validation denials are not.
const (
	EventPropertyMismatch  = "property_mismatch_attempt"
	EventRateLimited       = "rate_limited"
	EventDisallowedContent = "disallowed_content"
	EventEmergencyHalt     = "emergency_halt"
)

// SecurityEvent is an append-only audit record. Rows are write-once and
// never mutated.
type SecurityEvent struct {
	ID            string
	Type          string
	TenantID      string
	CredentialRef string
	IP            string
	Details       string
	CreatedAt     time.Time
}

// AppendSecurityEvent writes one audit row. The write happens before any
// response is returned to the client so the trail exists even if the
// response never arrives.
func (s *Store) AppendSecurityEvent(ctx context.Context, ev SecurityEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events (id, type, tenant_id, credential_ref, ip, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Type, ev.TenantID, ev.CredentialRef, ev.IP, ev.Details, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append security event: %w", err)
	}
	return nil
}

// CountSecurityEvents returns the number of events of a type for a tenant
// since the given time. Used by tests and the ops dashboard.
func (s *Store) CountSecurityEvents(ctx context.Context, tenantID, eventType string, since time.Time) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM security_events
		WHERE tenant_id = ? AND type = ? AND created_at >= ?`,
		tenantID, eventType, since)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count security events: %w", err)
	}
	return n, nil
}
