package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Tier is a tenant subscription tier.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// ParseTier normalizes a stored tier value, defaulting to standard.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPremium:
		return TierPremium
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierStandard
	}
}

// TenantStatus is the gate-facing view of a tenant.
type TenantStatus struct {
	ID             string
	Name           string
	Tier           Tier
	SupportContact string
	Halted         bool
	HaltReason     string
	HaltExpiresAt  time.Time
}

// ErrTenantNotFound is returned when no tenant row exists for the id.
var ErrTenantNotFound = errors.New("tenant not found")

// GetTenantStatus reads a tenant's halt state and tier. A halted tenant whose
// halt deadline has passed is cleared as a side effect before returning, so
// callers never observe a stale halt.
func (s *Store) GetTenantStatus(ctx context.Context, id string) (*TenantStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tier, support_contact, halted, halt_reason, halt_expires_at
		FROM tenants WHERE id = ?`, id)

	var (
		ts        TenantStatus
		tier      string
		reason    sql.NullString
		expiresAt sql.NullTime
		halted    int
	)
	err := row.Scan(&ts.ID, &ts.Name, &tier, &ts.SupportContact, &halted, &reason, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	ts.Tier = ParseTier(tier)
	ts.Halted = halted != 0
	ts.HaltReason = reason.String
	if expiresAt.Valid {
		ts.HaltExpiresAt = expiresAt.Time
	}

	// Lazy expiry: the first observation past the deadline self-clears.
	if ts.Halted && !ts.HaltExpiresAt.IsZero() && time.Now().After(ts.HaltExpiresAt) {
		if err := s.ClearHalt(ctx, ts.ID); err != nil {
			log.Warn().Err(err).Str("tenant_id", ts.ID).Msg("store: failed to clear expired halt")
		} else {
			log.Info().Str("tenant_id", ts.ID).Msg("store: expired halt cleared")
		}
		ts.Halted = false
		ts.HaltReason = ""
		ts.HaltExpiresAt = time.Time{}
	}

	return &ts, nil
}

// HaltTenant marks a tenant halted until the given deadline.
func (s *Store) HaltTenant(ctx context.Context, id, reason string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET halted = 1, halt_reason = ?, halt_expires_at = ?
		WHERE id = ?`, reason, until, id)
	if err != nil {
		return fmt.Errorf("halt tenant: %w", err)
	}
	return nil
}

// ClearHalt removes a tenant's halted state.
func (s *Store) ClearHalt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET halted = 0, halt_reason = NULL, halt_expires_at = NULL
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear halt: %w", err)
	}
	return nil
}

// UpsertTenant creates or updates a tenant row. Used by provisioning and tests.
func (s *Store) UpsertTenant(ctx context.Context, id, name string, tier Tier, supportContact string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, tier, support_contact) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, tier = excluded.tier,
			support_contact = excluded.support_contact`,
		id, name, string(tier), supportContact)
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}
