package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTenantStatusLazyHaltExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTenant(ctx, "t1", "Casa Sol", TierPremium, "+34 600 000 000"))
	require.NoError(t, s.HaltTenant(ctx, "t1", "anomalous volume", time.Now().Add(-time.Minute)))

	// The very next observation past the deadline must see the tenant
	// cleared, with no external trigger.
	ts, err := s.GetTenantStatus(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ts.Halted)
	assert.Empty(t, ts.HaltReason)
	assert.True(t, ts.HaltExpiresAt.IsZero())

	// And the clear is persisted, not just the returned view.
	ts, err = s.GetTenantStatus(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ts.Halted)
}

func TestTenantStatusActiveHaltSurvives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTenant(ctx, "t1", "Casa Sol", TierStandard, ""))
	until := time.Now().Add(30 * time.Minute)
	require.NoError(t, s.HaltTenant(ctx, "t1", "anomalous volume", until))

	ts, err := s.GetTenantStatus(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ts.Halted)
	assert.Equal(t, "anomalous volume", ts.HaltReason)
	assert.WithinDuration(t, until, ts.HaltExpiresAt, time.Second)
}

func TestGetTenantStatusNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTenantStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestValidateCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTenant(ctx, "t1", "Casa Sol", TierStandard, ""))
	require.NoError(t, s.InsertCredential(ctx, Credential{
		Token:      "stay-valid-token-0001",
		TenantID:   "t1",
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.InsertCredential(ctx, Credential{
		Token:      "stay-expired-token-01",
		TenantID:   "t1",
		ValidFrom:  time.Now().Add(-48 * time.Hour),
		ValidUntil: time.Now().Add(-24 * time.Hour),
	}))

	t.Run("valid", func(t *testing.T) {
		tenantID, err := s.ValidateCredential(ctx, "stay-valid-token-0001", "")
		require.NoError(t, err)
		assert.Equal(t, "t1", tenantID)
	})

	t.Run("valid with matching hint", func(t *testing.T) {
		tenantID, err := s.ValidateCredential(ctx, "stay-valid-token-0001", "t1")
		require.NoError(t, err)
		assert.Equal(t, "t1", tenantID)
	})

	t.Run("mismatched hint", func(t *testing.T) {
		tenantID, err := s.ValidateCredential(ctx, "stay-valid-token-0001", "t2")
		assert.ErrorIs(t, err, ErrTenantMismatch)
		// The bound tenant is returned so the caller can log the attempt.
		assert.Equal(t, "t1", tenantID)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := s.ValidateCredential(ctx, "stay-expired-token-01", "")
		assert.ErrorIs(t, err, ErrCredentialExpired)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := s.ValidateCredential(ctx, "no-such-token", "")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}

func TestPropertyInfoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTenant(ctx, "t1", "Casa Sol", TierStandard, ""))
	require.NoError(t, s.SetPropertyField(ctx, "t1", CategoryAccess, "address", "Calle Mayor 5"))
	require.NoError(t, s.SetPropertyField(ctx, "t1", CategoryAccess, "parking", "Garaje azul, plaza 12"))
	require.NoError(t, s.SetPropertyField(ctx, "t1", CategoryTech, "wifi", "Red: CasaSol / Clave: 123"))

	info, err := s.GetPropertyInfo(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Calle Mayor 5", info[CategoryAccess]["address"])
	assert.Equal(t, "Garaje azul, plaza 12", info[CategoryAccess]["parking"])
	assert.Equal(t, "Red: CasaSol / Clave: 123", info[CategoryTech]["wifi"])
	assert.Empty(t, info[CategoryRules])
}

func TestSecurityEventsAppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	since := time.Now().Add(-time.Minute)
	require.NoError(t, s.AppendSecurityEvent(ctx, SecurityEvent{
		Type: EventRateLimited, TenantID: "t1", IP: "10.0.0.9", Details: "tenant window",
	}))
	require.NoError(t, s.AppendSecurityEvent(ctx, SecurityEvent{
		Type: EventRateLimited, TenantID: "t1", IP: "10.0.0.9", Details: "tenant window",
	}))
	require.NoError(t, s.AppendSecurityEvent(ctx, SecurityEvent{
		Type: EventPropertyMismatch, TenantID: "t2",
	}))

	n, err := s.CountSecurityEvents(ctx, "t1", EventRateLimited, since)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountSecurityEvents(ctx, "t2", EventPropertyMismatch, since)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
