// Package ratelimit implements layered sliding-window rate limiting and the
// tenant-level anomaly circuit breaker.
//
// DESIGN: Three independent windows checked in increasing blast-radius
// order: per-credential, per-device-fingerprint, per-tenant. The most
// specific, least-collateral-damage limit fires first. Counters are
// partitioned by key, so one credential's traffic can never starve or
// consult another's.
//
// Windows live behind the WindowStore interface: the in-memory store is the
// single-instance default, the Redis store shares counters across instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/stayline/concierge-gateway/internal/store"
)

// Rejection reasons, machine-readable for clients to branch on.
const (
	ReasonOK              = "ok"
	ReasonCredentialLimit = "credential_rate_limited"
	ReasonDeviceLimit     = "device_rate_limited"
	ReasonTenantLimit     = "tenant_rate_limited"
)

// Verdict classifies one request against all three windows. Produced fresh
// per request, never persisted.
type Verdict struct {
	Allowed bool
	Reason  string
	ResetAt time.Time
	Message string
}

// CheckInput identifies the request across the three keys.
type CheckInput struct {
	Credential  string
	Fingerprint string
	TenantID    string
	Tier        store.Tier
}

// WindowStore counts hits inside a sliding window, partitioned by key.
// Incr records one hit and returns the count within the window along with
// the time the oldest counted hit leaves the window.
type WindowStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Thresholds are the per-window limits. Tenant limits scale with tier.
type Thresholds struct {
	Window           time.Duration
	Credential       int
	Device           int
	TenantStandard   int
	TenantPremium    int
	TenantEnterprise int
}

// TenantLimit resolves the tenant-window threshold for a tier.
func (t Thresholds) TenantLimit(tier store.Tier) int {
	switch tier {
	case store.TierEnterprise:
		return t.TenantEnterprise
	case store.TierPremium:
		return t.TenantPremium
	default:
		return t.TenantStandard
	}
}

// Limiter checks the three windows in order.
type Limiter struct {
	windows    WindowStore
	thresholds Thresholds
}

// NewLimiter creates a limiter over the given window store.
func NewLimiter(windows WindowStore, thresholds Thresholds) *Limiter {
	return &Limiter{windows: windows, thresholds: thresholds}
}

// Check classifies a request. The first exceeded window wins; later windows
// are still incremented so that abusive traffic keeps counting toward the
// wider limits even while a narrow one is rejecting it.
func (l *Limiter) Check(ctx context.Context, in CheckInput) (Verdict, error) {
	type windowCheck struct {
		key     string
		limit   int
		reason  string
		message string
	}

	checks := []windowCheck{
		{
			key:     "cred:" + in.Credential,
			limit:   l.thresholds.Credential,
			reason:  ReasonCredentialLimit,
			message: "too many requests for this access credential",
		},
		{
			key:     "dev:" + in.Fingerprint,
			limit:   l.thresholds.Device,
			reason:  ReasonDeviceLimit,
			message: "too many requests from this device",
		},
		{
			key:     "tenant:" + in.TenantID,
			limit:   l.thresholds.TenantLimit(in.Tier),
			reason:  ReasonTenantLimit,
			message: "too many requests for this property",
		},
	}

	verdict := Verdict{Allowed: true, Reason: ReasonOK}
	for _, c := range checks {
		if c.key == "cred:" || c.key == "dev:" || c.key == "tenant:" {
			// Missing key component (e.g. legacy request without a
			// credential): that window does not apply.
			continue
		}
		count, resetAt, err := l.windows.Incr(ctx, c.key, l.thresholds.Window)
		if err != nil {
			return Verdict{}, fmt.Errorf("rate limit window %s: %w", c.key, err)
		}
		if verdict.Allowed && count > c.limit {
			verdict = Verdict{
				Allowed: false,
				Reason:  c.reason,
				ResetAt: resetAt,
				Message: c.message,
			}
		}
	}
	return verdict, nil
}
