package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/notify"
)

// TenantHalter is the slice of the tenant store the breaker needs.
type TenantHalter interface {
	HaltTenant(ctx context.Context, id, reason string, until time.Time) error
}

// Breaker quarantines a tenant when its tenant-level window rejects.
//
// Only tenant-window rejections trip it: credential and device rejections
// are expected, benign throttling. The halt is time-boxed so an automated
// decision can never lock a tenant out permanently, and exactly one
// notification is emitted per anomaly window regardless of how many
// requests were rejected while it was tripping.
type Breaker struct {
	halter   TenantHalter
	notifier notify.Notifier
	haltFor  time.Duration
	reason   string

	mu       sync.Mutex
	lastTrip map[string]time.Time
}

// NewBreaker creates a circuit breaker.
func NewBreaker(halter TenantHalter, notifier notify.Notifier, haltFor time.Duration, reason string) *Breaker {
	return &Breaker{
		halter:   halter,
		notifier: notifier,
		haltFor:  haltFor,
		reason:   reason,
		lastTrip: make(map[string]time.Time),
	}
}

// Trip halts the tenant and emits one notification. Re-trips within the
// active halt window are suppressed, so N rejected requests in one anomaly
// produce one halt and one event.
func (b *Breaker) Trip(ctx context.Context, tenantID, details string) {
	now := time.Now()

	b.mu.Lock()
	if last, ok := b.lastTrip[tenantID]; ok && now.Before(last.Add(b.haltFor)) {
		b.mu.Unlock()
		return
	}
	b.lastTrip[tenantID] = now
	b.mu.Unlock()

	until := now.Add(b.haltFor)
	if err := b.halter.HaltTenant(ctx, tenantID, b.reason, until); err != nil {
		// Failing to persist the halt must not suppress the notification:
		// a human still needs to hear about the anomaly.
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("breaker: failed to halt tenant")
	} else {
		log.Warn().
			Str("tenant_id", tenantID).
			Time("halt_until", until).
			Msg("breaker: tenant halted")
	}

	b.notifier.Notify(ctx, notify.Event{
		TenantID: tenantID,
		Type:     notify.TypeEmergencyHalt,
		Reason:   b.reason,
		Details:  details,
	})
}
