// Package admission is the access gate in front of the chat pipeline. Every
// request passes halt, credential, rate-limit and content checks, in that
// order, before any retrieval or model work is allowed to start.
package admission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/ratelimit"
	"github.com/stayline/concierge-gateway/internal/store"
	"github.com/stayline/concierge-gateway/internal/utils"
)

// Accessor is the slice of the store the gate reads and audits through.
type Accessor interface {
	GetTenantStatus(ctx context.Context, id string) (*store.TenantStatus, error)
	ValidateCredential(ctx context.Context, token, tenantHint string) (string, error)
	AppendSecurityEvent(ctx context.Context, ev store.SecurityEvent) error
}

// Request is the gate-relevant part of an incoming chat request.
type Request struct {
	TenantID    string // legacy property id, optional when a token is present
	AccessToken string
	Message     string
	RemoteAddr  string
	UserAgent   string
}

// Denial is a gate rejection, already shaped for the error envelope.
type Denial struct {
	Status     int
	Reason     string
	Message    string
	ResetAt    time.Time
	HaltReason string
}

// Grant is an admitted request with the tenant context the pipeline needs.
type Grant struct {
	TenantID       string
	TenantName     string
	Tier           store.Tier
	SupportContact string
	Fingerprint    string
	Degraded       bool // tenant record unreadable; served with standard-tier limits
}

// Gate wires the store, limiter and circuit breaker.
type Gate struct {
	accessor Accessor
	limiter  *ratelimit.Limiter
	breaker  *ratelimit.Breaker
}

// NewGate creates the access gate.
func NewGate(accessor Accessor, limiter *ratelimit.Limiter, breaker *ratelimit.Breaker) *Gate {
	return &Gate{accessor: accessor, limiter: limiter, breaker: breaker}
}

// Admit runs the full gate. Exactly one of Grant or Denial is non-nil.
// Security-relevant denials write their audit row before returning.
func (g *Gate) Admit(ctx context.Context, req Request) (*Grant, *Denial) {
	if req.AccessToken == "" && req.TenantID == "" {
		return nil, &Denial{
			Status:  http.StatusUnauthorized,
			Reason:  "missing_access_identification",
			Message: "provide an access token or a property id",
		}
	}

	tenantID, denial := g.resolveTenant(ctx, req)
	if denial != nil {
		return nil, denial
	}

	grant := &Grant{TenantID: tenantID, Tier: store.TierStandard}
	status, err := g.accessor.GetTenantStatus(ctx, tenantID)
	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		return nil, &Denial{
			Status:  http.StatusUnauthorized,
			Reason:  "unknown_property",
			Message: "no property registered under this id",
		}
	case err != nil:
		// Degraded mode: the tenant record is unreadable, not absent. Serve
		// the request at standard-tier limits rather than turning a store
		// outage into a full outage.
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("gate: tenant read failed, degraded admission")
		grant.Degraded = true
	default:
		if status.Halted {
			return nil, &Denial{
				Status:     http.StatusForbidden,
				Reason:     "property_halted",
				Message:    "assistant temporarily unavailable for this property",
				ResetAt:    status.HaltExpiresAt,
				HaltReason: status.HaltReason,
			}
		}
		grant.TenantName = status.Name
		grant.Tier = status.Tier
		grant.SupportContact = status.SupportContact
	}

	grant.Fingerprint = Fingerprint(req.RemoteAddr, req.UserAgent)

	verdict, err := g.limiter.Check(ctx, ratelimit.CheckInput{
		Credential:  req.AccessToken,
		Fingerprint: grant.Fingerprint,
		TenantID:    tenantID,
		Tier:        grant.Tier,
	})
	if err != nil {
		// A limiter backend outage fails open: losing rate limiting for its
		// duration beats denying every guest.
		log.Error().Err(err).Msg("gate: rate limit check failed, admitting")
	} else if !verdict.Allowed {
		g.audit(ctx, store.SecurityEvent{
			Type:          store.EventRateLimited,
			TenantID:      tenantID,
			CredentialRef: utils.MaskKey(req.AccessToken),
			IP:            req.RemoteAddr,
			Details:       verdict.Reason,
		})
		if verdict.Reason == ratelimit.ReasonTenantLimit {
			g.breaker.Trip(ctx, tenantID, fmt.Sprintf("tenant window exceeded, reset at %s", verdict.ResetAt.Format(time.RFC3339)))
		}
		return nil, &Denial{
			Status:  http.StatusTooManyRequests,
			Reason:  verdict.Reason,
			Message: verdict.Message,
			ResetAt: verdict.ResetAt,
		}
	}

	switch ScreenMessage(req.Message) {
	case ReasonMessageTooLong:
		return nil, &Denial{
			Status:  http.StatusBadRequest,
			Reason:  ReasonMessageTooLong,
			Message: "message exceeds the 500 character limit",
		}
	case ReasonDisallowedContent:
		g.audit(ctx, store.SecurityEvent{
			Type:          store.EventDisallowedContent,
			TenantID:      tenantID,
			CredentialRef: utils.MaskKey(req.AccessToken),
			IP:            req.RemoteAddr,
			Details:       "instruction override attempt: " + utils.Truncate(req.Message, 120),
		})
		return nil, &Denial{
			Status:  http.StatusBadRequest,
			Reason:  ReasonDisallowedContent,
			Message: "message contains disallowed content",
		}
	}

	return grant, nil
}

// resolveTenant binds the request to a tenant via the credential, or the
// legacy property id when no token was supplied.
func (g *Gate) resolveTenant(ctx context.Context, req Request) (string, *Denial) {
	if req.AccessToken == "" {
		return req.TenantID, nil
	}

	boundTenant, err := g.accessor.ValidateCredential(ctx, req.AccessToken, req.TenantID)
	switch {
	case errors.Is(err, store.ErrTenantMismatch):
		g.audit(ctx, store.SecurityEvent{
			Type:          store.EventPropertyMismatch,
			TenantID:      boundTenant,
			CredentialRef: utils.MaskKey(req.AccessToken),
			IP:            req.RemoteAddr,
			Details:       fmt.Sprintf("claimed property %q", req.TenantID),
		})
		return "", &Denial{
			Status:  http.StatusForbidden,
			Reason:  "property_mismatch",
			Message: "access token is not valid for this property",
		}
	case errors.Is(err, store.ErrCredentialExpired):
		return "", &Denial{
			Status:  http.StatusUnauthorized,
			Reason:  "credential_expired",
			Message: "access token is outside its validity window",
		}
	case errors.Is(err, store.ErrCredentialNotFound):
		return "", &Denial{
			Status:  http.StatusUnauthorized,
			Reason:  "invalid_credential",
			Message: "access token not recognized",
		}
	case err != nil:
		log.Error().Err(err).Str("credential", utils.MaskKey(req.AccessToken)).Msg("gate: credential lookup failed")
		return "", &Denial{
			Status:  http.StatusInternalServerError,
			Reason:  "internal_error",
			Message: "unable to verify access",
		}
	}
	return boundTenant, nil
}

// audit writes a security event, logging rather than failing the request
// when the write itself errors.
func (g *Gate) audit(ctx context.Context, ev store.SecurityEvent) {
	if err := g.accessor.AppendSecurityEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("gate: security event write failed")
	}
}
