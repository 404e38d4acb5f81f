// Package notify delivers structured operational events to a webhook.
// Delivery is best effort: failures are logged and never propagate into the
// request path that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Event types.
const (
	TypeEmergencyHalt = "EMERGENCY_HALT"
)

// Event is a structured notification.
type Event struct {
	TenantID  string    `json:"tenant_id"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// WebhookNotifier POSTs events as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier with a bounded timeout.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify delivers the event. Errors are logged, never returned: a halted
// tenant must not depend on the webhook being reachable.
func (n *WebhookNotifier) Notify(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to marshal event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("type", ev.Type).Str("tenant_id", ev.TenantID).
			Msg("notify: webhook delivery failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		log.Warn().Int("status", resp.StatusCode).Str("type", ev.Type).
			Str("tenant_id", ev.TenantID).Msg("notify: webhook rejected event")
		return
	}
	log.Info().Str("type", ev.Type).Str("tenant_id", ev.TenantID).Msg("notify: event delivered")
}

// LogNotifier writes events to the log only. Used when no webhook is
// configured and in tests.
type LogNotifier struct{}

// Notify logs the event.
func (LogNotifier) Notify(_ context.Context, ev Event) {
	log.Warn().
		Str("type", ev.Type).
		Str("tenant_id", ev.TenantID).
		Str("reason", ev.Reason).
		Str("details", ev.Details).
		Msg("notify: event (no webhook configured)")
}

// FromConfig returns a webhook notifier when a URL is configured, otherwise
// the log-only fallback.
func FromConfig(webhookURL string, timeout time.Duration) Notifier {
	if webhookURL == "" {
		return LogNotifier{}
	}
	return NewWebhookNotifier(webhookURL, timeout)
}
