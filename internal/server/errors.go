package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/admission"
)

// errorEnvelope is the JSON error shape for every non-streaming failure.
type errorEnvelope struct {
	Error      string     `json:"error"`
	Reason     string     `json:"reason,omitempty"`
	ResetAt    *time.Time `json:"resetAt,omitempty"`
	HaltReason string     `json:"haltReason,omitempty"`
}

func writeError(w http.ResponseWriter, status int, env errorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Warn().Err(err).Msg("server: error envelope write failed")
	}
}

func writeDenial(w http.ResponseWriter, d *admission.Denial) {
	writeError(w, d.Status, denialEnvelope(d))
}

func denialEnvelope(d *admission.Denial) errorEnvelope {
	env := errorEnvelope{
		Error:      d.Message,
		Reason:     d.Reason,
		HaltReason: d.HaltReason,
	}
	if !d.ResetAt.IsZero() {
		resetAt := d.ResetAt
		env.ResetAt = &resetAt
	}
	return env
}
