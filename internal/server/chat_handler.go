package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/admission"
	"github.com/stayline/concierge-gateway/internal/config"
	"github.com/stayline/concierge-gateway/internal/grounding"
	"github.com/stayline/concierge-gateway/internal/llm"
	"github.com/stayline/concierge-gateway/internal/monitoring"
	"github.com/stayline/concierge-gateway/internal/prompt"
	"github.com/stayline/concierge-gateway/internal/relay"
	"github.com/stayline/concierge-gateway/internal/strategy"
)

// chatRequest is the client-facing request shape. The full conversation
// travels on every call; there is no server-side session.
type chatRequest struct {
	Messages    []llm.ChatTurn `json:"messages"`
	PropertyID  string         `json:"propertyId"`
	AccessToken string         `json:"accessToken"`
	Language    string         `json:"language"`
}

// lastUserMessage returns the newest user turn, or "".
func (r chatRequest) lastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// pipelineFailure distinguishes gate denials from infrastructure errors, and
// whether output had already started when the failure hit.
type pipelineFailure struct {
	denial  *admission.Denial
	err     error
	started bool
}

// flushSink streams segments to the HTTP response, flushing per segment so
// the guest sees text as it is produced.
type flushSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started *bool
}

func (s *flushSink) Send(_ context.Context, text string) error {
	if _, err := io.WriteString(s.w, text); err != nil {
		return err
	}
	*s.started = true
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	started := time.Now()
	event := &monitoring.RequestEvent{
		RequestID: requestID,
		Timestamp: started,
		ClientIP:  r.RemoteAddr,
	}
	defer func() {
		event.TotalMs = time.Since(started).Milliseconds()
		s.deps.Tracker.RecordRequest(event)
	}()

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		event.StatusCode = http.StatusBadRequest
		event.DenyReason = "invalid_request"
		writeError(w, http.StatusBadRequest, errorEnvelope{Error: "malformed request body", Reason: "invalid_request"})
		return
	}
	if req.Language == "" {
		req.Language = config.DefaultGuestLanguage
	}
	event.GuestLang = req.Language

	if req.lastUserMessage() == "" {
		event.StatusCode = http.StatusBadRequest
		event.DenyReason = "empty_conversation"
		writeError(w, http.StatusBadRequest, errorEnvelope{Error: "conversation has no user message", Reason: "empty_conversation"})
		return
	}

	w.Header().Set("X-Request-Id", requestID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	var outputStarted bool
	flusher, _ := w.(http.Flusher)
	sink := &flushSink{w: w, flusher: flusher, started: &outputStarted}

	if failure := s.run(r.Context(), req, r.RemoteAddr, r.UserAgent(), sink, event); failure != nil {
		switch {
		case failure.denial != nil:
			writeDenial(w, failure.denial)
		case !failure.started:
			writeError(w, http.StatusInternalServerError, errorEnvelope{Error: "assistant unavailable", Reason: "upstream_error"})
		default:
			// The stream already carried bytes; the status line is gone.
			// The failure is recorded in telemetry and the connection drops.
			log.Error().Err(failure.err).Str("request_id", requestID).Msg("server: stream failed mid-response")
		}
	}
}

// run executes the pipeline against an arbitrary sink. It is shared by the
// HTTP and WebSocket transports.
func (s *Server) run(ctx context.Context, req chatRequest, remoteAddr, userAgent string, sink relay.Sink, event *monitoring.RequestEvent) *pipelineFailure {
	message := req.lastUserMessage()

	admitStart := time.Now()
	grant, denial := s.deps.Gate.Admit(ctx, admission.Request{
		TenantID:    req.PropertyID,
		AccessToken: req.AccessToken,
		Message:     message,
		RemoteAddr:  remoteAddr,
		UserAgent:   userAgent,
	})
	event.AdmitMs = time.Since(admitStart).Milliseconds()
	if denial != nil {
		event.StatusCode = denial.Status
		event.DenyReason = denial.Reason
		return &pipelineFailure{denial: denial}
	}
	event.TenantID = grant.TenantID

	strat, code := strategy.Classify(message)
	event.Strategy = string(strat)
	event.Code = code

	assembleStart := time.Now()
	doc, err := s.deps.Assembler.Assemble(ctx, grounding.Input{
		TenantID:      grant.TenantID,
		TenantName:    grant.TenantName,
		Message:       message,
		Strategy:      strat,
		Code:          code,
		GuestLanguage: req.Language,
	})
	event.AssembleMs = time.Since(assembleStart).Milliseconds()
	if err != nil {
		event.StatusCode = http.StatusInternalServerError
		event.Error = err.Error()
		return &pipelineFailure{err: err}
	}
	event.Passages = doc.Passages
	event.WebFallback = doc.WebFallback

	system := prompt.Build(prompt.Input{
		Strategy:          strat,
		Code:              code,
		TenantName:        grant.TenantName,
		Grounding:         doc.Text,
		SupportContact:    grant.SupportContact,
		GroundingLanguage: s.deps.GroundingLanguage,
		Now:               time.Now(),
	})

	streamCtx := ctx
	if s.deps.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, s.deps.UpstreamTimeout)
		defer cancel()
	}

	hitsBefore, missesBefore := s.translationStats()

	streamStart := time.Now()
	stream, err := s.deps.LLM.Stream(streamCtx, llm.Request{
		System:    system,
		Messages:  req.Messages,
		MaxTokens: s.deps.MaxTokens,
	})
	if err != nil {
		event.StatusCode = http.StatusInternalServerError
		event.Error = err.Error()
		return &pipelineFailure{err: err}
	}
	defer stream.Close()

	event.Translated = req.Language != s.deps.GroundingLanguage
	rel := relay.New(s.deps.Translator, s.deps.GroundingLanguage, req.Language, grant.TenantID)
	runErr := rel.Run(streamCtx, stream.Chunks(), sink)
	event.StreamMs = time.Since(streamStart).Milliseconds()

	hitsAfter, missesAfter := s.translationStats()
	event.CacheHits = int(hitsAfter - hitsBefore)
	event.CacheMisses = int(missesAfter - missesBefore)

	if runErr != nil {
		event.StatusCode = http.StatusInternalServerError
		event.Error = runErr.Error()
		return &pipelineFailure{err: runErr, started: sinkStarted(sink)}
	}

	event.StatusCode = http.StatusOK
	event.Success = true
	return nil
}

// translationStats reads cumulative cache counters when the translator
// exposes them.
func (s *Server) translationStats() (hits, misses int64) {
	if st, ok := s.deps.Translator.(interface{ Stats() (int64, int64) }); ok {
		return st.Stats()
	}
	return 0, 0
}

func sinkStarted(sink relay.Sink) bool {
	if fs, ok := sink.(*flushSink); ok {
		return *fs.started
	}
	if ws, ok := sink.(interface{ Started() bool }); ok {
		return ws.Started()
	}
	return false
}
