// Package server exposes the chat pipeline over HTTP and WebSocket.
//
// DESIGN: One pipeline, two transports. POST /v1/chat streams the response
// body with flushes per translated segment; GET /v1/chat/ws carries the same
// request/response shapes over a WebSocket for clients that keep the
// conversation open. Both run the identical gate -> strategy -> grounding ->
// prompt -> model -> relay sequence.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/admission"
	"github.com/stayline/concierge-gateway/internal/config"
	"github.com/stayline/concierge-gateway/internal/grounding"
	"github.com/stayline/concierge-gateway/internal/llm"
	"github.com/stayline/concierge-gateway/internal/monitoring"
	"github.com/stayline/concierge-gateway/internal/translate"
)

// Deps are the pipeline collaborators the handlers drive.
type Deps struct {
	Gate       *admission.Gate
	Assembler  *grounding.Assembler
	LLM        llm.StreamClient
	Translator translate.Translator
	Tracker    *monitoring.Tracker

	MaxTokens         int
	GroundingLanguage string
	UpstreamTimeout   time.Duration
}

// Server is the HTTP front of the gateway.
type Server struct {
	httpServer *http.Server
	deps       Deps
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/chat/ws", s.handleChatWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe blocks until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server: listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
