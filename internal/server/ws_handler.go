package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/config"
	"github.com/stayline/concierge-gateway/internal/monitoring"
)

// wsFrame is one WebSocket message in either direction. Client frames carry
// a chatRequest; server frames carry a text segment, a done marker, or an
// error envelope.
type wsFrame struct {
	Text  string         `json:"text,omitempty"`
	Done  bool           `json:"done,omitempty"`
	Error *errorEnvelope `json:"error,omitempty"`
}

type wsSink struct {
	conn    *websocket.Conn
	started bool
}

func (s *wsSink) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(wsFrame{Text: text})
	if err != nil {
		return err
	}
	if err := s.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return err
	}
	s.started = true
	return nil
}

func (s *wsSink) Started() bool { return s.started }

// handleChatWS serves the same pipeline over a persistent WebSocket: one
// chatRequest frame in, streamed segment frames out, a done frame per
// exchange. The conversation state still travels with every request frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("server: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			// Client closed or went away; answer with a normal closure. The
			// abrupt CloseNow stays reserved for mid-exchange failures.
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if !s.serveWSExchange(r, conn, data) {
			return
		}
	}
}

// serveWSExchange runs one request/response exchange; false means the
// connection is no longer usable.
func (s *Server) serveWSExchange(r *http.Request, conn *websocket.Conn, data []byte) bool {
	ctx := r.Context()
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

	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		event.StatusCode = http.StatusBadRequest
		event.DenyReason = "invalid_request"
		return s.writeWSError(ctx, conn, errorEnvelope{Error: "malformed request frame", Reason: "invalid_request"})
	}
	if req.Language == "" {
		req.Language = config.DefaultGuestLanguage
	}
	event.GuestLang = req.Language
	if req.lastUserMessage() == "" {
		event.StatusCode = http.StatusBadRequest
		event.DenyReason = "empty_conversation"
		return s.writeWSError(ctx, conn, errorEnvelope{Error: "conversation has no user message", Reason: "empty_conversation"})
	}

	sink := &wsSink{conn: conn}
	if failure := s.run(ctx, req, r.RemoteAddr, r.UserAgent(), sink, event); failure != nil {
		if failure.denial != nil {
			return s.writeWSError(ctx, conn, denialEnvelope(failure.denial))
		}
		log.Error().Err(failure.err).Str("request_id", requestID).Msg("server: websocket exchange failed")
		return s.writeWSError(ctx, conn, errorEnvelope{Error: "assistant unavailable", Reason: "upstream_error"})
	}

	payload, _ := json.Marshal(wsFrame{Done: true})
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return false
	}
	return true
}

func (s *Server) writeWSError(ctx context.Context, conn *websocket.Conn, env errorEnvelope) bool {
	payload, err := json.Marshal(wsFrame{Error: &env})
	if err != nil {
		return false
	}
	return conn.Write(ctx, websocket.MessageText, payload) == nil
}
