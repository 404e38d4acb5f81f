package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayline/concierge-gateway/internal/ratelimit"
)

func dialWS(t *testing.T, srv *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := strings.Replace(ts.URL, "http", "ws", 1) + "/v1/chat/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn, ctx
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) wsFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame wsFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestChatWSExchangeAndCleanClose(t *testing.T) {
	srv, _ := newTestServer(t, &stubLLM{texts: []string{"Gira el mando. Listo."}}, ratelimit.Thresholds{})
	conn, ctx := dialWS(t, srv)

	req := `{
		"messages": [{"role":"user","content":"How do I turn on the oven?"}],
		"accessToken": "tok-valid",
		"language": "en"
	}`
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(req)))

	var text string
	for {
		frame := readFrame(t, ctx, conn)
		require.Nil(t, frame.Error)
		if frame.Done {
			break
		}
		text += frame.Text
	}
	assert.Equal(t, "(en) Gira el mando. (en) Listo.", text)

	// A clean client close must complete the handshake without the server
	// answering with an internal-error frame.
	assert.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestChatWSDenialKeepsConnectionUsable(t *testing.T) {
	srv, _ := newTestServer(t, &stubLLM{texts: []string{"Hola."}}, ratelimit.Thresholds{})
	conn, ctx := dialWS(t, srv)

	// First exchange is denied: no token, no property id.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"messages":[{"role":"user","content":"hola"}]}`)))
	frame := readFrame(t, ctx, conn)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "missing_access_identification", frame.Error.Reason)

	// The connection survives a denial; the next exchange succeeds.
	req := `{
		"messages": [{"role":"user","content":"hola"}],
		"accessToken": "tok-valid"
	}`
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(req)))
	var sawDone bool
	var text string
	for !sawDone {
		frame := readFrame(t, ctx, conn)
		require.Nil(t, frame.Error)
		sawDone = frame.Done
		text += frame.Text
	}
	assert.Equal(t, "Hola.", text)

	assert.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}
