package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/stayline/concierge-gateway/internal/config"
)

// AnthropicClient streams completions from an Anthropic-compatible
// /v1/messages endpoint.
type AnthropicClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewAnthropicClient creates a streaming client. timeout bounds the whole
// stream, not just the connection.
func NewAnthropicClient(baseURL, apiKey, model string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// buildBody renders the request JSON. Temperature is pinned to zero.
func (c *AnthropicClient) buildBody(req Request, stream bool) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	for _, set := range []struct {
		path  string
		value any
	}{
		{"model", c.model},
		{"max_tokens", req.MaxTokens},
		{"temperature", 0},
		{"stream", stream},
		{"system", req.System},
		{"messages", req.Messages},
	} {
		body, err = sjson.SetBytes(body, set.path, set.value)
		if err != nil {
			return nil, fmt.Errorf("build request body: %w", err)
		}
	}
	return body, nil
}

// Stream starts the SSE stream and pumps text deltas into a bounded channel.
func (c *AnthropicClient) Stream(ctx context.Context, req Request) (*Stream, error) {
	body, err := c.buildBody(req, true)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.baseURL+"/v1/messages", strings.NewReader(string(body)))
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer cancel()
		defer func() { _ = resp.Body.Close() }()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, extractAPIError(b))
	}

	s := &Stream{
		ch:     make(chan Chunk, config.RelayChunkCapacity),
		cancel: cancel,
	}
	go c.pump(streamCtx, resp.Body, s.ch)
	return s, nil
}

// pump reads the SSE body and forwards text deltas. Sends block on the
// bounded channel, so a slow consumer throttles the upstream read.
func (c *AnthropicClient) pump(ctx context.Context, body io.ReadCloser, out chan<- Chunk) {
	defer close(out)
	defer func() { _ = body.Close() }()

	send := func(chunk Chunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	splitter := &sseEventSplitter{}
	buf := make([]byte, config.DefaultBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			splitter.feed(buf[:n])
			for {
				event, ok := splitter.next(false)
				if !ok {
					break
				}
				if !c.handleEvent(event, send) {
					return
				}
			}
		}
		if readErr != nil {
			if event, ok := splitter.next(true); ok {
				if !c.handleEvent(event, send) {
					return
				}
			}
			if readErr != io.EOF && ctx.Err() == nil {
				send(Chunk{Err: fmt.Errorf("upstream read: %w", readErr)})
			}
			return
		}
	}
}

// handleEvent forwards one parsed SSE event; returns false when pumping
// should stop.
func (c *AnthropicClient) handleEvent(event []byte, send func(Chunk) bool) bool {
	data := eventData(event)
	if data == nil {
		return true
	}

	switch gjson.GetBytes(data, "type").String() {
	case "content_block_delta":
		if text := gjson.GetBytes(data, "delta.text").String(); text != "" {
			return send(Chunk{Text: text})
		}
	case "error":
		msg := gjson.GetBytes(data, "error.message").String()
		log.Warn().Str("message", msg).Msg("llm: upstream error event")
		return send(Chunk{Err: fmt.Errorf("upstream error: %s", msg)})
	case "message_stop":
		return false
	}
	return true
}

// extractAPIError pulls the provider error message out of an error body,
// falling back to the raw body.
func extractAPIError(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
		return msg
	}
	var generic map[string]any
	if err := json.Unmarshal(body, &generic); err == nil {
		if msg, ok := generic["message"].(string); ok {
			return msg
		}
	}
	return string(body)
}
