// Package llm streams completions from the upstream text-generation
// service. The gateway always requests temperature zero: identical
// grounding plus identical question must give near-identical output so the
// downstream translation cache stays hot.
package llm

import "context"

// ChatTurn is one turn of the running conversation, supplied by the caller
// on every request. There is no server-side session store.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is one completion request.
type Request struct {
	System    string
	Messages  []ChatTurn
	MaxTokens int
}

// Chunk is one unit of streamed output. Exactly one of Text or Err is set;
// a Chunk with Err set is always the last one delivered.
type Chunk struct {
	Text string
	Err  error
}

// Stream delivers chunks over a bounded channel. The channel capacity plus
// blocking sends give backpressure: the producer cannot outrun a slow
// consumer by more than the buffer.
type Stream struct {
	ch     chan Chunk
	cancel context.CancelFunc
}

// NewStream wraps a prepared chunk channel. Providers that do not stream
// over SSE build their streams through this.
func NewStream(ch chan Chunk, cancel context.CancelFunc) *Stream {
	if cancel == nil {
		cancel = func() {}
	}
	return &Stream{ch: ch, cancel: cancel}
}

// Chunks returns the receive side. The channel is closed when the upstream
// stream ends or fails.
func (s *Stream) Chunks() <-chan Chunk {
	return s.ch
}

// Close stops the upstream read. Safe to call more than once.
func (s *Stream) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// StreamClient starts a completion stream. A start failure (the call never
// producing a stream) is fatal for the request; a mid-stream failure is
// delivered as a Chunk with Err set.
type StreamClient interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
}
