// Package relay re-chunks the upstream model stream into translatable
// segments. The model answers in the grounding language; when the guest
// speaks something else, every segment is translated before it reaches the
// client, splitting at the earliest safe boundary so no partial sentence is
// ever handed to the translator.
package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/llm"
	"github.com/stayline/concierge-gateway/internal/translate"
)

// Sink receives finished output segments, in order.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Relay drives one response stream for one guest language pair.
type Relay struct {
	translator translate.Translator
	srcLang    string
	dstLang    string
	tenantID   string
}

// New builds a relay. When srcLang equals dstLang the relay passes chunks
// through untouched.
func New(translator translate.Translator, srcLang, dstLang, tenantID string) *Relay {
	return &Relay{
		translator: translator,
		srcLang:    srcLang,
		dstLang:    dstLang,
		tenantID:   tenantID,
	}
}

// Run consumes the chunk channel until it closes, emitting translated
// segments to the sink. Any residual buffer is flushed when the stream ends.
// A mid-stream error chunk flushes what was safely received, then surfaces
// the error; translation failures are explicit errors, never silent
// truncation.
func (r *Relay) Run(ctx context.Context, chunks <-chan llm.Chunk, sink Sink) error {
	passthrough := r.translator == nil || r.srcLang == r.dstLang

	var pending string
	emit := func(segment string) error {
		if segment == "" {
			return nil
		}
		out := segment
		if !passthrough {
			translated, err := r.translator.Translate(ctx, segment, r.srcLang, r.dstLang, r.tenantID)
			if err != nil {
				return fmt.Errorf("translate segment: %w", err)
			}
			out = translated
		}
		return sink.Send(ctx, out)
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			if flushErr := emit(pending); flushErr != nil {
				log.Warn().Err(flushErr).Msg("relay: residual flush failed after stream error")
			}
			return chunk.Err
		}
		if passthrough {
			if err := sink.Send(ctx, chunk.Text); err != nil {
				return err
			}
			continue
		}

		pending += chunk.Text
		for {
			segment, rest, ok := nextSegment(pending)
			if !ok {
				break
			}
			pending = rest
			if err := emit(segment); err != nil {
				return err
			}
		}
	}
	return emit(pending)
}
