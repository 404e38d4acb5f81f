package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stayline/concierge-gateway/internal/config"
	"github.com/stayline/concierge-gateway/internal/llm"
)

type collectSink struct {
	segments []string
	failAt   int // 1-based send index that fails; 0 never fails
}

func (s *collectSink) Send(_ context.Context, text string) error {
	if s.failAt > 0 && len(s.segments)+1 == s.failAt {
		return errors.New("client gone")
	}
	s.segments = append(s.segments, text)
	return nil
}

type markTranslator struct {
	calls []string
	err   error
}

func (m *markTranslator) Translate(_ context.Context, text, _, _, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.calls = append(m.calls, text)
	return "(en) " + text, nil
}

func feed(texts ...string) <-chan llm.Chunk {
	ch := make(chan llm.Chunk, len(texts))
	for _, t := range texts {
		ch <- llm.Chunk{Text: t}
	}
	close(ch)
	return ch
}

func TestRunSplitsAtSentenceBoundaries(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{}
	r := New(tr, "es", "en", "tenant-1")

	err := r.Run(context.Background(), feed("Hola. ¿Qué ", "tal? Todo bien"), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"(en) Hola. ", "(en) ¿Qué tal? ", "(en) Todo bien"}
	if len(sink.segments) != len(want) {
		t.Fatalf("segments = %q, want %q", sink.segments, want)
	}
	for i := range want {
		if sink.segments[i] != want[i] {
			t.Fatalf("segment %d = %q, want %q", i, sink.segments[i], want[i])
		}
	}
}

func TestRunNewlineBeatsLaterSentenceEnd(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{}
	r := New(tr, "es", "en", "tenant-1")

	if err := r.Run(context.Background(), feed("Pasos:\nPrimero apaga. Luego espera"), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tr.calls[0] != "Pasos:\n" {
		t.Fatalf("first segment = %q, want the newline-terminated header", tr.calls[0])
	}
}

func TestRunListMarkerPeriodIsNotABoundary(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{}
	r := New(tr, "es", "en", "tenant-1")

	if err := r.Run(context.Background(), feed("1. Apaga", " el horno\n2. Espera"), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tr.calls[0] != "1. Apaga el horno\n" {
		t.Fatalf("first segment = %q; list item split at the marker period", tr.calls[0])
	}
	if tr.calls[1] != "2. Espera" {
		t.Fatalf("residual = %q", tr.calls[1])
	}
}

func TestRunBackstopBoundsSegmentSize(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{}
	r := New(tr, "es", "en", "tenant-1")

	// A long run of words with no sentence boundary at all.
	text := strings.Repeat("palabra ", 80)
	if err := r.Run(context.Background(), feed(text), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var rebuilt string
	for i, segment := range tr.calls {
		if len(segment) > config.RelayBackstopChars {
			t.Fatalf("segment %d has %d chars, exceeds backstop", i, len(segment))
		}
		if i < len(tr.calls)-1 && !strings.HasSuffix(segment, " ") {
			t.Fatalf("forced segment %d split mid-word: %q", i, segment)
		}
		rebuilt += segment
	}
	if rebuilt != text {
		t.Fatal("re-chunking lost or duplicated text")
	}
}

func TestRunPassthroughSkipsTranslator(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{}
	r := New(tr, "es", "es", "tenant-1")

	if err := r.Run(context.Background(), feed("Hola. ", "Adiós."), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("translator called %d times in passthrough mode", len(tr.calls))
	}
	if len(sink.segments) != 2 || sink.segments[0] != "Hola. " {
		t.Fatalf("segments = %q", sink.segments)
	}
}

func TestRunStreamErrorFlushesResidualThenFails(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{}
	r := New(tr, "es", "en", "tenant-1")

	ch := make(chan llm.Chunk, 2)
	ch <- llm.Chunk{Text: "Respuesta parcial"}
	ch <- llm.Chunk{Err: errors.New("upstream dropped")}
	close(ch)

	err := r.Run(context.Background(), ch, sink)
	if err == nil || !strings.Contains(err.Error(), "upstream dropped") {
		t.Fatalf("err = %v", err)
	}
	if len(sink.segments) != 1 || sink.segments[0] != "(en) Respuesta parcial" {
		t.Fatalf("residual not flushed before error: %q", sink.segments)
	}
}

func TestRunTranslateFailureIsExplicit(t *testing.T) {
	tr := &markTranslator{err: errors.New("service down")}
	sink := &collectSink{}
	r := New(tr, "es", "en", "tenant-1")

	err := r.Run(context.Background(), feed("Hola. Adiós."), sink)
	if err == nil || !strings.Contains(err.Error(), "translate segment") {
		t.Fatalf("err = %v", err)
	}
	if len(sink.segments) != 0 {
		t.Fatalf("untranslated text leaked to the sink: %q", sink.segments)
	}
}

func TestRunSinkFailureStopsRelay(t *testing.T) {
	tr := &markTranslator{}
	sink := &collectSink{failAt: 2}
	r := New(tr, "es", "en", "tenant-1")

	err := r.Run(context.Background(), feed("Uno. Dos. Tres."), sink)
	if err == nil || !strings.Contains(err.Error(), "client gone") {
		t.Fatalf("err = %v", err)
	}
}
