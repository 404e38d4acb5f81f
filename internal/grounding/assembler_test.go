package grounding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayline/concierge-gateway/internal/store"
	"github.com/stayline/concierge-gateway/internal/strategy"
)

type fakeProperty struct {
	info store.PropertyInfo
	err  error
}

func (f *fakeProperty) GetPropertyInfo(context.Context, string) (store.PropertyInfo, error) {
	return f.info, f.err
}

type fakeEmbedder struct{ lastText string }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastText = text
	return []float32{0.1, 0.2}, nil
}

type fakeSearcher struct {
	lastReq  SearchRequest
	passages []Passage
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, req SearchRequest) ([]Passage, error) {
	f.lastReq = req
	return f.passages, f.err
}

type fakeWeb struct {
	called   bool
	snippets []string
	err      error
}

func (f *fakeWeb) Search(context.Context, string) ([]string, error) {
	f.called = true
	return f.snippets, f.err
}

type echoTranslator struct{ calls int }

func (e *echoTranslator) Translate(_ context.Context, text, _, dst, _ string) (string, error) {
	e.calls++
	return "(" + dst + ") " + text, nil
}

func testOpts() Options {
	return Options{
		Language:        "es",
		Threshold:       0.3,
		GeneralLimit:    5,
		DiagnosticLimit: 10,
		TokenBudget:     3000,
		WebTimeout:      time.Second,
	}
}

func TestAssembleBlockOrderAndLabels(t *testing.T) {
	property := &fakeProperty{info: store.PropertyInfo{
		store.CategoryAccess: {"address": "Calle Mayor 5", "parking": "plaza 12"},
		store.CategoryTech:   {"wifi": "Red CasaSol"},
	}}
	searcher := &fakeSearcher{passages: []Passage{
		{Content: "Para reiniciar el horno pulse el botón central.", Source: SourceManual, Similarity: 0.8},
		{Content: "El supermercado abre a las 9.", Source: SourceRecommendation, Similarity: 0.6, Personalized: true},
		{Content: "El check-out es a las 11.", Source: SourceFAQ, Similarity: 0.7},
	}}
	a := NewAssembler(property, &fakeEmbedder{}, searcher, nil, &echoTranslator{}, testOpts())

	doc, err := a.Assemble(context.Background(), Input{
		TenantID: "t1", TenantName: "Casa Sol",
		Message: "¿cómo reinicio el horno?", Strategy: strategy.General, GuestLanguage: "es",
	})
	require.NoError(t, err)

	lines := strings.Split(doc.Text, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "[PROPERTY] Casa Sol", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[INFO_ACCESS] address: Calle Mayor 5 | parking: plaza 12"))
	assert.True(t, strings.HasPrefix(lines[2], "[INFO_TECH] wifi: Red CasaSol"))
	assert.Contains(t, doc.Text, "[MANUAL] Para reiniciar el horno")
	assert.Contains(t, doc.Text, "[RECOMMENDATION] (personalizado) El supermercado")
	assert.Contains(t, doc.Text, "[FAQ] El check-out")

	assert.InDelta(t, 0.8, doc.BestScore, 1e-9)
	assert.Equal(t, 1, doc.ManualCount)
	assert.Equal(t, 3, doc.Passages)
	assert.False(t, doc.WebFallback)
}

func TestAssembleDiagnosticQueryEnrichment(t *testing.T) {
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{}
	a := NewAssembler(&fakeProperty{}, embedder, searcher, nil, &echoTranslator{}, testOpts())

	_, err := a.Assemble(context.Background(), Input{
		TenantID: "t1", TenantName: "Casa Sol",
		Message: "no funciona el horno, código E17",
		Strategy: strategy.DiagnosticCode, Code: "E17", GuestLanguage: "es",
	})
	require.NoError(t, err)

	assert.Contains(t, embedder.lastText, "E17")
	assert.Contains(t, embedder.lastText, "avería")
	assert.Equal(t, 10, searcher.lastReq.Limit, "diagnostic strategy casts a wider net")
}

func TestAssembleTranslatesQueryBeforeSearch(t *testing.T) {
	embedder := &fakeEmbedder{}
	translator := &echoTranslator{}
	a := NewAssembler(&fakeProperty{}, embedder, &fakeSearcher{}, nil, translator, testOpts())

	_, err := a.Assemble(context.Background(), Input{
		TenantID: "t1", TenantName: "Casa Sol",
		Message: "the oven is broken", Strategy: strategy.General, GuestLanguage: "en",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, translator.calls)
	assert.True(t, strings.HasPrefix(embedder.lastText, "(es) "), "query must be searched in corpus language")
}

func TestWebFallbackOnlyWhenRetrievalWeak(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		strat    strategy.Strategy
		passages []Passage
		want     bool
	}{
		{
			name:    "weak retrieval and problem message",
			message: "no funciona la vitrocerámica",
			strat:   strategy.General,
			passages: []Passage{
				{Content: "algo", Source: SourceFAQ, Similarity: 0.4},
			},
			want: true,
		},
		{
			name:    "strong retrieval skips fallback",
			message: "no funciona la vitrocerámica",
			strat:   strategy.General,
			passages: []Passage{
				{Content: "a", Source: SourceManual, Similarity: 0.9},
				{Content: "b", Source: SourceManual, Similarity: 0.8},
			},
			want: false,
		},
		{
			name:     "non problem message skips fallback",
			message:  "¿dónde está la playa?",
			strat:    strategy.General,
			passages: nil,
			want:     false,
		},
		{
			name:     "emergency never falls back",
			message:  "no funciona nada y huele raro",
			strat:    strategy.Emergency,
			passages: nil,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			web := &fakeWeb{snippets: []string{"consejo externo"}}
			a := NewAssembler(&fakeProperty{}, &fakeEmbedder{},
				&fakeSearcher{passages: tt.passages}, web, &echoTranslator{}, testOpts())

			doc, err := a.Assemble(context.Background(), Input{
				TenantID: "t1", TenantName: "Casa Sol",
				Message: tt.message, Strategy: tt.strat, GuestLanguage: "es",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, web.called)
			assert.Equal(t, tt.want, doc.WebFallback)
			if tt.want {
				assert.Contains(t, doc.Text, "[EXTERNAL]")
			}
		})
	}
}

func TestWebFallbackFailureIsSwallowed(t *testing.T) {
	web := &fakeWeb{err: errors.New("provider down")}
	a := NewAssembler(&fakeProperty{}, &fakeEmbedder{}, &fakeSearcher{}, web, &echoTranslator{}, testOpts())

	doc, err := a.Assemble(context.Background(), Input{
		TenantID: "t1", TenantName: "Casa Sol",
		Message: "no funciona el horno", Strategy: strategy.General, GuestLanguage: "es",
	})
	require.NoError(t, err)
	assert.False(t, doc.WebFallback)
	assert.NotContains(t, doc.Text, "[EXTERNAL]")
}

func TestAssembleRedactsBrands(t *testing.T) {
	searcher := &fakeSearcher{passages: []Passage{
		{Content: "El horno Balay se reinicia con el botón central.", Source: SourceManual, Similarity: 0.9},
		{Content: "La lavadora Bosch usa el programa eco.", Source: SourceManual, Similarity: 0.8},
	}}
	a := NewAssembler(&fakeProperty{}, &fakeEmbedder{}, searcher, nil, &echoTranslator{}, testOpts())

	doc, err := a.Assemble(context.Background(), Input{
		TenantID: "t1", TenantName: "Casa Sol",
		Message: "¿cómo reinicio el horno?", Strategy: strategy.General, GuestLanguage: "es",
	})
	require.NoError(t, err)

	assert.NotContains(t, doc.Text, "Balay")
	assert.NotContains(t, doc.Text, "Bosch")
	assert.Contains(t, doc.Text, "El horno se reinicia")
}
