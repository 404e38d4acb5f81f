// Package grounding assembles the per-request grounding document from
// structured tenant records, vector-retrieved passages, and an optional
// external search fallback.
package grounding

import (
	"context"

	"github.com/stayline/concierge-gateway/internal/store"
)

// Passage provenance values.
const (
	SourceManual         = "manual"
	SourceFAQ            = "faq"
	SourceRecommendation = "recommendation"
)

// Passage is one retrieved chunk of indexed tenant content.
type Passage struct {
	Content      string
	Source       string
	Similarity   float64
	Personalized bool
}

// Embedder turns text into a vector. External collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchRequest parameterizes a similarity search.
type SearchRequest struct {
	Vector    []float32
	Threshold float64
	Limit     int
	TenantID  string
}

// Searcher ranks indexed passages by similarity. External collaborator.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]Passage, error)
}

// WebSearcher is the best-effort external search fallback.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// PropertyReader is the slice of the store the assembler needs.
type PropertyReader interface {
	GetPropertyInfo(ctx context.Context, tenantID string) (store.PropertyInfo, error)
}

// Document is the assembled grounding text plus the retrieval signals used
// to decide on the web fallback. Built fresh per request, never cached,
// because it embeds per-tenant structured data.
type Document struct {
	Text        string
	BestScore   float64
	ManualCount int
	Passages    int
	WebFallback bool
}
