package grounding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/config"
	"github.com/stayline/concierge-gateway/internal/store"
	"github.com/stayline/concierge-gateway/internal/strategy"
	"github.com/stayline/concierge-gateway/internal/translate"
)

// diagnosticKeywords bias retrieval toward tabular troubleshooting content
// when the guest quotes an appliance code.
const diagnosticKeywords = "error avería código solución instrucciones pasos"

// Options configures assembly.
type Options struct {
	// Language is the corpus's primary language. Queries are translated
	// into it before searching; the corpus is single-language and searching
	// in the wrong one silently degrades recall.
	Language        string
	Threshold       float64
	GeneralLimit    int
	DiagnosticLimit int
	TokenBudget     int
	WebTimeout      time.Duration
}

// Assembler builds the grounding document for one request.
type Assembler struct {
	property   PropertyReader
	embedder   Embedder
	searcher   Searcher
	web        WebSearcher // nil disables the fallback
	translator translate.Translator
	opts       Options
}

// NewAssembler wires the assembler's collaborators. web may be nil to
// disable the external fallback entirely.
func NewAssembler(property PropertyReader, embedder Embedder, searcher Searcher,
	web WebSearcher, translator translate.Translator, opts Options) *Assembler {
	return &Assembler{
		property:   property,
		embedder:   embedder,
		searcher:   searcher,
		web:        web,
		translator: translator,
		opts:       opts,
	}
}

// Input identifies one assembly request.
type Input struct {
	TenantID      string
	TenantName    string
	Message       string
	Strategy      strategy.Strategy
	Code          string
	GuestLanguage string
}

// Assemble builds the grounding document: structured blocks first, retrieved
// passages after, optional external block last. Retrieval and translation
// failures are enrichment errors: logged, and assembly proceeds with the
// best context it has.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*Document, error) {
	query := a.buildQuery(in)

	if in.GuestLanguage != a.opts.Language {
		translated, err := a.translator.Translate(ctx, query, in.GuestLanguage, a.opts.Language, in.TenantID)
		if err != nil {
			log.Warn().Err(err).Str("tenant_id", in.TenantID).
				Msg("grounding: query translation failed, searching untranslated")
		} else {
			query = translated
		}
	}

	passages := a.retrieve(ctx, in, query)

	var b strings.Builder
	b.WriteString(redact(fmt.Sprintf("[PROPERTY] %s", in.TenantName)))
	b.WriteByte('\n')

	a.writeInfoBlocks(ctx, &b, in.TenantID)

	doc := &Document{Passages: len(passages)}
	for _, p := range passages {
		if p.Similarity > doc.BestScore {
			doc.BestScore = p.Similarity
		}
		if p.Source == SourceManual {
			doc.ManualCount++
		}
		b.WriteString(redact(renderPassage(p)))
		b.WriteByte('\n')
	}

	if a.shouldWebFallback(in, doc) {
		if snippets := a.webFallback(ctx, query); len(snippets) > 0 {
			doc.WebFallback = true
			b.WriteString("\n[EXTERNAL] Información externa, menor prioridad que lo anterior:\n")
			for _, s := range snippets {
				b.WriteString(redact("[EXTERNAL] " + s))
				b.WriteByte('\n')
			}
		}
	}

	doc.Text = trimToTokenBudget(strings.TrimRight(b.String(), "\n"), a.opts.TokenBudget)
	return doc, nil
}

// buildQuery shapes the retrieval query per strategy.
func (a *Assembler) buildQuery(in Input) string {
	if in.Strategy == strategy.DiagnosticCode && in.Code != "" {
		return in.Message + " " + in.Code + " " + diagnosticKeywords
	}
	return in.Message
}

func (a *Assembler) retrieve(ctx context.Context, in Input, query string) []Passage {
	limit := a.opts.GeneralLimit
	if in.Strategy == strategy.DiagnosticCode {
		// Wider net: exact-code matches are sparse.
		limit = a.opts.DiagnosticLimit
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", in.TenantID).Msg("grounding: embedding failed")
		return nil
	}

	passages, err := a.searcher.Search(ctx, SearchRequest{
		Vector:    vector,
		Threshold: a.opts.Threshold,
		Limit:     limit,
		TenantID:  in.TenantID,
	})
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", in.TenantID).Msg("grounding: similarity search failed")
		return nil
	}
	return passages
}

// writeInfoBlocks renders the structured categories in fixed order with
// category-specific field extraction, not a raw dump.
func (a *Assembler) writeInfoBlocks(ctx context.Context, b *strings.Builder, tenantID string) {
	info, err := a.property.GetPropertyInfo(ctx, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("grounding: property info read failed")
		return
	}

	for _, category := range store.InfoCategories {
		fields := info[category]
		if len(fields) == 0 {
			continue
		}
		b.WriteString(redact(renderCategory(category, fields)))
		b.WriteByte('\n')
	}
}

// Preferred field order per category; anything else follows alphabetically.
var categoryFieldOrder = map[string][]string{
	store.CategoryAccess:   {"address", "parking", "transit"},
	store.CategoryRules:    {"checkin", "checkout", "smoking", "pets", "parties"},
	store.CategoryTech:     {"wifi", "heating", "aircon", "tv", "appliances"},
	store.CategoryContacts: {"host", "phone", "maintenance"},
}

func renderCategory(category string, fields map[string]string) string {
	var parts []string
	seen := make(map[string]bool)
	for _, f := range categoryFieldOrder[category] {
		if v, ok := fields[f]; ok {
			parts = append(parts, f+": "+v)
			seen[f] = true
		}
	}
	rest := make([]string, 0, len(fields))
	for f := range fields {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	for _, f := range rest {
		parts = append(parts, f+": "+fields[f])
	}
	return fmt.Sprintf("[INFO_%s] %s", strings.ToUpper(category), strings.Join(parts, " | "))
}

func renderPassage(p Passage) string {
	var label string
	switch p.Source {
	case SourceFAQ:
		label = "[FAQ]"
	case SourceRecommendation:
		label = "[RECOMMENDATION]"
	default:
		label = "[MANUAL]"
	}
	if p.Personalized {
		label += " (personalizado)"
	}
	return label + " " + p.Content
}

// problemTerms is the lexical heuristic gating the web fallback: only
// problem-shaped messages are worth an external search.
var problemTerms = []string{
	"no funciona", "no enciende", "no va", "roto", "rota", "avería",
	"averiado", "averiada", "error", "problema", "fallo", "falla",
	"atascado", "atascada", "gotea", "fuga",
	"broken", "not working", "doesn't work", "won't turn on", "issue",
	"problem", "stuck", "leaking",
}

func looksProblemRelated(message string) bool {
	lowered := strings.ToLower(message)
	for _, term := range problemTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// shouldWebFallback gates the external search on three conditions: the
// message looks problem-related, the strategy is not Emergency, and internal
// grounding is demonstrably weak. The gate keeps provider latency and cost
// off the common path.
func (a *Assembler) shouldWebFallback(in Input, doc *Document) bool {
	if a.web == nil {
		return false
	}
	if in.Strategy == strategy.Emergency {
		return false
	}
	if !looksProblemRelated(in.Message) {
		return false
	}
	return doc.BestScore <= config.WeakRetrievalScore ||
		doc.ManualCount < config.WeakRetrievalManualCount
}

// webFallback runs the external search with its own deadline. Failures and
// timeouts are logged and swallowed: this is enrichment, not a dependency.
func (a *Assembler) webFallback(ctx context.Context, query string) []string {
	searchCtx := ctx
	if a.opts.WebTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, a.opts.WebTimeout)
		defer cancel()
	}

	snippets, err := a.web.Search(searchCtx, query)
	if err != nil {
		log.Warn().Err(err).Msg("grounding: web fallback failed, continuing without")
		return nil
	}
	return snippets
}
