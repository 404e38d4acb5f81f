// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All policy values that appear in multiple places are defined here.
// Rate thresholds and window sizes are policy configuration, not correctness
// properties; the window ordering (credential -> device -> tenant) is.
package config

import "time"

// =============================================================================
// MESSAGE SCREENING
// =============================================================================

// MaxMessageChars is the message body ceiling. Longer messages are denied
// with reason "message_too_long" before any retrieval or model work runs.
const MaxMessageChars = 500

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultWindow is the sliding window length shared by all three counters.
const DefaultWindow = time.Minute

// DefaultCredentialLimit is requests per window per access credential.
const DefaultCredentialLimit = 12

// DefaultDeviceLimit is requests per window per device fingerprint.
const DefaultDeviceLimit = 20

// Tenant-level limits per subscription tier. The tenant window is the widest
// blast radius and the only one that escalates to the circuit breaker.
const (
	DefaultTenantLimitStandard   = 120
	DefaultTenantLimitPremium    = 360
	DefaultTenantLimitEnterprise = 1200
)

// =============================================================================
// CIRCUIT BREAKER
// =============================================================================

// DefaultHaltDuration bounds an automatic tenant halt. The tenant self-clears
// on the next gate evaluation past this deadline, never a background job.
const DefaultHaltDuration = time.Hour

// HaltReasonAnomaly is the fixed reason recorded on an automatic halt.
const HaltReasonAnomaly = "automatic halt: anomalous request volume detected"

// =============================================================================
// RETRIEVAL
// =============================================================================

// DefaultSimilarityThreshold filters retrieved passages below this score.
const DefaultSimilarityThreshold = 0.3

// DefaultGeneralLimit is the passage count requested for general questions.
const DefaultGeneralLimit = 5

// DefaultDiagnosticLimit casts a wider net for appliance error codes, since
// exact-code matches are sparse in manual content.
const DefaultDiagnosticLimit = 10

// WeakRetrievalScore is the best-similarity ceiling under which internal
// grounding counts as weak and the web-search fallback may engage.
const WeakRetrievalScore = 0.5

// WeakRetrievalManualCount is the minimum manual-sourced passages required
// before grounding counts as strong.
const WeakRetrievalManualCount = 2

// DefaultGroundingTokenBudget caps the assembled grounding document.
const DefaultGroundingTokenBudget = 3000

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough counting when the tokenizer is unavailable.
const TokenEstimateRatio = 4

// =============================================================================
// STREAMING RELAY
// =============================================================================

// RelayBackstopChars forces a translation flush when the untranslated buffer
// grows past this size with no safe boundary found. The split happens at the
// nearest preceding space to avoid mid-word cuts.
const RelayBackstopChars = 200

// RelayChunkCapacity is the bounded token channel between the upstream model
// stream and the relay. Blocking writes give backpressure on slow clients.
const RelayChunkCapacity = 64

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultBufferSize is the standard I/O buffer size.
const DefaultBufferSize = 4096

// MaxRequestBodySize is the maximum allowed chat request body (64KB covers
// a full conversation history at the 500-char message ceiling).
const MaxRequestBodySize = 64 * 1024

// DefaultServerWriteTimeout for the HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultUpstreamTimeout bounds the whole upstream model stream.
const DefaultUpstreamTimeout = 5 * time.Minute

// DefaultTranslateTimeout bounds a single translation call.
const DefaultTranslateTimeout = 20 * time.Second

// DefaultWebSearchTimeout bounds the optional external search. A timeout
// degrades to "no external context", never a failed request.
const DefaultWebSearchTimeout = 6 * time.Second

// DefaultNotifyTimeout bounds the best-effort notification webhook.
const DefaultNotifyTimeout = 5 * time.Second

// =============================================================================
// CLEANUP AND MAINTENANCE
// =============================================================================

// DefaultCleanupInterval is the frequency for background cleanup goroutines.
const DefaultCleanupInterval = 5 * time.Minute

// =============================================================================
// TRANSLATION CACHE
// =============================================================================

// DefaultTranslationCacheBytes is the ristretto cache budget. Deterministic
// zero-temperature generation makes cache hits dominate steady-state traffic.
const DefaultTranslationCacheBytes = 32 * 1024 * 1024

// =============================================================================
// LANGUAGES
// =============================================================================

// DefaultGroundingLanguage is the corpus's primary language. Retrieval
// queries are translated into it before searching; the model always answers
// in it and the relay translates back to the guest.
const DefaultGroundingLanguage = "es"

// DefaultGuestLanguage is assumed when the request carries no language.
const DefaultGuestLanguage = "es"
