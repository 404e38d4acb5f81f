// Package monitoring - types.go defines telemetry event structures.
package monitoring

import "time"

// RequestEvent records one chat request through the pipeline.
type RequestEvent struct {
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	TenantID     string    `json:"tenant_id,omitempty"`
	ClientIP     string    `json:"client_ip,omitempty"`
	Strategy     string    `json:"strategy,omitempty"`
	Code         string    `json:"code,omitempty"`
	GuestLang    string    `json:"guest_lang,omitempty"`
	StatusCode   int       `json:"status_code"`
	DenyReason   string    `json:"deny_reason,omitempty"`
	Passages     int       `json:"passages,omitempty"`
	WebFallback  bool      `json:"web_fallback,omitempty"`
	Translated   bool      `json:"translated,omitempty"`
	CacheHits    int       `json:"translation_cache_hits,omitempty"`
	CacheMisses  int       `json:"translation_cache_misses,omitempty"`
	AdmitMs      int64     `json:"admit_ms"`
	AssembleMs   int64     `json:"assemble_ms,omitempty"`
	StreamMs     int64     `json:"stream_ms,omitempty"`
	TotalMs      int64     `json:"total_ms"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// InitEvent records gateway startup configuration.
type InitEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	Event            string    `json:"event"`
	ServerPort       int       `json:"server_port"`
	UpstreamProvider string    `json:"upstream_provider"`
	RedisLimiter     bool      `json:"redis_limiter"`
	WebSearchEnabled bool      `json:"web_search_enabled"`
	GroundingLang    string    `json:"grounding_lang"`
}

// TelemetryConfig configures the tracker.
type TelemetryConfig struct {
	Enabled     bool
	LogPath     string
	LogToStdout bool
}
