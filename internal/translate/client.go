// Package translate wraps the external translation facility with an
// in-process cache.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Translator converts text between languages. tenantID scopes caching so
// host-personalized phrasing never leaks across properties.
type Translator interface {
	Translate(ctx context.Context, text, srcLang, dstLang, tenantID string) (string, error)
}

// HTTPTranslator calls the translation service over HTTP.
type HTTPTranslator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPTranslator creates a client with a bounded per-call timeout.
func NewHTTPTranslator(baseURL, apiKey string, timeout time.Duration) *HTTPTranslator {
	return &HTTPTranslator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Context    string `json:"context,omitempty"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Translate calls the service once. Callers wanting caching wrap this in a
// Cached translator.
func (t *HTTPTranslator) Translate(ctx context.Context, text, srcLang, dstLang, _ string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Text:       text,
		SourceLang: srcLang,
		TargetLang: dstLang,
		Context:    "vacation rental guest conversation",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translate: status %d: %s", resp.StatusCode, string(b))
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translate: decode: %w", err)
	}
	return out.Text, nil
}

// Cached wraps a Translator with a ristretto cache and hit/miss counters.
type Cached struct {
	inner  Translator
	cache  *cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached creates a caching translator with the given byte budget.
func NewCached(inner Translator, maxCostBytes int64) (*Cached, error) {
	c, err := newCache(maxCostBytes)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: c}, nil
}

// Translate returns the cached translation when present, otherwise calls
// through and stores the result.
func (c *Cached) Translate(ctx context.Context, text, srcLang, dstLang, tenantID string) (string, error) {
	if text == "" || srcLang == dstLang {
		return text, nil
	}

	key := cacheKey(text, srcLang, dstLang, tenantID)
	if cached, ok := c.cache.get(key); ok {
		c.hits.Add(1)
		return cached, nil
	}

	translated, err := c.inner.Translate(ctx, text, srcLang, dstLang, tenantID)
	if err != nil {
		return "", err
	}
	c.misses.Add(1)
	c.cache.set(key, translated)

	log.Debug().
		Str("src", srcLang).
		Str("dst", dstLang).
		Int("chars", len(text)).
		Msg("translate: cache miss")
	return translated, nil
}

// Stats returns cumulative cache hits and misses.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.close()
}
