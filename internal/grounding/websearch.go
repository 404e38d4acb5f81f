package grounding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPWebSearcher calls an external web-search provider. It is strictly
// best-effort enrichment: callers log and swallow every error, and the
// short timeout means a slow provider degrades to "no external context".
type HTTPWebSearcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPWebSearcher creates a web search client with a bounded timeout.
func NewHTTPWebSearcher(baseURL, apiKey string, timeout time.Duration) *HTTPWebSearcher {
	return &HTTPWebSearcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type webSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type webSearchResponse struct {
	Results []struct {
		Snippet string `json:"snippet"`
	} `json:"results"`
}

// Search returns result snippets for the query.
func (w *HTTPWebSearcher) Search(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(webSearchRequest{Query: query, Limit: 3})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("web search: status %d: %s", resp.StatusCode, string(b))
	}

	var out webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("web search: decode: %w", err)
	}

	snippets := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
	}
	return snippets, nil
}
