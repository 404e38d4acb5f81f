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

// RetrievalClient talks to the indexed-content service, which exposes both
// the embedding generator and the similarity search over the same API.
type RetrievalClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRetrievalClient creates a client for the retrieval service.
func NewRetrievalClient(baseURL, apiKey string, timeout time.Duration) *RetrievalClient {
	return &RetrievalClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *RetrievalClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("retrieval %s: status %d: %s", path, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Embed generates an embedding vector for text.
func (r *RetrievalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var out struct {
		Vector []float32 `json:"vector"`
	}
	err := r.post(ctx, "/v1/embed", map[string]string{"text": text}, &out)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return out.Vector, nil
}

type searchAPIRequest struct {
	Vector    []float32 `json:"vector"`
	Threshold float64   `json:"threshold"`
	Limit     int       `json:"limit"`
	TenantID  string    `json:"tenant_id"`
}

type searchAPIResult struct {
	Content      string  `json:"content"`
	Source       string  `json:"source"`
	Similarity   float64 `json:"similarity"`
	Personalized bool    `json:"personalized"`
}

// Search runs a similarity search against the tenant's indexed content.
func (r *RetrievalClient) Search(ctx context.Context, req SearchRequest) ([]Passage, error) {
	var out struct {
		Results []searchAPIResult `json:"results"`
	}
	err := r.post(ctx, "/v1/similarity-search", searchAPIRequest{
		Vector:    req.Vector,
		Threshold: req.Threshold,
		Limit:     req.Limit,
		TenantID:  req.TenantID,
	}, &out)
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(out.Results))
	for _, res := range out.Results {
		passages = append(passages, Passage{
			Content:      res.Content,
			Source:       res.Source,
			Similarity:   res.Similarity,
			Personalized: res.Personalized,
		})
	}
	return passages, nil
}
