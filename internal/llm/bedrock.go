package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/stayline/concierge-gateway/internal/config"
)

// BedrockClient invokes an Anthropic model hosted on AWS Bedrock, signing
// requests with SigV4 instead of an API key. It uses the non-streaming
// invoke endpoint and delivers the completion as a single chunk; the relay
// re-chunks at translation boundaries either way.
type BedrockClient struct {
	region  string
	modelID string
	creds   aws.CredentialsProvider
	signer  *v4.Signer
	client  *http.Client
}

// NewBedrockClient resolves AWS credentials from the default chain.
func NewBedrockClient(ctx context.Context, region, modelID string, timeout time.Duration) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &BedrockClient{
		region:  region,
		modelID: modelID,
		creds:   awsCfg.Credentials,
		signer:  v4.NewSigner(),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *BedrockClient) targetURL() string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke",
		c.region, url.PathEscape(c.modelID))
}

func (c *BedrockClient) buildBody(req Request) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	for _, set := range []struct {
		path  string
		value any
	}{
		{"anthropic_version", "bedrock-2023-05-31"},
		{"max_tokens", req.MaxTokens},
		{"temperature", 0},
		{"system", req.System},
		{"messages", req.Messages},
	} {
		body, err = sjson.SetBytes(body, set.path, set.value)
		if err != nil {
			return nil, fmt.Errorf("build bedrock body: %w", err)
		}
	}
	return body, nil
}

// Stream satisfies StreamClient. The whole completion arrives in one chunk.
func (c *BedrockClient) Stream(ctx context.Context, req Request) (*Stream, error) {
	body, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.targetURL(), strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := c.sign(ctx, httpReq, body); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bedrock request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("bedrock read: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bedrock status %d: %s", resp.StatusCode, extractAPIError(respBody))
	}

	text := gjson.GetBytes(respBody, "content.0.text").String()

	ch := make(chan Chunk, config.RelayChunkCapacity)
	go func() {
		defer close(ch)
		if text != "" {
			select {
			case ch <- Chunk{Text: text}:
			case <-ctx.Done():
			}
		}
	}()
	return NewStream(ch, nil), nil
}

func (c *BedrockClient) sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("aws credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]),
		"bedrock", c.region, time.Now()); err != nil {
		return fmt.Errorf("sign bedrock request: %w", err)
	}
	return nil
}
