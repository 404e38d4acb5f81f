package llm

import (
	"context"
	"fmt"

	"github.com/stayline/concierge-gateway/internal/config"
)

// FromConfig builds the stream client for the configured provider.
func FromConfig(ctx context.Context, cfg config.UpstreamConfig) (StreamClient, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "bedrock":
		modelID := cfg.ModelID
		if modelID == "" {
			modelID = cfg.Model
		}
		return NewBedrockClient(ctx, cfg.Region, modelID, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown upstream provider %q", cfg.Provider)
	}
}
