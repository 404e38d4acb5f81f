// Package config loads gateway configuration from YAML with environment
// variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root gateway configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	Redis       RedisConfig       `yaml:"redis"`
	Limits      LimitsConfig      `yaml:"limits"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	WebSearch   WebSearchConfig   `yaml:"web_search"`
	Translation TranslationConfig `yaml:"translation"`
	Notify      NotifyConfig      `yaml:"notify"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Grounding   GroundingConfig   `yaml:"grounding"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig configures the sqlite-backed tenant/credential store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig selects the shared rate-limiter backend. When disabled the
// limiter keeps in-process sliding windows, which is correct for a single
// instance; Redis is for multi-instance deployments.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// LimitsConfig holds the three sliding-window thresholds. Tenant-level
// thresholds scale with subscription tier.
type LimitsConfig struct {
	Window           time.Duration `yaml:"window"`
	Credential       int           `yaml:"credential"`
	Device           int           `yaml:"device"`
	TenantStandard   int           `yaml:"tenant_standard"`
	TenantPremium    int           `yaml:"tenant_premium"`
	TenantEnterprise int           `yaml:"tenant_enterprise"`
	HaltDuration     time.Duration `yaml:"halt_duration"`
}

// UpstreamConfig configures the streaming text-generation service.
// Provider is "anthropic" (API-key SSE endpoint) or "bedrock" (SigV4).
type UpstreamConfig struct {
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	Region    string        `yaml:"region"`   // bedrock only
	ModelID   string        `yaml:"model_id"` // bedrock only
}

// RetrievalConfig configures the similarity-search collaborator.
type RetrievalConfig struct {
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	Threshold       float64 `yaml:"threshold"`
	GeneralLimit    int     `yaml:"general_limit"`
	DiagnosticLimit int     `yaml:"diagnostic_limit"`
}

// WebSearchConfig configures the best-effort external search fallback.
type WebSearchConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// TranslationConfig configures the caching translation facility.
type TranslationConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheBytes int64         `yaml:"cache_bytes"`
}

// NotifyConfig configures the emergency-halt notification sink.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// MonitoringConfig configures JSONL telemetry.
type MonitoringConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// GroundingConfig configures context assembly.
type GroundingConfig struct {
	Language    string `yaml:"language"`
	TokenBudget int    `yaml:"token_budget"`
}

// Load reads config from path and applies defaults and env overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if c.Store.Path == "" {
		c.Store.Path = "concierge.db"
	}
	if c.Limits.Window == 0 {
		c.Limits.Window = DefaultWindow
	}
	if c.Limits.Credential == 0 {
		c.Limits.Credential = DefaultCredentialLimit
	}
	if c.Limits.Device == 0 {
		c.Limits.Device = DefaultDeviceLimit
	}
	if c.Limits.TenantStandard == 0 {
		c.Limits.TenantStandard = DefaultTenantLimitStandard
	}
	if c.Limits.TenantPremium == 0 {
		c.Limits.TenantPremium = DefaultTenantLimitPremium
	}
	if c.Limits.TenantEnterprise == 0 {
		c.Limits.TenantEnterprise = DefaultTenantLimitEnterprise
	}
	if c.Limits.HaltDuration == 0 {
		c.Limits.HaltDuration = DefaultHaltDuration
	}
	if c.Upstream.Provider == "" {
		c.Upstream.Provider = "anthropic"
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://api.anthropic.com"
	}
	if c.Upstream.MaxTokens == 0 {
		c.Upstream.MaxTokens = 1024
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Retrieval.Threshold == 0 {
		c.Retrieval.Threshold = DefaultSimilarityThreshold
	}
	if c.Retrieval.GeneralLimit == 0 {
		c.Retrieval.GeneralLimit = DefaultGeneralLimit
	}
	if c.Retrieval.DiagnosticLimit == 0 {
		c.Retrieval.DiagnosticLimit = DefaultDiagnosticLimit
	}
	if c.WebSearch.Timeout == 0 {
		c.WebSearch.Timeout = DefaultWebSearchTimeout
	}
	if c.Translation.Timeout == 0 {
		c.Translation.Timeout = DefaultTranslateTimeout
	}
	if c.Translation.CacheBytes == 0 {
		c.Translation.CacheBytes = DefaultTranslationCacheBytes
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = DefaultNotifyTimeout
	}
	if c.Grounding.Language == "" {
		c.Grounding.Language = DefaultGroundingLanguage
	}
	if c.Grounding.TokenBudget == 0 {
		c.Grounding.TokenBudget = DefaultGroundingTokenBudget
	}
}

// applyEnv overrides secrets from the environment so API keys never need to
// live in the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("UPSTREAM_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("RETRIEVAL_API_KEY"); v != "" {
		c.Retrieval.APIKey = v
	}
	if v := os.Getenv("TRANSLATION_API_KEY"); v != "" {
		c.Translation.APIKey = v
	}
	if v := os.Getenv("WEB_SEARCH_API_KEY"); v != "" {
		c.WebSearch.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
}

func (c *Config) validate() error {
	switch c.Upstream.Provider {
	case "anthropic", "bedrock":
	default:
		return fmt.Errorf("unknown upstream provider %q", c.Upstream.Provider)
	}
	if c.Upstream.Provider == "bedrock" && c.Upstream.Region == "" {
		return fmt.Errorf("bedrock provider requires region")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis enabled but no url configured")
	}
	return nil
}
