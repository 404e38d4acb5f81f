// Command gateway runs the concierge chat backend: an HTTP/WebSocket front
// over the access gate, grounding assembly and the streaming model relay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/stayline/concierge-gateway/internal/admission"
	"github.com/stayline/concierge-gateway/internal/config"
	"github.com/stayline/concierge-gateway/internal/grounding"
	"github.com/stayline/concierge-gateway/internal/llm"
	"github.com/stayline/concierge-gateway/internal/monitoring"
	"github.com/stayline/concierge-gateway/internal/notify"
	"github.com/stayline/concierge-gateway/internal/ratelimit"
	"github.com/stayline/concierge-gateway/internal/server"
	"github.com/stayline/concierge-gateway/internal/store"
	"github.com/stayline/concierge-gateway/internal/translate"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway: startup failed")
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load()
	setupLogging(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	windows, stopWindows, err := buildWindows(cfg)
	if err != nil {
		return err
	}
	defer stopWindows()

	notifier := notify.FromConfig(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	breaker := ratelimit.NewBreaker(st, notifier, cfg.Limits.HaltDuration, config.HaltReasonAnomaly)
	limiter := ratelimit.NewLimiter(windows, ratelimit.Thresholds{
		Window:           cfg.Limits.Window,
		Credential:       cfg.Limits.Credential,
		Device:           cfg.Limits.Device,
		TenantStandard:   cfg.Limits.TenantStandard,
		TenantPremium:    cfg.Limits.TenantPremium,
		TenantEnterprise: cfg.Limits.TenantEnterprise,
	})
	gate := admission.NewGate(st, limiter, breaker)

	translator, err := translate.NewCached(
		translate.NewHTTPTranslator(cfg.Translation.BaseURL, cfg.Translation.APIKey, cfg.Translation.Timeout),
		cfg.Translation.CacheBytes)
	if err != nil {
		return fmt.Errorf("translation cache: %w", err)
	}
	defer translator.Close()

	retrieval := grounding.NewRetrievalClient(cfg.Retrieval.BaseURL, cfg.Retrieval.APIKey, cfg.Upstream.Timeout)
	var web grounding.WebSearcher
	if cfg.WebSearch.Enabled {
		web = grounding.NewHTTPWebSearcher(cfg.WebSearch.BaseURL, cfg.WebSearch.APIKey, cfg.WebSearch.Timeout)
	}
	assembler := grounding.NewAssembler(st, retrieval, retrieval, web, translator, grounding.Options{
		Language:        cfg.Grounding.Language,
		Threshold:       cfg.Retrieval.Threshold,
		GeneralLimit:    cfg.Retrieval.GeneralLimit,
		DiagnosticLimit: cfg.Retrieval.DiagnosticLimit,
		TokenBudget:     cfg.Grounding.TokenBudget,
		WebTimeout:      cfg.WebSearch.Timeout,
	})

	client, err := llm.FromConfig(ctx, cfg.Upstream)
	if err != nil {
		return fmt.Errorf("upstream client: %w", err)
	}

	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled:     cfg.Monitoring.Enabled,
		LogPath:     cfg.Monitoring.LogPath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = tracker.Close() }()
	tracker.RecordInit(&monitoring.InitEvent{
		Timestamp:        time.Now(),
		Event:            "gateway_start",
		ServerPort:       cfg.Server.Port,
		UpstreamProvider: cfg.Upstream.Provider,
		RedisLimiter:     cfg.Redis.Enabled,
		WebSearchEnabled: cfg.WebSearch.Enabled,
		GroundingLang:    cfg.Grounding.Language,
	})

	srv := server.New(cfg.Server, server.Deps{
		Gate:              gate,
		Assembler:         assembler,
		LLM:               client,
		Translator:        translator,
		Tracker:           tracker,
		MaxTokens:         cfg.Upstream.MaxTokens,
		GroundingLanguage: cfg.Grounding.Language,
		UpstreamTimeout:   cfg.Upstream.Timeout,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("gateway: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildWindows selects the rate-limit backend: Redis for multi-instance
// deployments, in-process memory otherwise.
func buildWindows(cfg *config.Config) (ratelimit.WindowStore, func(), error) {
	if cfg.Redis.Enabled {
		windows, err := ratelimit.NewRedisWindowStore(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis limiter: %w", err)
		}
		log.Info().Msg("gateway: redis rate-limit backend")
		return windows, func() { _ = windows.Close() }, nil
	}
	windows := ratelimit.NewMemoryWindowStore()
	return windows, windows.Stop, nil
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
