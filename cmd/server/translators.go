package main

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"multfilm/searchbot/internal/app"
	"multfilm/searchbot/internal/providers/deeplx"
	"multfilm/searchbot/internal/providers/googlegtx"
	"multfilm/searchbot/internal/providers/libretranslate"
	"multfilm/searchbot/internal/providers/mymemory"
	"multfilm/searchbot/internal/providers/openaimt"
	"multfilm/searchbot/internal/translate"
)

func newTracedClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// buildTranslators turns the configured chain into providers, preserving
// its priority order.
func buildTranslators(cfg app.Config, logger *slog.Logger) []translate.Provider {
	// The gateway enforces per-call deadlines; the client timeout only
	// guards against a stuck connection.
	client := newTracedClient(15 * time.Second)
	providers := make([]translate.Provider, 0, len(cfg.Translators))
	for _, entry := range cfg.Translators {
		timeout := entry.TimeoutDuration()
		if timeout <= 0 {
			timeout = cfg.TranslateTimeout
		}
		switch entry.Kind {
		case app.TranslatorDeepLX:
			providers = append(providers, deeplx.NewProvider(deeplx.Config{
				Name:      entry.Name,
				Endpoint:  entry.Endpoint,
				UserAgent: cfg.UserAgent,
				Client:    client,
				Timeout:   timeout,
			}))
		case app.TranslatorLibreTranslate:
			providers = append(providers, libretranslate.NewProvider(libretranslate.Config{
				Name:      entry.Name,
				Endpoint:  entry.Endpoint,
				APIKey:    entry.APIKey,
				UserAgent: cfg.UserAgent,
				Client:    client,
				Timeout:   timeout,
			}))
		case app.TranslatorMyMemory:
			providers = append(providers, mymemory.NewProvider(mymemory.Config{
				Name:      entry.Name,
				Endpoint:  entry.Endpoint,
				Email:     entry.Email,
				UserAgent: cfg.UserAgent,
				Client:    client,
				Timeout:   timeout,
			}))
		case app.TranslatorGoogle:
			providers = append(providers, googlegtx.NewProvider(googlegtx.Config{
				Name:      entry.Name,
				Endpoint:  entry.Endpoint,
				UserAgent: cfg.UserAgent,
				Client:    client,
				Timeout:   timeout,
			}))
		case app.TranslatorOpenAI:
			providers = append(providers, openaimt.NewProvider(openaimt.Config{
				Name:       entry.Name,
				APIKey:     entry.APIKey,
				BaseURL:    entry.Endpoint,
				Model:      entry.Model,
				HTTPClient: client,
				Timeout:    timeout,
			}))
		default:
			logger.Warn("unknown translator kind skipped", slog.String("kind", entry.Kind))
		}
	}
	return providers
}
