package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/metrics"
)

const (
	DefaultTimeout        = 4 * time.Second
	defaultMaxParallel    = 4
	minTranslatableLength = 2
)

var (
	ErrInvalidTranslation = errors.New("translation rejected")
	ErrEmptyResponse      = errors.New("provider returned no translation")
)

// Provider is one translation upstream. Translate returns an error for any
// transport, status or decoding failure; the gateway decides whether the
// text itself is usable.
type Provider interface {
	Name() string
	Supports(source, target domain.Language) bool
	Translate(ctx context.Context, text string, source, target domain.Language) (string, error)
}

// TimeoutProvider lets a provider ask for a call timeout other than the
// gateway default.
type TimeoutProvider interface {
	Timeout() time.Duration
}

type providerEntry struct {
	provider Provider
	timeout  time.Duration
	limiter  *rate.Limiter
}

// Gateway tries translation providers in priority order until one returns a
// valid translation. It never returns errors to callers.
type Gateway struct {
	providers   []providerEntry
	timeout     time.Duration
	parallel    bool
	maxParallel int64
	ratePerSec  float64
	rateBurst   int
	logger      *slog.Logger
	now         func() time.Time

	healthMu sync.Mutex
	health   map[string]*providerHealth
}

type GatewayOption func(*Gateway)

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithParallel makes the gateway query all eligible providers at once and
// take the first valid answer.
func WithParallel(parallel bool) GatewayOption {
	return func(g *Gateway) {
		g.parallel = parallel
	}
}

func WithMaxParallel(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxParallel = int64(n)
		}
	}
}

// WithProviderRateLimit caps requests per second to each provider. Calls over
// the limit skip that provider instead of waiting.
func WithProviderRateLimit(perSecond float64, burst int) GatewayOption {
	return func(g *Gateway) {
		if perSecond > 0 {
			g.ratePerSec = perSecond
			g.rateBurst = max(burst, 1)
		}
	}
}

func withClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.now = now
	}
}

func NewGateway(providers []Provider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		timeout:     DefaultTimeout,
		maxParallel: defaultMaxParallel,
		logger:      slog.Default(),
		now:         time.Now,
		health:      make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(g)
	}

	seen := make(map[string]struct{}, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := providerKey(provider.Name())
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			g.logger.Warn("duplicate translation provider ignored", slog.String("provider", name))
			continue
		}
		seen[name] = struct{}{}

		entry := providerEntry{provider: provider, timeout: g.timeout}
		if tp, ok := provider.(TimeoutProvider); ok && tp.Timeout() > 0 {
			entry.timeout = tp.Timeout()
		}
		if g.ratePerSec > 0 {
			entry.limiter = rate.NewLimiter(rate.Limit(g.ratePerSec), g.rateBurst)
		}
		g.providers = append(g.providers, entry)
		metrics.TranslationProviderAvailable.WithLabelValues(name).Set(1)
	}
	return g
}

// Providers returns provider names in priority order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for _, entry := range g.providers {
		names = append(names, providerKey(entry.provider.Name()))
	}
	return names
}

// Translate returns the first valid translation of text. Inputs shorter than
// two characters are returned as they are.
func (g *Gateway) Translate(ctx context.Context, text string, source, target domain.Language) (string, bool) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTranslatableLength || source == target {
		return text, true
	}
	eligible := g.eligible(source, target)
	if len(eligible) == 0 {
		return "", false
	}
	if g.parallel {
		return g.translateParallel(ctx, eligible, text, source, target)
	}
	return g.translateSequential(ctx, eligible, text, source, target)
}

func (g *Gateway) eligible(source, target domain.Language) []providerEntry {
	now := g.now()
	out := make([]providerEntry, 0, len(g.providers))
	for _, entry := range g.providers {
		name := entry.provider.Name()
		if !entry.provider.Supports(source, target) {
			continue
		}
		if blocked, until := g.isProviderBlocked(name, now); blocked {
			g.logger.Debug("translation provider blocked",
				slog.String("provider", providerKey(name)),
				slog.Time("until", until),
			)
			metrics.TranslationRequestsTotal.WithLabelValues(providerKey(name), "blocked").Inc()
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (g *Gateway) translateSequential(ctx context.Context, entries []providerEntry, text string, source, target domain.Language) (string, bool) {
	for _, entry := range entries {
		if ctx.Err() != nil {
			return "", false
		}
		if !g.allow(entry) {
			continue
		}
		translated, err := g.callProvider(ctx, entry, text, source, target)
		if err == nil {
			return translated, true
		}
	}
	return "", false
}

func (g *Gateway) translateParallel(ctx context.Context, entries []providerEntry, text string, source, target domain.Language) (string, bool) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(g.maxParallel)
	results := make(chan string, len(entries))
	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(current providerEntry) {
			defer wg.Done()
			if err := sem.Acquire(runCtx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			if !g.allow(current) {
				return
			}
			translated, err := g.callProvider(runCtx, current, text, source, target)
			if err != nil {
				return
			}
			results <- translated
		}(entry)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	translated, ok := <-results
	return translated, ok
}

func (g *Gateway) allow(entry providerEntry) bool {
	if entry.limiter == nil || entry.limiter.Allow() {
		return true
	}
	metrics.TranslationRequestsTotal.WithLabelValues(providerKey(entry.provider.Name()), "rate_limited").Inc()
	return false
}

// callProvider runs one provider under its own timeout and records the
// outcome. Calls cut short by the caller's context are not held against the
// provider.
func (g *Gateway) callProvider(ctx context.Context, entry providerEntry, text string, source, target domain.Language) (translated string, err error) {
	name := providerKey(entry.provider.Name())
	callCtx, cancel := context.WithTimeout(ctx, entry.timeout)
	defer cancel()

	startedAt := g.now()
	func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("provider panic: %v", recovered)
			}
		}()
		translated, err = entry.provider.Translate(callCtx, text, source, target)
	}()
	latency := g.now().Sub(startedAt)

	if err == nil {
		translated = strings.TrimSpace(translated)
		if !IsValidTranslation(text, translated) {
			err = fmt.Errorf("%w: %q", ErrInvalidTranslation, truncate(translated, 80))
		}
	}
	if err != nil && ctx.Err() != nil {
		return "", err
	}

	g.recordProviderResult(name, err, latency, g.now())
	if err != nil {
		g.logger.Warn("translation provider failed",
			slog.String("provider", name),
			slog.String("source", string(source)),
			slog.String("target", string(target)),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	g.logger.Debug("translation provider answered",
		slog.String("provider", name),
		slog.String("source", string(source)),
		slog.String("target", string(target)),
		slog.Duration("latency", latency),
	)
	return translated, nil
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit]) + "..."
}
