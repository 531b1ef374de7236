package translate

import (
	"context"
	"errors"
	"strings"
	"time"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/metrics"
)

const (
	providerFailureThreshold = 3
	providerBlockBase        = 2 * time.Minute
	providerBlockMax         = 15 * time.Minute
)

type providerHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	lastTimeout         bool
	totalRequests       int64
	totalFailures       int64
	timeoutCount        int64
}

func (g *Gateway) isProviderBlocked(providerName string, now time.Time) (bool, time.Time) {
	name := providerKey(providerName)
	if name == "" {
		return false, time.Time{}
	}

	g.healthMu.Lock()
	defer g.healthMu.Unlock()

	state := g.health[name]
	if state == nil {
		return false, time.Time{}
	}
	if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}
	}
	return true, state.blockedUntil
}

// recordProviderResult updates health counters and metrics. A nil err means
// the provider returned a usable translation.
func (g *Gateway) recordProviderResult(providerName string, err error, latency time.Duration, now time.Time) {
	name := providerKey(providerName)
	if name == "" {
		return
	}

	g.healthMu.Lock()
	defer g.healthMu.Unlock()

	state := g.health[name]
	if state == nil {
		state = &providerHealth{}
		g.health[name] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.TranslationRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		state.lastSuccessAt = now
		metrics.TranslationRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.TranslationProviderAvailable.WithLabelValues(name).Set(1)
		return
	}

	// Echoed or empty answers are not outages.
	if errors.Is(err, ErrInvalidTranslation) {
		metrics.TranslationRequestsTotal.WithLabelValues(name, "invalid").Inc()
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.TranslationRequestsTotal.WithLabelValues(name, status).Inc()

	if state.consecutiveFailures >= providerFailureThreshold {
		state.blockedUntil = now.Add(exponentialBlockDuration(state.consecutiveFailures))
		metrics.TranslationProviderAvailable.WithLabelValues(name).Set(0)
	}
}

// exponentialBlockDuration calculates how long to block a provider based on
// consecutive failures: baseDuration × 2^(failures - threshold), capped at 15min.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - providerFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := providerBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > providerBlockMax {
			return providerBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

// Diagnostics reports health of every configured provider in chain order.
func (g *Gateway) Diagnostics() []domain.TranslatorDiagnostics {
	g.healthMu.Lock()
	defer g.healthMu.Unlock()

	items := make([]domain.TranslatorDiagnostics, 0, len(g.providers))
	for _, entry := range g.providers {
		name := providerKey(entry.provider.Name())
		item := domain.TranslatorDiagnostics{Name: name}
		if state := g.health[name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				blockedUntil := state.blockedUntil
				item.BlockedUntil = &blockedUntil
			}
			item.LastError = state.lastError
			if !state.lastSuccessAt.IsZero() {
				lastSuccessAt := state.lastSuccessAt
				item.LastSuccessAt = &lastSuccessAt
			}
			if !state.lastFailureAt.IsZero() {
				lastFailureAt := state.lastFailureAt
				item.LastFailureAt = &lastFailureAt
			}
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.LastTimeout = state.lastTimeout
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
			item.TimeoutCount = state.timeoutCount
		}
		items = append(items, item)
	}
	return items
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
