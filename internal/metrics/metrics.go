package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filmbot",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	SearchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "search_requests_total",
		Help:      "Total film searches by the cascade stage that produced the answer.",
	}, []string{"stage"})

	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "filmbot",
		Name:      "search_duration_seconds",
		Help:      "Film search duration in seconds, translation included.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	})

	SearchLogFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "search_log_failures_total",
		Help:      "Search analytics rows that could not be written.",
	})

	TranslationRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "translation_requests_total",
		Help:      "Total requests to translation providers by provider name and result status.",
	}, []string{"provider", "status"})

	TranslationRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filmbot",
		Name:      "translation_request_duration_seconds",
		Help:      "Translation provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 5, 10},
	}, []string{"provider"})

	TranslationProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "filmbot",
		Name:      "translation_provider_available",
		Help:      "Whether a translation provider is available (1) or blocked by circuit breaker (0).",
	}, []string{"provider"})

	BotUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "bot_updates_total",
		Help:      "Telegram updates handled by kind.",
	}, []string{"kind"})

	BotThrottledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "bot_throttled_total",
		Help:      "Messages dropped by the per-chat flood limit.",
	})

	TelegramRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmbot",
		Name:      "telegram_requests_total",
		Help:      "Telegram Bot API calls by method and result status.",
	}, []string{"method", "status"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SearchRequestsTotal,
		SearchDuration,
		SearchLogFailuresTotal,
		TranslationRequestsTotal,
		TranslationRequestDuration,
		TranslationProviderAvailable,
		BotUpdatesTotal,
		BotThrottledTotal,
		TelegramRequestsTotal,
	)
}
