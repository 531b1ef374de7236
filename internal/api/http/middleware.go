package apihttp

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"multfilm/searchbot/internal/metrics"
)

const unmatchedRoute = "unmatched"

// requestNote is shared between the outer middleware and the route handler.
// The handler fills in the matched route and whatever it learned (search id,
// stage, update id) so the access log line and metrics carry it.
type requestNote struct {
	route string
	attrs []slog.Attr
}

type requestNoteKey struct{}

func noteFrom(ctx context.Context) *requestNote {
	note, _ := ctx.Value(requestNoteKey{}).(*requestNote)
	return note
}

// annotate adds attrs to the access log line of r.
func annotate(r *http.Request, attrs ...slog.Attr) {
	if note := noteFrom(r.Context()); note != nil {
		note.attrs = append(note.attrs, attrs...)
	}
}

// route registers handler under pattern and records the pattern, without
// the method, as the request's route label.
func route(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	label := pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		label = pattern[i+1:]
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if note := noteFrom(r.Context()); note != nil {
			note.route = label
		}
		handler(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// observeMiddleware writes one access log line and the HTTP metrics per
// request, labelled by the registered route pattern.
func observeMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		note := &requestNote{route: unmatchedRoute}
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), requestNoteKey{}, note)))
		elapsed := time.Since(start)

		if note.route != "/metrics" {
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, note.route, strconv.Itoa(rw.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, note.route).Observe(elapsed.Seconds())
		}

		attrs := append([]slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", note.route),
			slog.Int("status", rw.status),
			slog.Int("bytes", rw.size),
			slog.Int64("durationMs", elapsed.Milliseconds()),
			slog.String("clientIP", clientIP(r)),
		}, note.attrs...)
		logger.LogAttrs(r.Context(), requestLogLevel(note.route, rw.status), "http request", attrs...)
	})
}

// requestLogLevel keeps health checks and Telegram deliveries out of the info log
// unless they fail.
func requestLogLevel(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case route == "/health" || route == "/metrics" || route == "/telegram/webhook":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("http handler panic",
					slog.Any("error", recovered),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware limits the public API. Webhook deliveries come from
// Telegram only and are throttled per chat by the bot.
func rateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/metrics", "/telegram/webhook":
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// clip shortens user text for logs without splitting a UTF-8 sequence.
func clip(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "…"
}
