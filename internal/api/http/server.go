package apihttp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/search"
	"multfilm/searchbot/internal/telegram"
)

const (
	maxQueryLength    = 255
	maxWebhookBody    = 1 << 20
	defaultFilmsLimit = 12
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	searchStageHeader = "X-Search-Stage"
)

type FilmSearcher interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
}

type FilmCatalog interface {
	Recent(ctx context.Context, limit int) ([]domain.Film, error)
	FindByID(ctx context.Context, id string) (domain.Film, error)
}

type WebhookManager interface {
	SetWebhook(ctx context.Context, url, secret string) error
	GetWebhookInfo(ctx context.Context) (telegram.WebhookInfo, error)
}

type TranslatorHealth interface {
	Diagnostics() []domain.TranslatorDiagnostics
}

type Server struct {
	search      FilmSearcher
	films       FilmCatalog
	updates     telegram.UpdateHandler
	webhooks    WebhookManager
	translators TranslatorHealth
	stories     StoryCatalog
	webhookURL  string
	secret      string
	rateLimit   float64
	rateBurst   int
	logger      *slog.Logger
}

// filmSummary is the public shape of a film in API listings.
type filmSummary struct {
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	Code    string              `json:"code"`
	Details []domain.FilmDetail `json:"details"`
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTelegram enables the webhook endpoints. Updates whose secret header
// does not match secret are rejected when secret is set.
func WithTelegram(updates telegram.UpdateHandler, webhooks WebhookManager, webhookURL, secret string) ServerOption {
	return func(s *Server) {
		s.updates = updates
		s.webhooks = webhooks
		s.webhookURL = strings.TrimSpace(webhookURL)
		s.secret = secret
	}
}

func WithTranslatorHealth(translators TranslatorHealth) ServerOption {
	return func(s *Server) {
		s.translators = translators
	}
}

func WithStories(stories StoryCatalog) ServerOption {
	return func(s *Server) {
		s.stories = stories
	}
}

func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		if perSecond > 0 && burst > 0 {
			s.rateLimit = perSecond
			s.rateBurst = burst
		}
	}
}

func NewServer(searcher FilmSearcher, films FilmCatalog, options ...ServerOption) *Server {
	server := &Server{
		search:    searcher,
		films:     films,
		rateLimit: 50,
		rateBurst: 100,
		logger:    slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route(mux, "GET /health", s.handleHealth)
	route(mux, "GET /metrics", promhttp.Handler().ServeHTTP)
	route(mux, "GET /search/films", s.handleSearchFilms)
	route(mux, "GET /films", s.handleFilms)
	route(mux, "GET /films/{id}", s.handleFilm)
	route(mux, "GET /stories", s.handleStories)
	route(mux, "GET /stories/{id}", s.handleStory)
	route(mux, "POST /stories/increment-views", s.handleStoryCounter(domain.StoryViews))
	route(mux, "POST /stories/increment-likes", s.handleStoryCounter(domain.StoryLikes))
	route(mux, "GET /translators/health", s.handleTranslatorsHealth)
	route(mux, "POST /telegram/webhook", s.handleWebhook)
	route(mux, "POST /telegram/set-webhook", s.handleSetWebhook)
	route(mux, "GET /telegram/webhook-info", s.handleWebhookInfo)
	traced := otelhttp.NewHandler(mux, "film-search-bot",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateLimit, s.rateBurst, observeMiddleware(s.logger, traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// handleSearchFilms runs the bot's search cascade; without a name it lists
// the newest films.
func (s *Server) handleSearchFilms(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if utf8.RuneCountInString(name) > maxQueryLength {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "name may not be greater than 255 characters")
		return
	}
	if name == "" {
		s.writeRecent(w, r, search.DefaultResultLimit)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	annotate(r, slog.String("query", clip(name, 80)))
	response, err := s.search.Search(r.Context(), domain.SearchRequest{Query: name})
	if err != nil {
		annotate(r, slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "search_failed", "film search failed")
		return
	}
	annotate(r,
		slog.String("searchId", response.SearchID),
		slog.String("stage", string(response.Stage)),
		slog.Int("results", len(response.Items)),
	)
	films := make([]domain.Film, 0, len(response.Items))
	for _, item := range response.Items {
		films = append(films, item.Film)
	}
	w.Header().Set(searchStageHeader, string(response.Stage))
	writeSuccess(w, http.StatusOK, summarize(films))
}

func (s *Server) handleFilms(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r, "limit", defaultFilmsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	s.writeRecent(w, r, limit)
}

func (s *Server) writeRecent(w http.ResponseWriter, r *http.Request, limit int) {
	if s.films == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "film catalog is not configured")
		return
	}
	films, err := s.films.Recent(r.Context(), limit)
	if err != nil {
		annotate(r, slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "catalog_failed", "film catalog is unavailable")
		return
	}
	writeSuccess(w, http.StatusOK, summarize(films))
}

func (s *Server) handleFilm(w http.ResponseWriter, r *http.Request) {
	if s.films == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "film catalog is not configured")
		return
	}
	film, err := s.films.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Film not found")
			return
		}
		annotate(r, slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "catalog_failed", "film catalog is unavailable")
		return
	}
	writeSuccess(w, http.StatusOK, film)
}

func (s *Server) handleTranslatorsHealth(w http.ResponseWriter, _ *http.Request) {
	items := []domain.TranslatorDiagnostics{}
	if s.translators != nil {
		items = s.translators.Diagnostics()
	}
	writeSuccess(w, http.StatusOK, items)
}

// handleWebhook processes the update before answering so Telegram retries
// updates the bot could not take.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.updates == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "telegram bot is not configured")
		return
	}
	if s.secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
			return
		}
	}

	var update telegram.Update
	if err := decodeJSONBody(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	annotate(r, slog.Int64("updateId", update.UpdateID), slog.String("updateKind", updateKind(update)))
	s.updates.HandleUpdate(r.Context(), update)
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhooks == nil || s.webhookURL == "" {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "webhook url is not configured")
		return
	}
	if err := s.webhooks.SetWebhook(r.Context(), s.webhookURL, s.secret); err != nil {
		s.logger.Error("set webhook failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "telegram_failed", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"url": s.webhookURL})
}

func (s *Server) handleWebhookInfo(w http.ResponseWriter, r *http.Request) {
	if s.webhooks == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "telegram bot is not configured")
		return
	}
	info, err := s.webhooks.GetWebhookInfo(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "telegram_failed", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, info)
}

func updateKind(update telegram.Update) string {
	switch {
	case update.Message != nil:
		return "message"
	case update.CallbackQuery != nil:
		return "callback_query"
	case update.ChannelPost != nil:
		return "channel_post"
	default:
		return "other"
	}
}

func summarize(films []domain.Film) []filmSummary {
	out := make([]filmSummary, 0, len(films))
	for _, film := range films {
		details := film.Details
		if details == nil {
			details = []domain.FilmDetail{}
		}
		out = append(out, filmSummary{ID: film.ID, Title: film.Title, Code: film.Code, Details: details})
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid json body")
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	payload := map[string]any{"success": true}
	if data != nil {
		payload["data"] = data
	}
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
		"code":    code,
	})
}
