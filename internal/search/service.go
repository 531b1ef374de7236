package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/metrics"
)

// DefaultHighRelevance is the score a top candidate needs for the original
// or transliterated query to end the cascade early.
const DefaultHighRelevance = 200

const defaultSearchLogTimeout = 5 * time.Second

// CatalogStore is the film catalog the cascade searches. FindByCode returns
// domain.ErrNotFound for unknown codes.
type CatalogStore interface {
	QueryByRelevance(ctx context.Context, query domain.TitleQuery, limit int) ([]domain.Candidate, error)
	FindByCode(ctx context.Context, code string) (domain.Film, error)
}

// Translator never fails loudly: ok is false when no provider produced a
// usable translation.
type Translator interface {
	Translate(ctx context.Context, text string, source, target domain.Language) (string, bool)
}

type SearchLogger interface {
	LogSearch(ctx context.Context, entry domain.SearchLog) error
}

type Service struct {
	store         CatalogStore
	translator    Translator
	searchLog     SearchLogger
	logger        *slog.Logger
	tracer        trace.Tracer
	highRelevance float64
	limit         int
	logTimeout    time.Duration
	pending       sync.WaitGroup
}

type ServiceOption func(*Service)

func WithTranslator(translator Translator) ServiceOption {
	return func(s *Service) {
		s.translator = translator
	}
}

func WithSearchLogger(searchLog SearchLogger) ServiceOption {
	return func(s *Service) {
		s.searchLog = searchLog
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithHighRelevance(threshold float64) ServiceOption {
	return func(s *Service) {
		if threshold > 0 {
			s.highRelevance = threshold
		}
	}
}

func WithResultLimit(limit int) ServiceOption {
	return func(s *Service) {
		s.limit = ClampLimit(limit)
	}
}

func WithSearchLogTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.logTimeout = timeout
		}
	}
}

func NewService(store CatalogStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:         store,
		logger:        slog.Default(),
		tracer:        otel.Tracer("multfilm/searchbot/search"),
		highRelevance: DefaultHighRelevance,
		limit:         DefaultResultLimit,
		logTimeout:    defaultSearchLogTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Search runs the title cascade for one user query. Catalog failures are
// returned; anything that panics inside the cascade is logged and answered
// with an empty response.
func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (response domain.SearchResponse, err error) {
	startedAt := time.Now()
	query := strings.TrimSpace(request.Query)
	searchID := uuid.NewString()
	response = emptyResponse(searchID, query)

	ctx, span := s.tracer.Start(ctx, "search.cascade", trace.WithAttributes(
		attribute.String("search.id", searchID),
		attribute.Int("search.query_length", len(query)),
	))
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("search panic recovered",
				slog.Any("error", recovered),
				slog.String("searchId", searchID),
				slog.String("query", query),
				slog.String("stack", string(debug.Stack())),
			)
			span.SetStatus(codes.Error, "panic")
			response = emptyResponse(searchID, query)
			err = nil
		}
		response.ElapsedMS = time.Since(startedAt).Milliseconds()
		span.SetAttributes(
			attribute.String("search.stage", string(response.Stage)),
			attribute.Int("search.results", len(response.Items)),
		)
		if err == nil {
			metrics.SearchRequestsTotal.WithLabelValues(string(response.Stage)).Inc()
			metrics.SearchDuration.Observe(time.Since(startedAt).Seconds())
		}
		// Failed searches are logged too, with no results.
		if query != "" {
			s.logSearchAsync(domain.SearchLog{
				Query:       query,
				ResultCount: len(response.Items),
				RequesterID: request.RequesterID,
				CreatedAt:   time.Now().UTC(),
			})
		}
	}()

	if query == "" || s.store == nil {
		return response, nil
	}

	run := &cascade{service: s, raw: query, searchID: searchID}
	if err := run.execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return emptyResponse(searchID, query), err
	}
	response.Stage = run.stage
	response.Items = run.result
	if response.Items == nil {
		response.Items = []domain.Candidate{}
	}

	s.logger.Debug("search finished",
		slog.String("searchId", searchID),
		slog.String("query", query),
		slog.String("stage", string(response.Stage)),
		slog.Int("results", len(response.Items)),
		slog.Duration("elapsed", time.Since(startedAt)),
	)
	return response, nil
}

// Wait blocks until pending search log writes finish or ctx is done.
func (s *Service) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) logSearchAsync(entry domain.SearchLog) {
	if s.searchLog == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logger.Debug("search log panic", slog.Any("error", recovered))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.logTimeout)
		defer cancel()
		if err := s.searchLog.LogSearch(ctx, entry); err != nil {
			metrics.SearchLogFailuresTotal.Inc()
			s.logger.Debug("search log write failed",
				slog.String("query", entry.Query),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// searchTitles scores the catalog for text. Text that normalizes to nothing
// never reaches the store.
func (s *Service) searchTitles(ctx context.Context, text string) ([]domain.Candidate, error) {
	prepared, err := PrepareQuery(text)
	if err != nil {
		if errors.Is(err, ErrInvalidUTF8) {
			return nil, nil
		}
		return nil, err
	}
	if prepared.Text == "" {
		return nil, nil
	}
	items, err := s.store.QueryByRelevance(ctx, prepared, s.limit)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	filtered := items[:0]
	for _, item := range items {
		if item.Relevance > 0 {
			filtered = append(filtered, item)
		}
	}
	SortCandidates(filtered)
	if len(filtered) > s.limit {
		filtered = filtered[:s.limit]
	}
	return filtered, nil
}

func (s *Service) isHighRelevance(items []domain.Candidate) bool {
	return len(items) > 0 && items[0].Relevance >= s.highRelevance
}

func emptyResponse(searchID, query string) domain.SearchResponse {
	return domain.SearchResponse{
		SearchID: searchID,
		Query:    query,
		Stage:    domain.StageNone,
		Items:    []domain.Candidate{},
	}
}
