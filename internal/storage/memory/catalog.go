package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/search"
)

// Catalog is an in-process film catalog for local runs without MongoDB and
// for tests. Relevance is computed with search.Score.
type Catalog struct {
	mu       sync.RWMutex
	films    map[string]domain.Film
	byCode   map[string]string
	byPost   map[postKey]string
	nextCode int64
	searches []domain.SearchLog
	now      func() time.Time
}

type postKey struct {
	chatID    int64
	messageID int64
}

type CatalogOption func(*Catalog)

func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		films:  make(map[string]domain.Film),
		byCode: make(map[string]string),
		byPost: make(map[postKey]string),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add inserts film as is, filling in an id, code and timestamps when empty.
func (c *Catalog) Add(film domain.Film) domain.Film {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(film)
}

func (c *Catalog) addLocked(film domain.Film) domain.Film {
	if film.ID == "" {
		film.ID = uuid.NewString()
	}
	if film.Code == "" {
		c.nextCode++
		film.Code = domain.CodePrefix + strconv.FormatInt(c.nextCode, 10)
	} else if n, err := strconv.ParseInt(strings.TrimPrefix(film.Code, domain.CodePrefix), 10, 64); err == nil && n > c.nextCode {
		c.nextCode = n
	}
	if film.SourceType == "" {
		film.SourceType = domain.SourceTelegram
	}
	if film.CreatedAt.IsZero() {
		film.CreatedAt = c.now().UTC()
	}
	if film.UpdatedAt.IsZero() {
		film.UpdatedAt = film.CreatedAt
	}
	c.films[film.ID] = film
	c.byCode[film.Code] = film.ID
	if film.ChatID != 0 || film.MessageID != 0 {
		c.byPost[postKey{film.ChatID, film.MessageID}] = film.ID
	}
	return film
}

func (c *Catalog) QueryByRelevance(ctx context.Context, query domain.TitleQuery, limit int) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	films := make([]domain.Film, 0, len(c.films))
	for _, film := range c.films {
		if film.SourceType == domain.SourceTelegram {
			films = append(films, film)
		}
	}
	c.mu.RUnlock()
	return search.Rank(films, query, limit), nil
}

func (c *Catalog) FindByCode(ctx context.Context, code string) (domain.Film, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return domain.Film{}, domain.ErrNotFound
	}
	return c.films[id], nil
}

func (c *Catalog) FindByID(ctx context.Context, id string) (domain.Film, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	film, ok := c.films[strings.TrimSpace(id)]
	if !ok {
		return domain.Film{}, domain.ErrNotFound
	}
	return film, nil
}

func (c *Catalog) Recent(ctx context.Context, limit int) ([]domain.Film, error) {
	c.mu.RLock()
	films := make([]domain.Film, 0, len(c.films))
	for _, film := range c.films {
		films = append(films, film)
	}
	c.mu.RUnlock()

	sort.Slice(films, func(i, j int) bool {
		return films[i].CreatedAt.After(films[j].CreatedAt)
	})
	limit = search.ClampLimit(limit)
	if len(films) > limit {
		films = films[:limit]
	}
	return films, nil
}

func (c *Catalog) Store(ctx context.Context, data domain.FilmData) (domain.Film, error) {
	if strings.TrimSpace(data.Title) == "" {
		return domain.Film{}, domain.ErrInvalidFilm
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	if id, ok := c.byPost[postKey{data.ChatID, data.MessageID}]; ok {
		film := c.films[id]
		film.Title = strings.TrimSpace(data.Title)
		film.Description = data.Description
		film.Details = data.Details
		film.VideoURL = data.VideoURL
		film.FileID = data.FileID
		film.UpdatedAt = now
		c.films[id] = film
		return film, nil
	}
	return c.addLocked(domain.Film{
		Title:       strings.TrimSpace(data.Title),
		Description: data.Description,
		Details:     data.Details,
		VideoURL:    data.VideoURL,
		ChatID:      data.ChatID,
		MessageID:   data.MessageID,
		FileID:      data.FileID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}), nil
}

func (c *Catalog) IncrementDownloads(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	film, ok := c.films[id]
	if !ok {
		return domain.ErrNotFound
	}
	film.Downloads++
	c.films[id] = film
	return nil
}

func (c *Catalog) LogSearch(ctx context.Context, entry domain.SearchLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, entry)
	return nil
}

// Searches returns a copy of the logged searches.
func (c *Catalog) Searches() []domain.SearchLog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.SearchLog(nil), c.searches...)
}
