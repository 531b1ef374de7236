package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/storage/memory"
)

type failingStories struct{}

func (failingStories) Latest(context.Context, int) ([]domain.Story, error) {
	return nil, errors.New("mongo down")
}

func (failingStories) FindStory(context.Context, int64) (domain.Story, error) {
	return domain.Story{}, errors.New("mongo down")
}

func (failingStories) Increment(context.Context, int64, domain.StoryCounter) error {
	return errors.New("mongo down")
}

func storyServer(t *testing.T) (http.Handler, *memory.StoryStore) {
	t.Helper()
	store := memory.NewStoryStore()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		store.Add(domain.Story{Title: "Story", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	server := NewServer(&fakeSearcher{}, &fakeCatalog{}, WithStories(store))
	return server.Handler(), store
}

func TestStoriesListsLatestTen(t *testing.T) {
	handler, _ := storyServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var stories []domain.Story
	if err := json.Unmarshal(env.Data, &stories); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(stories) != 10 || stories[0].ID != 12 || stories[9].ID != 3 {
		t.Fatalf("expected the ten newest stories, got %d starting at %d", len(stories), stories[0].ID)
	}
}

func TestStoryShow(t *testing.T) {
	handler, _ := storyServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories/4", nil))
	env := decodeEnvelope(t, rec)
	var story domain.Story
	if err := json.Unmarshal(env.Data, &story); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if rec.Code != http.StatusOK || story.ID != 4 {
		t.Fatalf("unexpected response %d %+v", rec.Code, story)
	}

	for _, path := range []string{"/stories/99", "/stories/abc", "/stories/-1"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestStoryCountersIncrement(t *testing.T) {
	handler, store := storyServer(t)

	jsonReq := httptest.NewRequest(http.MethodPost, "/stories/increment-views", strings.NewReader(`{"story_id":5}`))
	jsonReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonReq)
	if rec.Code != http.StatusOK || !decodeEnvelope(t, rec).Success {
		t.Fatalf("views increment failed: %d", rec.Code)
	}

	form := url.Values{"story_id": {"5"}}
	formReq := httptest.NewRequest(http.MethodPost, "/stories/increment-likes", strings.NewReader(form.Encode()))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, formReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("likes increment failed: %d", rec.Code)
	}

	story, _ := store.FindStory(context.Background(), 5)
	if story.ViewsCount != 1 || story.Likes != 1 {
		t.Fatalf("expected one view and one like, got %+v", story)
	}
}

func TestStoryCounterValidation(t *testing.T) {
	handler, _ := storyServer(t)

	for _, body := range []string{`{}`, `{"story_id":"x"}`, `{"story_id":0}`, `not json`, `{"story_id":404}`} {
		req := httptest.NewRequest(http.MethodPost, "/stories/increment-likes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", body, rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Success || env.Code != "invalid_request" {
			t.Fatalf("%s: unexpected envelope %+v", body, env)
		}
	}
}

func TestStoriesStoreFailure(t *testing.T) {
	handler := NewServer(&fakeSearcher{}, &fakeCatalog{}, WithStories(failingStories{})).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/stories/increment-views", strings.NewReader(`{"story_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "Failed to increment views count" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestStoriesWithoutCatalog(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&fakeSearcher{}, &fakeCatalog{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
