package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/search"
)

// testClient connects to MONGO_TEST_URI and hands out a throwaway database.
func testClient(t *testing.T) (*mongo.Client, string) {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := Connect(ctx, uri)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	dbName := fmt.Sprintf("searchbot_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return client, dbName
}

func TestFilmRepositoryStoreAndSearch(t *testing.T) {
	client, dbName := testClient(t)
	repo := NewFilmRepository(client, dbName)
	ctx := context.Background()
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	panda, err := repo.Store(ctx, domain.FilmData{Title: "Kung Fu Panda", ChatID: -100, MessageID: 1, FileID: "f1"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	shrek, err := repo.Store(ctx, domain.FilmData{Title: "Shrek", ChatID: -100, MessageID: 2})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if panda.Code != "C1" || shrek.Code != "C2" {
		t.Fatalf("unexpected codes %q %q", panda.Code, shrek.Code)
	}

	edited, err := repo.Store(ctx, domain.FilmData{Title: "Kung Fu Panda", ChatID: -100, MessageID: 1, FileID: "f2"})
	if err != nil {
		t.Fatalf("Store edit: %v", err)
	}
	if edited.ID != panda.ID || edited.Code != panda.Code || edited.FileID != "f2" {
		t.Fatalf("edit must keep identity: %+v", edited)
	}

	query, _ := search.PrepareQuery("kung fu panda")
	items, err := repo.QueryByRelevance(ctx, query, 10)
	if err != nil {
		t.Fatalf("QueryByRelevance: %v", err)
	}
	if len(items) != 1 || items[0].Film.ID != panda.ID || items[0].Relevance < search.ScoreExact {
		t.Fatalf("unexpected candidates %+v", items)
	}

	byCode, err := repo.FindByCode(ctx, "c2")
	if err != nil || byCode.ID != shrek.ID {
		t.Fatalf("FindByCode: %+v %v", byCode, err)
	}
	if err := repo.IncrementDownloads(ctx, shrek.ID); err != nil {
		t.Fatalf("IncrementDownloads: %v", err)
	}
	if err := repo.IncrementDownloads(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	recent, err := repo.Recent(ctx, 5)
	if err != nil || len(recent) != 2 {
		t.Fatalf("Recent: %+v %v", recent, err)
	}
}

func TestSearchLogRepository(t *testing.T) {
	client, dbName := testClient(t)
	repo := NewSearchLogRepository(client, dbName)
	ctx := context.Background()
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	if err := repo.LogSearch(ctx, domain.SearchLog{Query: "shrek", ResultCount: 1, RequesterID: 5, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("LogSearch: %v", err)
	}
	count, err := client.Database(dbName).Collection(searchesCollection).CountDocuments(ctx, map[string]any{})
	if err != nil || count != 1 {
		t.Fatalf("expected one log entry, got %d %v", count, err)
	}
}

func TestStoryRepositoryCounters(t *testing.T) {
	client, dbName := testClient(t)
	repo := NewStoryRepository(client, dbName)
	ctx := context.Background()
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	now := time.Now().UTC()
	docs := []any{
		storyDoc{ID: 1, Title: "older", CreatedAt: now.Add(-time.Hour).UnixMilli(), UpdatedAt: now.UnixMilli()},
		storyDoc{ID: 2, Title: "newer", CreatedAt: now.UnixMilli(), UpdatedAt: now.UnixMilli()},
	}
	if _, err := repo.collection.InsertMany(ctx, docs); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	latest, err := repo.Latest(ctx, 10)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 2 || latest[0].ID != 2 {
		t.Fatalf("unexpected latest %+v", latest)
	}

	if err := repo.Increment(ctx, 1, domain.StoryViews); err != nil {
		t.Fatalf("Increment views: %v", err)
	}
	if err := repo.Increment(ctx, 1, domain.StoryLikes); err != nil {
		t.Fatalf("Increment likes: %v", err)
	}
	story, err := repo.FindStory(ctx, 1)
	if err != nil {
		t.Fatalf("FindStory: %v", err)
	}
	if story.ViewsCount != 1 || story.Likes != 1 {
		t.Fatalf("unexpected counters %+v", story)
	}

	if err := repo.Increment(ctx, 42, domain.StoryViews); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindStory(ctx, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
