package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"multfilm/searchbot/internal/domain"
)

type StoryStore struct {
	mu      sync.RWMutex
	stories map[int64]domain.Story
	nextID  int64
}

func NewStoryStore() *StoryStore {
	return &StoryStore{stories: make(map[int64]domain.Story)}
}

// Add inserts story, assigning the next id and timestamps when empty.
func (s *StoryStore) Add(story domain.Story) domain.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	if story.ID == 0 {
		s.nextID++
		story.ID = s.nextID
	} else if story.ID > s.nextID {
		s.nextID = story.ID
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	if story.UpdatedAt.IsZero() {
		story.UpdatedAt = story.CreatedAt
	}
	s.stories[story.ID] = story
	return story
}

func (s *StoryStore) Latest(_ context.Context, limit int) ([]domain.Story, error) {
	s.mu.RLock()
	stories := make([]domain.Story, 0, len(s.stories))
	for _, story := range s.stories {
		stories = append(stories, story)
	}
	s.mu.RUnlock()

	sort.Slice(stories, func(i, j int) bool {
		if stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].ID > stories[j].ID
		}
		return stories[i].CreatedAt.After(stories[j].CreatedAt)
	})
	if limit > 0 && len(stories) > limit {
		stories = stories[:limit]
	}
	return stories, nil
}

func (s *StoryStore) FindStory(_ context.Context, id int64) (domain.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, ok := s.stories[id]
	if !ok {
		return domain.Story{}, domain.ErrNotFound
	}
	return story, nil
}

func (s *StoryStore) Increment(_ context.Context, id int64, counter domain.StoryCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	story, ok := s.stories[id]
	if !ok {
		return domain.ErrNotFound
	}
	switch counter {
	case domain.StoryViews:
		story.ViewsCount++
	case domain.StoryLikes:
		story.Likes++
	default:
		return fmt.Errorf("unknown story counter %q", counter)
	}
	s.stories[id] = story
	return nil
}
