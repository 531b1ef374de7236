package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"multfilm/searchbot/internal/domain"
)

const latestStoriesLimit = 10

type StoryCatalog interface {
	Latest(ctx context.Context, limit int) ([]domain.Story, error)
	FindStory(ctx context.Context, id int64) (domain.Story, error)
	Increment(ctx context.Context, id int64, counter domain.StoryCounter) error
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	if s.stories == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "story catalog is not configured")
		return
	}
	stories, err := s.stories.Latest(r.Context(), latestStoriesLimit)
	if err != nil {
		annotate(r, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "stories_failed", "Failed to retrieve stories")
		return
	}
	writeSuccess(w, http.StatusOK, stories)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	if s.stories == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "story catalog is not configured")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "Story not found")
		return
	}
	story, err := s.stories.FindStory(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Story not found")
			return
		}
		annotate(r, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "stories_failed", "Failed to retrieve story")
		return
	}
	writeSuccess(w, http.StatusOK, story)
}

// handleStoryCounter increments counter for the story named by story_id in
// a JSON or form body. Unknown stories are a validation error.
func (s *Server) handleStoryCounter(counter domain.StoryCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.stories == nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "story catalog is not configured")
			return
		}
		id, ok := storyIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "invalid_request", "The story id field must be an integer.")
			return
		}
		annotate(r, slog.Int64("storyId", id), slog.String("counter", string(counter)))
		if err := s.stories.Increment(r.Context(), id, counter); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusUnprocessableEntity, "invalid_request", "The selected story id is invalid.")
				return
			}
			annotate(r, slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "stories_failed", "Failed to increment "+string(counter)+" count")
			return
		}
		writeSuccess(w, http.StatusOK, nil)
	}
}

func storyIDFromRequest(r *http.Request) (int64, bool) {
	var raw string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			StoryID json.Number `json:"story_id"`
		}
		if err := decodeJSONBody(r, &body); err != nil {
			return 0, false
		}
		raw = body.StoryID.String()
	} else {
		raw = r.FormValue("story_id")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
