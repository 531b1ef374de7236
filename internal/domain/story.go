package domain

import "time"

// Story is a short promo card shown by the mini app. Stories are managed
// outside the bot; the API only lists them and counts views and likes.
type Story struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	URL        string    `json:"url,omitempty"`
	ViewsCount int64     `json:"viewsCount"`
	Likes      int64     `json:"likes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StoryCounter names a per-story counter that clients may increment.
type StoryCounter string

const (
	StoryViews StoryCounter = "views"
	StoryLikes StoryCounter = "likes"
)
