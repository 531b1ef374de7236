package domain

import "time"

const (
	SourceTelegram = "TELEGRAM"
	CodePrefix     = "C"
)

// FilmDetail is one "Key: Value" line taken from a channel post caption.
type FilmDetail struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Film struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Details     []FilmDetail `json:"details,omitempty"`
	SourceType  string       `json:"sourceType"`
	VideoURL    string       `json:"videoUrl,omitempty"`
	ChatID      int64        `json:"chatId"`
	MessageID   int64        `json:"messageId"`
	FileID      string       `json:"fileId,omitempty"`
	Downloads   int64        `json:"downloads"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// FilmData is the input for storing a film parsed from a channel post.
// Films are identified by their storage message (ChatID, MessageID).
type FilmData struct {
	Title       string
	Description string
	Details     []FilmDetail
	VideoURL    string
	ChatID      int64
	MessageID   int64
	FileID      string
}

// Candidate is a film matched by a title query together with its relevance.
type Candidate struct {
	Film      Film    `json:"film"`
	Relevance float64 `json:"relevance"`
}
