package domain

import "time"

type Language string

const (
	LanguageUzbek   Language = "uz"
	LanguageRussian Language = "ru"
	LanguageEnglish Language = "en"
)

// SearchStage names the cascade step that produced a response.
type SearchStage string

const (
	StageNone            SearchStage = "none"
	StageCode            SearchStage = "code"
	StageOriginal        SearchStage = "original"
	StageTransliteration SearchStage = "transliteration"
	StageTranslation     SearchStage = "translation"
	StageFallback        SearchStage = "fallback"
)

// TitleQuery is a query prepared for relevance scoring. Text is normalized,
// Length counts runes of Text.
type TitleQuery struct {
	Text     string
	Words    []string
	Trigrams []string
	Soundex  string
	Length   int
}

type SearchRequest struct {
	Query       string
	RequesterID int64
}

type SearchResponse struct {
	SearchID  string      `json:"searchId"`
	Query     string      `json:"query"`
	Stage     SearchStage `json:"stage"`
	Items     []Candidate `json:"items"`
	ElapsedMS int64       `json:"elapsedMs"`
}

type SearchLog struct {
	Query       string    `json:"query"`
	ResultCount int       `json:"resultCount"`
	RequesterID int64     `json:"requesterId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type TranslatorDiagnostics struct {
	Name                string     `json:"name"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs"`
	LastTimeout         bool       `json:"lastTimeout"`
	TotalRequests       int64      `json:"totalRequests"`
	TotalFailures       int64      `json:"totalFailures"`
	TimeoutCount        int64      `json:"timeoutCount"`
}
