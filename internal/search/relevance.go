package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"multfilm/searchbot/internal/domain"
)

// Signal weights of the relevance score.
const (
	ScoreExact          = 300
	ScorePrefix         = 200
	ScoreSubstring      = 150
	ScorePerWord        = 30
	ScorePerTrigram     = 15
	ScorePhonetic       = 20
	ScoreLengthBaseline = 100
)

const (
	DefaultResultLimit = 10
	MaxResultLimit     = 20
)

// PrepareQuery normalizes raw text and derives everything the scorer needs.
func PrepareQuery(raw string) (domain.TitleQuery, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return domain.TitleQuery{}, err
	}
	return domain.TitleQuery{
		Text:     normalized,
		Words:    ExtractWords(normalized),
		Trigrams: MakeTrigrams(normalized),
		Soundex:  Soundex(normalized),
		Length:   utf8.RuneCountInString(normalized),
	}, nil
}

// Score sums the relevance signals of title against query. A title that
// shares no text or sound with the query scores 0; otherwise the length term
// is added and may push the total below zero for much longer titles.
func Score(title string, query domain.TitleQuery) float64 {
	if query.Text == "" {
		return 0
	}
	folded := foldTitle(title)
	var matched float64
	if folded == query.Text {
		matched += ScoreExact
	}
	if strings.HasPrefix(folded, query.Text) {
		matched += ScorePrefix
	}
	if strings.Contains(folded, query.Text) {
		matched += ScoreSubstring
	}
	for _, word := range query.Words {
		if strings.Contains(folded, word) {
			matched += ScorePerWord
		}
	}
	for _, trigram := range query.Trigrams {
		if strings.Contains(folded, trigram) {
			matched += ScorePerTrigram
		}
	}
	if query.Soundex != "" && Soundex(folded) == query.Soundex {
		matched += ScorePhonetic
	}
	if matched == 0 {
		return 0
	}
	return matched + float64(ScoreLengthBaseline-abs(utf8.RuneCountInString(folded)-query.Length))
}

// Rank scores films, drops non-positive candidates, orders the rest by
// relevance then recency and keeps at most limit of them.
func Rank(films []domain.Film, query domain.TitleQuery, limit int) []domain.Candidate {
	limit = ClampLimit(limit)
	candidates := make([]domain.Candidate, 0, len(films))
	for _, film := range films {
		relevance := Score(film.Title, query)
		if relevance <= 0 {
			continue
		}
		candidates = append(candidates, domain.Candidate{Film: film, Relevance: relevance})
	}
	SortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func SortCandidates(items []domain.Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		return items[i].Film.CreatedAt.After(items[j].Film.CreatedAt)
	})
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultResultLimit
	}
	if limit > MaxResultLimit {
		return MaxResultLimit
	}
	return limit
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
