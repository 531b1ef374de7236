package search

import (
	"strings"
	"testing"
	"time"

	"multfilm/searchbot/internal/domain"
)

func mustPrepare(t *testing.T, raw string) domain.TitleQuery {
	t.Helper()
	query, err := PrepareQuery(raw)
	if err != nil {
		t.Fatalf("PrepareQuery(%q): %v", raw, err)
	}
	return query
}

func TestPrepareQuery(t *testing.T) {
	query := mustPrepare(t, "  Kung-Fu Panda!")
	if query.Text != "kung fu panda" {
		t.Fatalf("unexpected text %q", query.Text)
	}
	if len(query.Words) != 3 || query.Length != 13 {
		t.Fatalf("unexpected words=%v length=%d", query.Words, query.Length)
	}
	if len(query.Trigrams) != 9 {
		t.Fatalf("expected 9 trigrams, got %d", len(query.Trigrams))
	}
	if query.Soundex != "K521" {
		t.Fatalf("unexpected soundex %q", query.Soundex)
	}
}

func TestScoreExactMatchAtLeastThreeHundred(t *testing.T) {
	query := mustPrepare(t, "Kung Fu Panda")
	exact := Score("Kung Fu Panda", query)
	if exact < ScoreExact {
		t.Fatalf("exact match scored %.0f", exact)
	}
	sequel := Score("Kung Fu Panda 2", query)
	if sequel >= exact {
		t.Fatalf("sequel %.0f must score below exact %.0f", sequel, exact)
	}
	if sequel <= 0 {
		t.Fatalf("sequel must still match, got %.0f", sequel)
	}
}

func TestScoreWithoutOverlapIsZero(t *testing.T) {
	query := mustPrepare(t, "Kung Fu Panda")
	if got := Score("Shrek", query); got != 0 {
		t.Fatalf("expected 0 for unrelated title, got %.0f", got)
	}
	if got := Score("Anything", domain.TitleQuery{}); got != 0 {
		t.Fatalf("expected 0 for empty query, got %.0f", got)
	}
}

func TestScoreLengthPenaltyCanGoNegative(t *testing.T) {
	query := mustPrepare(t, "cat")
	long := "Cat " + strings.Repeat("x", 600)
	if got := Score(long, query); got >= 0 {
		t.Fatalf("expected negative score for a very long title, got %.0f", got)
	}
}

func TestScorePhoneticOnly(t *testing.T) {
	query := mustPrepare(t, "Robert")
	got := Score("Rupert", query)
	// "rupert" shares only the sound and the "ert" trigram.
	want := float64(ScorePhonetic + ScorePerTrigram + ScoreLengthBaseline)
	if got != want {
		t.Fatalf("expected %.0f, got %.0f", want, got)
	}
}

func TestRankOrdersAndFilters(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	films := []domain.Film{
		{ID: "sequel", Title: "Kung Fu Panda 2", CreatedAt: base},
		{ID: "other", Title: "Shrek", CreatedAt: base},
		{ID: "long", Title: "Kung " + strings.Repeat("z", 700), CreatedAt: base},
		{ID: "exact", Title: "Kung Fu Panda", CreatedAt: base},
		{ID: "old-dup", Title: "Kung Fu Panda 3", CreatedAt: base.Add(-time.Hour)},
		{ID: "new-dup", Title: "Kung Fu Panda 3", CreatedAt: base.Add(time.Hour)},
	}

	items := Rank(films, mustPrepare(t, "Kung Fu Panda"), 10)
	if len(items) != 4 {
		t.Fatalf("expected 4 candidates, got %d: %+v", len(items), items)
	}
	if items[0].Film.ID != "exact" {
		t.Fatalf("exact match must rank first, got %q", items[0].Film.ID)
	}
	for _, item := range items {
		if item.Relevance <= 0 {
			t.Fatalf("non-positive candidate %q returned", item.Film.ID)
		}
	}
	var order []string
	for _, item := range items {
		order = append(order, item.Film.ID)
	}
	if got := strings.Join(order, ","); got != "exact,new-dup,sequel,old-dup" {
		t.Fatalf("unexpected order %s", got)
	}

	if got := Rank(films, mustPrepare(t, "Kung Fu Panda"), 2); len(got) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: DefaultResultLimit, -3: DefaultResultLimit, 5: 5, 20: 20, 50: MaxResultLimit}
	for input, want := range cases {
		if got := ClampLimit(input); got != want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", input, got, want)
		}
	}
}
