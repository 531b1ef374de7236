package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"multfilm/searchbot/internal/domain"
)

var (
	codePattern   = regexp.MustCompile(`^[Cc]\d+$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

type cascadeState int

const (
	stateTryCode cascadeState = iota
	stateTryOriginal
	stateTryTransliteration
	stateTryTranslation
	stateFallback
	stateDone
)

var cascadeStateNames = map[cascadeState]string{
	stateTryCode:            "code",
	stateTryOriginal:        "original",
	stateTryTransliteration: "transliteration",
	stateTryTranslation:     "translation",
	stateFallback:           "fallback",
}

// cascade holds the state of one Search call while it moves through the
// stages. Each step returns the next state.
type cascade struct {
	service  *Service
	raw      string
	searchID string

	original []domain.Candidate
	result   []domain.Candidate
	stage    domain.SearchStage
}

func (c *cascade) execute(ctx context.Context) error {
	c.stage = domain.StageNone
	state := stateTryCode
	for state != stateDone {
		stepCtx, span := c.service.tracer.Start(ctx, "search.stage."+cascadeStateNames[state])
		next, err := c.step(stepCtx, state)
		span.SetAttributes(attribute.Int("search.results", len(c.result)))
		span.End()
		if err != nil {
			return err
		}
		state = next
	}
	return nil
}

func (c *cascade) step(ctx context.Context, state cascadeState) (cascadeState, error) {
	switch state {
	case stateTryCode:
		return c.tryCode(ctx)
	case stateTryOriginal:
		return c.tryOriginal(ctx)
	case stateTryTransliteration:
		return c.tryTransliteration(ctx)
	case stateTryTranslation:
		return c.tryTranslation(ctx)
	case stateFallback:
		return c.fallback()
	default:
		return stateDone, nil
	}
}

// tryCode resolves "C105" and bare "105" directly against catalog codes.
func (c *cascade) tryCode(ctx context.Context) (cascadeState, error) {
	var code string
	switch {
	case codePattern.MatchString(c.raw):
		code = strings.ToUpper(c.raw)
	case digitsPattern.MatchString(c.raw):
		code = domain.CodePrefix + c.raw
	default:
		return stateTryOriginal, nil
	}

	c.stage = domain.StageCode
	film, err := c.service.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return stateDone, nil
		}
		return stateDone, fmt.Errorf("find film by code: %w", err)
	}
	c.result = []domain.Candidate{{Film: film, Relevance: ScoreExact}}
	return stateDone, nil
}

func (c *cascade) tryOriginal(ctx context.Context) (cascadeState, error) {
	prepared, err := PrepareQuery(c.raw)
	if err != nil || prepared.Text == "" {
		return stateDone, nil
	}
	items, err := c.service.searchTitles(ctx, c.raw)
	if err != nil {
		return stateDone, err
	}
	c.original = items
	if c.service.isHighRelevance(items) {
		c.accept(domain.StageOriginal, items)
		return stateDone, nil
	}
	return stateTryTransliteration, nil
}

func (c *cascade) tryTransliteration(ctx context.Context) (cascadeState, error) {
	transliterated := Transliterate(c.raw)
	if transliterated == c.raw {
		return stateTryTranslation, nil
	}
	items, err := c.service.searchTitles(ctx, transliterated)
	if err != nil {
		return stateDone, err
	}
	c.debug("transliteration tried", slog.String("variant", transliterated), slog.Int("results", len(items)))
	if c.service.isHighRelevance(items) {
		c.accept(domain.StageTransliteration, items)
		return stateDone, nil
	}
	return stateTryTranslation, nil
}

// tryTranslation accepts the first non-empty result of any translated
// variant regardless of its relevance.
func (c *cascade) tryTranslation(ctx context.Context) (cascadeState, error) {
	translator := c.service.translator
	if translator == nil {
		return stateFallback, nil
	}
	source := DetectLanguage(c.raw)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("search.source_language", string(source)))

	for _, target := range LanguagesToTry(source) {
		translated, ok := translator.Translate(ctx, c.raw, source, target)
		translated = strings.TrimSpace(translated)
		if !ok || translated == "" || sameText(translated, c.raw) {
			continue
		}
		items, err := c.service.searchTitles(ctx, translated)
		if err != nil {
			return stateDone, err
		}
		c.debug("translation tried",
			slog.String("target", string(target)),
			slog.String("variant", translated),
			slog.Int("results", len(items)),
		)
		if len(items) > 0 {
			c.accept(domain.StageTranslation, items)
			return stateDone, nil
		}

		transliterated := Transliterate(translated)
		if transliterated == translated || transliterated == c.raw {
			continue
		}
		items, err = c.service.searchTitles(ctx, transliterated)
		if err != nil {
			return stateDone, err
		}
		if len(items) > 0 {
			c.accept(domain.StageTranslation, items)
			return stateDone, nil
		}
	}
	return stateFallback, nil
}

func (c *cascade) fallback() (cascadeState, error) {
	if len(c.original) > 0 {
		c.accept(domain.StageFallback, c.original)
	}
	return stateDone, nil
}

func (c *cascade) accept(stage domain.SearchStage, items []domain.Candidate) {
	c.stage = stage
	c.result = items
}

func (c *cascade) debug(msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("searchId", c.searchID), slog.String("query", c.raw))
	c.service.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

func sameText(left, right string) bool {
	return foldTitle(left) == foldTitle(right)
}
