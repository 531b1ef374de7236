package openaimt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/translate"
)

const (
	DefaultModel   = "gpt-4o-mini"
	defaultTimeout = 6 * time.Second
)

var languageNames = map[domain.Language]string{
	domain.LanguageUzbek:   "Uzbek (Latin script)",
	domain.LanguageRussian: "Russian",
	domain.LanguageEnglish: "English",
}

type Config struct {
	Name       string
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Provider translates titles through any OpenAI-compatible chat completion
// endpoint.
type Provider struct {
	name    string
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewProvider(cfg Config) *Provider {
	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "openai"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		name:    name,
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Timeout() time.Duration { return p.timeout }

func (p *Provider) Supports(source, target domain.Language) bool {
	_, okSource := languageNames[source]
	_, okTarget := languageNames[target]
	return okSource && okTarget && source != target
}

func (p *Provider) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		MaxTokens:   128,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You translate cartoon and film titles from %s to %s. Answer with the translated title only, without quotes or comments.",
					languageNames[source], languageNames[target],
				),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", translate.ErrEmptyResponse
	}
	translated := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), "\"'«»")
	if translated == "" {
		return "", translate.ErrEmptyResponse
	}
	return translated, nil
}
