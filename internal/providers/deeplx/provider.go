package deeplx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/providers/common"
	"multfilm/searchbot/internal/translate"
)

const defaultTimeout = 4 * time.Second

type Config struct {
	Name      string
	Endpoint  string
	UserAgent string
	Client    *http.Client
	Timeout   time.Duration
}

// Provider talks to a DeepLX mirror. DeepL has no Uzbek model, so pairs
// involving Uzbek are not offered.
type Provider struct {
	name      string
	endpoint  string
	userAgent string
	client    *http.Client
	timeout   time.Duration
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Code int    `json:"code"`
	Data string `json:"data"`
}

func NewProvider(cfg Config) *Provider {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = common.ProviderName("deeplx", endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		name:      name,
		endpoint:  endpoint,
		userAgent: cfg.UserAgent,
		client:    common.HTTPClient(cfg.Client),
		timeout:   timeout,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Timeout() time.Duration { return p.timeout }

func (p *Provider) Supports(source, target domain.Language) bool {
	return p.endpoint != "" && source != domain.LanguageUzbek && target != domain.LanguageUzbek
}

func (p *Provider) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	req, err := common.NewJSONRequest(ctx, p.endpoint, translateRequest{
		Text:       text,
		SourceLang: strings.ToUpper(string(source)),
		TargetLang: strings.ToUpper(string(target)),
	}, p.userAgent)
	if err != nil {
		return "", err
	}
	var payload translateResponse
	if err := common.DoJSON(p.client, req, "deeplx", &payload); err != nil {
		return "", err
	}
	if payload.Code != 0 && payload.Code != http.StatusOK {
		return "", fmt.Errorf("deeplx code %d", payload.Code)
	}
	if strings.TrimSpace(payload.Data) == "" {
		return "", translate.ErrEmptyResponse
	}
	return payload.Data, nil
}
