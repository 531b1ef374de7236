package libretranslate

import (
	"context"
	"errors"
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
	APIKey    string
	UserAgent string
	Client    *http.Client
	Timeout   time.Duration
}

// Provider calls a LibreTranslate instance. Public Argos models do not
// include Uzbek.
type Provider struct {
	name      string
	endpoint  string
	apiKey    string
	userAgent string
	client    *http.Client
	timeout   time.Duration
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func NewProvider(cfg Config) *Provider {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = common.ProviderName("libretranslate", endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		name:      name,
		endpoint:  endpoint,
		apiKey:    strings.TrimSpace(cfg.APIKey),
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
		Q:      text,
		Source: string(source),
		Target: string(target),
		Format: "text",
		APIKey: p.apiKey,
	}, p.userAgent)
	if err != nil {
		return "", err
	}
	var payload translateResponse
	if err := common.DoJSON(p.client, req, "libretranslate", &payload); err != nil {
		return "", err
	}
	if payload.Error != "" {
		return "", errors.New("libretranslate: " + payload.Error)
	}
	if strings.TrimSpace(payload.TranslatedText) == "" {
		return "", translate.ErrEmptyResponse
	}
	return payload.TranslatedText, nil
}
