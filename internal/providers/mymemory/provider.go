package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/providers/common"
	"multfilm/searchbot/internal/translate"
)

const (
	DefaultEndpoint = "https://api.mymemory.translated.net/get"
	defaultTimeout  = 5 * time.Second
	warningPrefix   = "MYMEMORY WARNING"
)

type Config struct {
	Name      string
	Endpoint  string
	Email     string
	UserAgent string
	Client    *http.Client
	Timeout   time.Duration
}

// Provider queries the MyMemory translation memory, which covers all three
// catalog languages.
type Provider struct {
	name      string
	endpoint  string
	email     string
	userAgent string
	client    *http.Client
	timeout   time.Duration
}

type translateResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	// responseStatus arrives either as a number or as a quoted number.
	ResponseStatus  json.Number `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
}

func NewProvider(cfg Config) *Provider {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "mymemory"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		name:      name,
		endpoint:  endpoint,
		email:     strings.TrimSpace(cfg.Email),
		userAgent: cfg.UserAgent,
		client:    common.HTTPClient(cfg.Client),
		timeout:   timeout,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Timeout() time.Duration { return p.timeout }

func (p *Provider) Supports(source, target domain.Language) bool {
	return source != target
}

func (p *Provider) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	params := url.Values{
		"q":        {text},
		"langpair": {string(source) + "|" + string(target)},
	}
	if p.email != "" {
		params.Set("de", p.email)
	}
	req, err := common.NewGetRequest(ctx, p.endpoint, params, p.userAgent)
	if err != nil {
		return "", err
	}
	var payload translateResponse
	if err := common.DoJSON(p.client, req, "mymemory", &payload); err != nil {
		return "", err
	}
	if status := payload.ResponseStatus.String(); status != "" && status != "200" {
		return "", fmt.Errorf("mymemory status %s: %s", status, strings.TrimSpace(payload.ResponseDetails))
	}
	translated := strings.TrimSpace(payload.ResponseData.TranslatedText)
	if strings.HasPrefix(strings.ToUpper(translated), warningPrefix) {
		return "", fmt.Errorf("mymemory quota: %s", translated)
	}
	if translated == "" {
		return "", translate.ErrEmptyResponse
	}
	return translated, nil
}
