package googlegtx

import (
	"context"
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
	DefaultEndpoint = "https://translate.googleapis.com/translate_a/single"
	defaultTimeout  = 5 * time.Second
)

type Config struct {
	Name      string
	Endpoint  string
	UserAgent string
	Client    *http.Client
	Timeout   time.Duration
}

// Provider uses the keyless "gtx" web endpoint of Google Translate. The
// answer is a nested array whose first element lists translated segments.
type Provider struct {
	name      string
	endpoint  string
	userAgent string
	client    *http.Client
	timeout   time.Duration
}

func NewProvider(cfg Config) *Provider {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "google"
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
	return source != target
}

func (p *Provider) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	params := url.Values{
		"client": {"gtx"},
		"dt":     {"t"},
		"sl":     {string(source)},
		"tl":     {string(target)},
		"q":      {text},
	}
	req, err := common.NewGetRequest(ctx, p.endpoint, params, p.userAgent)
	if err != nil {
		return "", err
	}
	var payload []any
	if err := common.DoJSON(p.client, req, "google", &payload); err != nil {
		return "", err
	}
	return parseSegments(payload)
}

func parseSegments(payload []any) (string, error) {
	if len(payload) == 0 {
		return "", translate.ErrEmptyResponse
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("google: unexpected payload shape %T", payload[0])
	}
	var builder strings.Builder
	for _, raw := range segments {
		segment, ok := raw.([]any)
		if !ok || len(segment) == 0 {
			continue
		}
		if part, ok := segment[0].(string); ok {
			builder.WriteString(part)
		}
	}
	translated := strings.TrimSpace(builder.String())
	if translated == "" {
		return "", translate.ErrEmptyResponse
	}
	return translated, nil
}
