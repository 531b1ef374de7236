package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultUserAgent = "multfilm-searchbot/1.0"
	maxErrorBody     = 1024
	maxResponseBody  = 256 * 1024
)

// HTTPClient returns client, or a plain client with a conservative timeout
// when none was configured.
func HTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func UserAgent(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return DefaultUserAgent
}

// NewJSONRequest builds a POST request with payload encoded as JSON.
func NewJSONRequest(ctx context.Context, endpoint string, payload any, userAgent string) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent(userAgent))
	return req, nil
}

func NewGetRequest(ctx context.Context, endpoint string, params url.Values, userAgent string) (*http.Request, error) {
	target := endpoint
	if len(params) > 0 {
		separator := "?"
		if strings.Contains(endpoint, "?") {
			separator = "&"
		}
		target = endpoint + separator + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent(userAgent))
	return req, nil
}

// DoJSON executes req and decodes a 200 response body into out. Other
// statuses become errors carrying the start of the body.
func DoJSON(client *http.Client, req *http.Request, label string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s HTTP %d: %s", label, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s decode: %w", label, err)
	}
	return nil
}

// ProviderName derives a stable provider name such as "deeplx:api.deeplx.org"
// from an endpoint URL.
func ProviderName(kind, endpoint string) string {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || parsed.Host == "" {
		return kind
	}
	return kind + ":" + strings.ToLower(parsed.Host)
}
