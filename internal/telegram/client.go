package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"multfilm/searchbot/internal/metrics"
)

const (
	DefaultBaseURL  = "https://api.telegram.org"
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 4096
	maxResponseBody = 8 << 20
)

var ErrMissingToken = errors.New("telegram bot token is required")

// APIError is a Bot API response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type Client struct {
	baseURL string
	hc      *http.Client
	retry   RetryConfig
	logger  *slog.Logger
}

type ClientOption func(*Client)

// WithBaseURL points the client at a Bot API server other than the public one.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if v := strings.TrimRight(strings.TrimSpace(baseURL), "/"); v != "" {
			c.baseURL = v
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func WithRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(token string, opts ...ClientOption) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		hc:      &http.Client{Timeout: defaultTimeout},
		retry:   DefaultRetryConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = c.baseURL + "/bot" + token
	return c, nil
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (Message, error) {
	var sent Message
	err := c.call(ctx, "sendMessage", req, &sent)
	return sent, err
}

// SendHTML sends text with HTML parse mode.
func (c *Client) SendHTML(ctx context.Context, chatID int64, text string, markup ReplyMarkup) (Message, error) {
	return c.SendMessage(ctx, SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   ParseModeHTML,
		ReplyMarkup: markup,
	})
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return c.call(ctx, "sendChatAction", map[string]any{"chat_id": chatID, "action": action}, nil)
}

// CopyMessage copies a stored post into chatID and returns the new message id.
func (c *Client) CopyMessage(ctx context.Context, chatID, fromChatID, messageID int64) (int64, error) {
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	err := c.call(ctx, "copyMessage", map[string]any{
		"chat_id":      chatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}, &result)
	return result.MessageID, err
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	if showAlert {
		payload["show_alert"] = true
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

func (c *Client) EditMessageReplyMarkup(ctx context.Context, req EditMessageReplyMarkupRequest) error {
	return c.call(ctx, "editMessageReplyMarkup", req, nil)
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]any{
		"url":             url,
		"allowed_updates": AllowedUpdates,
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": dropPending}, nil)
}

func (c *Client) GetWebhookInfo(ctx context.Context) (WebhookInfo, error) {
	var info WebhookInfo
	err := c.call(ctx, "getWebhookInfo", map[string]any{}, &info)
	return info, err
}

// GetUpdates long-polls for updates. It is not retried; the poller owns
// its own backoff.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.do(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": AllowedUpdates,
	}, &updates)
	return updates, err
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	return RetryWithBackoff(ctx, c.retry, func() error {
		return c.do(ctx, method, payload, out)
	})
}

func (c *Client) do(ctx context.Context, method string, payload, out any) error {
	err := c.post(ctx, method, payload, out)
	status := "ok"
	if err != nil {
		status = "error"
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = fmt.Sprintf("%d", apiErr.Code)
		}
	}
	metrics.TelegramRequestsTotal.WithLabelValues(method, status).Inc()
	return err
}

func (c *Client) post(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s encode: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}
	var wrapper struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
		Parameters  *struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Method: method, Code: resp.StatusCode, Description: snippet(raw)}
		}
		return fmt.Errorf("telegram %s decode: %w", method, err)
	}
	if !wrapper.OK {
		apiErr := &APIError{Method: method, Code: wrapper.ErrorCode, Description: wrapper.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if wrapper.Parameters != nil && wrapper.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(wrapper.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil || len(wrapper.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(wrapper.Result, out); err != nil {
		return fmt.Errorf("telegram %s result: %w", method, err)
	}
	return nil
}

func snippet(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return strings.TrimSpace(string(raw))
}
