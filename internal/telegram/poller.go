package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultPollTimeout = 30 * time.Second
	pollErrorBackoff   = 2 * time.Second
)

// UpdateHandler processes one update. It is used both by the webhook
// endpoint and by the poller.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update Update)
}

type UpdateSource interface {
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller feeds updates from getUpdates long polling to a handler. It is
// meant for local runs where no public webhook URL exists.
type Poller struct {
	source  UpdateSource
	handler UpdateHandler
	logger  *slog.Logger
	timeout time.Duration
	backoff time.Duration
}

type PollerOption func(*Poller)

func WithPollTimeout(timeout time.Duration) PollerOption {
	return func(p *Poller) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

func WithPollBackoff(backoff time.Duration) PollerOption {
	return func(p *Poller) {
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPoller(source UpdateSource, handler UpdateHandler, opts ...PollerOption) *Poller {
	p := &Poller{
		source:  source,
		handler: handler,
		logger:  slog.Default(),
		timeout: defaultPollTimeout,
		backoff: pollErrorBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run removes any webhook and polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.source.DeleteWebhook(ctx, false); err != nil {
		p.logger.Warn("delete webhook failed", slog.String("error", err.Error()))
	}
	p.logger.Info("telegram polling started")

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			p.logger.Warn("telegram polling failed", slog.String("error", err.Error()))
			if !sleepContext(ctx, p.backoff) {
				return nil
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, update)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
