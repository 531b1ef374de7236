// Package alert delivers operator notifications, such as storage channel
// posts that could not be ingested, to admin Telegram chats.
package alert

import (
	"context"
	"errors"
	"log/slog"

	"multfilm/searchbot/internal/telegram"
)

// Sink receives operator alerts.
type Sink interface {
	Notify(ctx context.Context, message string) error
}

type Sender interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (telegram.Message, error)
}

// TelegramSink sends every alert as plain text to each admin chat and
// logs it as well.
type TelegramSink struct {
	sender  Sender
	chatIDs []int64
	logger  *slog.Logger
}

func NewTelegramSink(sender Sender, chatIDs []int64, logger *slog.Logger) *TelegramSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramSink{sender: sender, chatIDs: chatIDs, logger: logger}
}

func (s *TelegramSink) Notify(ctx context.Context, message string) error {
	s.logger.Warn("operator alert", slog.String("message", message))
	if s.sender == nil {
		return nil
	}
	var errs []error
	for _, chatID := range s.chatIDs {
		if _, err := s.sender.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: message}); err != nil {
			s.logger.Error("alert delivery failed",
				slog.Int64("chatId", chatID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink only logs; it is used when no admin chats are configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(_ context.Context, message string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("operator alert", slog.String("message", message))
	return nil
}
