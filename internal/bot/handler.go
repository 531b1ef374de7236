// Package bot turns Telegram updates into catalog searches and film
// deliveries, and ingests new films posted to the storage channel.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"multfilm/searchbot/internal/alert"
	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/metrics"
	"multfilm/searchbot/internal/telegram"
)

const (
	minQueryLength       = 2
	defaultSendDelay     = time.Second
	defaultUpdateTimeout = 60 * time.Second
)

// Messenger is the part of the Bot API the bot talks to.
type Messenger interface {
	SendHTML(ctx context.Context, chatID int64, text string, markup telegram.ReplyMarkup) (telegram.Message, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	CopyMessage(ctx context.Context, chatID, fromChatID, messageID int64) (int64, error)
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	EditMessageReplyMarkup(ctx context.Context, req telegram.EditMessageReplyMarkupRequest) error
}

type Searcher interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
}

type FilmStore interface {
	FindByID(ctx context.Context, id string) (domain.Film, error)
	Store(ctx context.Context, data domain.FilmData) (domain.Film, error)
	IncrementDownloads(ctx context.Context, id string) error
}

type Bot struct {
	messenger        Messenger
	searcher         Searcher
	films            FilmStore
	alerts           alert.Sink
	throttle         Throttle
	storageChannelID int64
	logger           *slog.Logger
	sendDelay        time.Duration
	updateTimeout    time.Duration
}

type Option func(*Bot)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithAlerts(sink alert.Sink) Option {
	return func(b *Bot) {
		if sink != nil {
			b.alerts = sink
		}
	}
}

func WithThrottle(throttle Throttle) Option {
	return func(b *Bot) {
		b.throttle = throttle
	}
}

// WithStorageChannel sets the channel whose posts are ingested as films.
func WithStorageChannel(chatID int64) Option {
	return func(b *Bot) {
		b.storageChannelID = chatID
	}
}

// WithSendDelay sets the pause between the details message and the video.
func WithSendDelay(delay time.Duration) Option {
	return func(b *Bot) {
		if delay >= 0 {
			b.sendDelay = delay
		}
	}
}

func WithUpdateTimeout(timeout time.Duration) Option {
	return func(b *Bot) {
		if timeout > 0 {
			b.updateTimeout = timeout
		}
	}
}

func New(messenger Messenger, searcher Searcher, films FilmStore, opts ...Option) *Bot {
	b := &Bot{
		messenger:     messenger,
		searcher:      searcher,
		films:         films,
		logger:        slog.Default(),
		sendDelay:     defaultSendDelay,
		updateTimeout: defaultUpdateTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.alerts == nil {
		b.alerts = alert.LogSink{Logger: b.logger}
	}
	return b
}

// HandleUpdate processes one update to completion. It survives the caller
// going away so a webhook retry does not redo half-sent work.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.updateTimeout)
	defer cancel()

	defer func() {
		if recovered := recover(); recovered != nil {
			metrics.BotUpdatesTotal.WithLabelValues("panic").Inc()
			b.logger.Error("update handler panic recovered",
				slog.Int64("updateId", update.UpdateID),
				slog.Any("error", recovered),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	switch {
	case update.ChannelPost != nil:
		metrics.BotUpdatesTotal.WithLabelValues("channel_post").Inc()
		b.handleChannelPost(ctx, update.ChannelPost)
	case update.Message != nil:
		metrics.BotUpdatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		metrics.BotUpdatesTotal.WithLabelValues("callback_query").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	default:
		metrics.BotUpdatesTotal.WithLabelValues("ignored").Inc()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if b.throttle != nil && !b.throttle.Allow(ctx, chatID) {
		metrics.BotThrottledTotal.Inc()
		b.logger.Debug("message throttled", slog.Int64("chatId", chatID))
		return
	}

	var err error
	switch {
	case text == CommandStart || strings.HasPrefix(text, CommandStart+" "):
		_, err = b.messenger.SendHTML(ctx, chatID, welcomeText, mainKeyboard())
	case text == SearchButtonText:
		_, err = b.messenger.SendHTML(ctx, chatID, searchInstructionText, nil)
	default:
		err = b.handleSearch(ctx, chatID, text)
	}
	if err != nil {
		b.logger.Error("user message handling failed",
			slog.Int64("chatId", chatID),
			slog.String("error", err.Error()),
		)
		if _, sendErr := b.messenger.SendHTML(ctx, chatID, genericErrorText, nil); sendErr != nil {
			b.logger.Debug("error reply failed", slog.String("error", sendErr.Error()))
		}
	}
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, query string) error {
	if utf8.RuneCountInString(query) < minQueryLength {
		_, err := b.messenger.SendHTML(ctx, chatID, shortQueryText, nil)
		return err
	}
	b.chatAction(ctx, chatID, telegram.ActionTyping)

	response, err := b.searcher.Search(ctx, domain.SearchRequest{Query: query, RequesterID: chatID})
	if err != nil {
		return err
	}
	films := make([]domain.Film, 0, len(response.Items))
	for _, item := range response.Items {
		films = append(films, item.Film)
	}
	b.logger.Info("search answered",
		slog.String("searchId", response.SearchID),
		slog.Int64("chatId", chatID),
		slog.String("stage", string(response.Stage)),
		slog.Int("results", len(films)),
	)

	switch len(films) {
	case 0:
		_, err = b.messenger.SendHTML(ctx, chatID, notFoundText(query), nil)
		return err
	case 1:
		return b.sendFilm(ctx, chatID, films[0])
	default:
		_, err = b.messenger.SendHTML(ctx, chatID, filmListText(query, films), filmListKeyboard(films))
		return err
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *telegram.CallbackQuery) {
	if query.Message == nil || !strings.HasPrefix(query.Data, FilmCallbackPrefix) {
		b.answerCallback(ctx, query.ID, "", false)
		return
	}
	chatID := query.Message.Chat.ID
	filmID := strings.TrimPrefix(query.Data, FilmCallbackPrefix)

	film, err := b.films.FindByID(ctx, filmID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.answerCallback(ctx, query.ID, filmNotFoundText, true)
			return
		}
		b.logger.Error("callback film lookup failed",
			slog.String("filmId", filmID),
			slog.String("error", err.Error()),
		)
		b.answerCallback(ctx, query.ID, genericErrorText, true)
		return
	}

	b.answerCallback(ctx, query.ID, loadingText(film), false)
	if markup, ok := markSelected(query.Message.ReplyMarkup, query.Data); ok {
		err := b.messenger.EditMessageReplyMarkup(ctx, telegram.EditMessageReplyMarkupRequest{
			ChatID:      chatID,
			MessageID:   query.Message.MessageID,
			ReplyMarkup: markup,
		})
		if err != nil {
			b.logger.Debug("button update failed", slog.String("error", err.Error()))
		}
	}
	if err := b.sendFilm(ctx, chatID, film); err != nil {
		b.logger.Error("callback film delivery failed",
			slog.String("filmId", film.ID),
			slog.Int64("chatId", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// sendFilm sends the details card, then copies the stored video post.
func (b *Bot) sendFilm(ctx context.Context, chatID int64, film domain.Film) error {
	if _, err := b.messenger.SendHTML(ctx, chatID, filmDetailsText(film), nil); err != nil {
		return err
	}
	b.chatAction(ctx, chatID, telegram.ActionUploadVideo)

	if b.sendDelay > 0 {
		timer := time.NewTimer(b.sendDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if _, err := b.messenger.CopyMessage(ctx, chatID, film.ChatID, film.MessageID); err != nil {
		return err
	}
	if err := b.films.IncrementDownloads(ctx, film.ID); err != nil {
		b.logger.Warn("download counter update failed",
			slog.String("filmId", film.ID),
			slog.String("error", err.Error()),
		)
	}
	b.logger.Info("film sent",
		slog.String("filmId", film.ID),
		slog.String("code", film.Code),
		slog.Int64("chatId", chatID),
	)
	return nil
}

// handleChannelPost stores films posted to the storage channel. Posts it
// cannot read are reported to the operators.
func (b *Bot) handleChannelPost(ctx context.Context, post *telegram.Message) {
	if b.storageChannelID == 0 || post.Chat.ID != b.storageChannelID {
		b.logger.Debug("post from other channel skipped", slog.Int64("chatId", post.Chat.ID))
		return
	}
	content := post.Content()
	if strings.TrimSpace(content) == "" {
		b.logger.Warn("channel post has no caption or text", slog.Int64("messageId", post.MessageID))
		return
	}

	caption := ParseCaption(content)
	if caption.Title == "" {
		b.notify(ctx, captionAlertText(content))
		return
	}
	film, err := b.films.Store(ctx, domain.FilmData{
		Title:     caption.Title,
		Details:   caption.Details,
		ChatID:    post.Chat.ID,
		MessageID: post.MessageID,
		FileID:    post.FileID(),
	})
	if err != nil {
		b.logger.Error("channel post store failed",
			slog.Int64("messageId", post.MessageID),
			slog.String("error", err.Error()),
		)
		b.notify(ctx, storeAlertText(err))
		return
	}
	b.logger.Info("film stored",
		slog.String("filmId", film.ID),
		slog.String("code", film.Code),
		slog.String("title", film.Title),
	)
}

func (b *Bot) chatAction(ctx context.Context, chatID int64, action string) {
	if err := b.messenger.SendChatAction(ctx, chatID, action); err != nil {
		b.logger.Debug("chat action failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}

func (b *Bot) answerCallback(ctx context.Context, id, text string, showAlert bool) {
	if err := b.messenger.AnswerCallbackQuery(ctx, id, text, showAlert); err != nil {
		b.logger.Debug("callback answer failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) notify(ctx context.Context, message string) {
	if err := b.alerts.Notify(ctx, message); err != nil {
		b.logger.Debug("alert failed", slog.String("error", err.Error()))
	}
}
