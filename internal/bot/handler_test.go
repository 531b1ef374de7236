package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/telegram"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Markup telegram.ReplyMarkup
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	actions []string
	copies  [][3]int64
	answers []string
	edits   []telegram.EditMessageReplyMarkupRequest
	copyErr error
}

func (f *fakeMessenger) SendHTML(_ context.Context, chatID int64, text string, markup telegram.ReplyMarkup) (telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Markup: markup})
	return telegram.Message{MessageID: int64(len(f.sent))}, nil
}

func (f *fakeMessenger) SendChatAction(_ context.Context, _ int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeMessenger) CopyMessage(_ context.Context, chatID, fromChatID, messageID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copies = append(f.copies, [3]int64{chatID, fromChatID, messageID})
	return 1000, nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, _ string, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) EditMessageReplyMarkup(_ context.Context, req telegram.EditMessageReplyMarkupRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	return nil
}

type fakeSearcher struct {
	response domain.SearchResponse
	err      error
	requests []domain.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	f.requests = append(f.requests, request)
	return f.response, f.err
}

type fakeFilmStore struct {
	films     map[string]domain.Film
	stored    []domain.FilmData
	storeErr  error
	downloads map[string]int
}

func newFakeFilmStore(films ...domain.Film) *fakeFilmStore {
	s := &fakeFilmStore{films: make(map[string]domain.Film), downloads: make(map[string]int)}
	for _, f := range films {
		s.films[f.ID] = f
	}
	return s
}

func (s *fakeFilmStore) FindByID(_ context.Context, id string) (domain.Film, error) {
	film, ok := s.films[id]
	if !ok {
		return domain.Film{}, domain.ErrNotFound
	}
	return film, nil
}

func (s *fakeFilmStore) Store(_ context.Context, data domain.FilmData) (domain.Film, error) {
	if s.storeErr != nil {
		return domain.Film{}, s.storeErr
	}
	s.stored = append(s.stored, data)
	return domain.Film{ID: "new", Code: "C1", Title: data.Title}, nil
}

func (s *fakeFilmStore) IncrementDownloads(_ context.Context, id string) error {
	s.downloads[id]++
	return nil
}

type fakeSink struct {
	messages []string
}

func (f *fakeSink) Notify(_ context.Context, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

func candidates(films ...domain.Film) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(films))
	for _, f := range films {
		out = append(out, domain.Candidate{Film: f, Relevance: 300})
	}
	return out
}

func textUpdate(chatID int64, text string) telegram.Update {
	return telegram.Update{UpdateID: 1, Message: &telegram.Message{MessageID: 5, Chat: telegram.Chat{ID: chatID}, Text: text}}
}

func TestStartSendsWelcomeWithKeyboard(t *testing.T) {
	messenger := &fakeMessenger{}
	b := New(messenger, &fakeSearcher{}, newFakeFilmStore())

	b.HandleUpdate(context.Background(), textUpdate(7, "/start"))

	if len(messenger.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(messenger.sent))
	}
	keyboard, ok := messenger.sent[0].Markup.(*telegram.ReplyKeyboardMarkup)
	if !ok || keyboard.Keyboard[0][0].Text != SearchButtonText {
		t.Fatalf("expected search button keyboard, got %#v", messenger.sent[0].Markup)
	}
}

func TestSearchButtonSendsInstruction(t *testing.T) {
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{}
	b := New(messenger, searcher, newFakeFilmStore())

	b.HandleUpdate(context.Background(), textUpdate(7, SearchButtonText))

	if len(searcher.requests) != 0 {
		t.Fatal("button text must not be searched")
	}
	if len(messenger.sent) != 1 || !strings.Contains(messenger.sent[0].Text, "Kung Fu Panda") {
		t.Fatalf("expected instruction, got %+v", messenger.sent)
	}
}

func TestShortQueryIsRejected(t *testing.T) {
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{}
	b := New(messenger, searcher, newFakeFilmStore())

	b.HandleUpdate(context.Background(), textUpdate(7, "я"))

	if len(searcher.requests) != 0 {
		t.Fatal("short query must not be searched")
	}
	if len(messenger.sent) != 1 || messenger.sent[0].Text != shortQueryText {
		t.Fatalf("expected validation message, got %+v", messenger.sent)
	}
}

func TestSingleResultIsSentDirectly(t *testing.T) {
	film := domain.Film{ID: "f1", Code: "C105", Title: "Kung Fu Panda", ChatID: -100, MessageID: 42}
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{response: domain.SearchResponse{Items: candidates(film)}}
	store := newFakeFilmStore(film)
	b := New(messenger, searcher, store, WithSendDelay(0))

	b.HandleUpdate(context.Background(), textUpdate(7, "C105"))

	if len(searcher.requests) != 1 || searcher.requests[0].RequesterID != 7 {
		t.Fatalf("expected search with requester, got %+v", searcher.requests)
	}
	if len(messenger.copies) != 1 || messenger.copies[0] != [3]int64{7, -100, 42} {
		t.Fatalf("expected stored post to be copied, got %+v", messenger.copies)
	}
	if !strings.Contains(messenger.sent[0].Text, "Kung Fu Panda") {
		t.Fatalf("expected details card first, got %q", messenger.sent[0].Text)
	}
	if store.downloads["f1"] != 1 {
		t.Fatalf("expected download counted, got %d", store.downloads["f1"])
	}
	if len(messenger.actions) != 2 || messenger.actions[0] != telegram.ActionTyping || messenger.actions[1] != telegram.ActionUploadVideo {
		t.Fatalf("unexpected chat actions: %v", messenger.actions)
	}
}

func TestMultipleResultsSendList(t *testing.T) {
	films := testFilms(6)
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{response: domain.SearchResponse{Items: candidates(films...)}}
	b := New(messenger, searcher, newFakeFilmStore(films...))

	b.HandleUpdate(context.Background(), textUpdate(7, "film"))

	if len(messenger.copies) != 0 {
		t.Fatal("list answer must not copy any film")
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("expected a single list message, got %d", len(messenger.sent))
	}
	keyboard, ok := messenger.sent[0].Markup.(*telegram.InlineKeyboardMarkup)
	if !ok || len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("expected two keyboard rows, got %#v", messenger.sent[0].Markup)
	}
}

func TestNoResultsSendsNotFound(t *testing.T) {
	messenger := &fakeMessenger{}
	b := New(messenger, &fakeSearcher{}, newFakeFilmStore())

	b.HandleUpdate(context.Background(), textUpdate(7, "qwzx"))

	if len(messenger.sent) != 1 || !strings.Contains(messenger.sent[0].Text, "topilmadi") {
		t.Fatalf("expected not found message, got %+v", messenger.sent)
	}
}

func TestSearchErrorSendsGenericError(t *testing.T) {
	messenger := &fakeMessenger{}
	b := New(messenger, &fakeSearcher{err: errors.New("mongo down")}, newFakeFilmStore())

	b.HandleUpdate(context.Background(), textUpdate(7, "Shrek"))

	if len(messenger.sent) != 1 || messenger.sent[0].Text != genericErrorText {
		t.Fatalf("expected generic error, got %+v", messenger.sent)
	}
}

func TestThrottledMessageIsDropped(t *testing.T) {
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{}
	b := New(messenger, searcher, newFakeFilmStore(), WithThrottle(&countingThrottle{allow: false}))

	b.HandleUpdate(context.Background(), textUpdate(7, "Shrek"))

	if len(searcher.requests) != 0 || len(messenger.sent) != 0 {
		t.Fatal("throttled message must be ignored")
	}
}

func TestCallbackSendsFilmAndMarksButton(t *testing.T) {
	films := testFilms(3)
	films[1].ChatID, films[1].MessageID = -100, 9
	messenger := &fakeMessenger{}
	store := newFakeFilmStore(films...)
	b := New(messenger, &fakeSearcher{}, store, WithSendDelay(0))

	b.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb1",
		Data: "film_id-2",
		Message: &telegram.Message{
			MessageID:   55,
			Chat:        telegram.Chat{ID: 7},
			ReplyMarkup: filmListKeyboard(films),
		},
	}})

	if len(messenger.answers) != 1 || !strings.Contains(messenger.answers[0], "Film 2 yuklanmoqda") {
		t.Fatalf("expected loading answer, got %v", messenger.answers)
	}
	if len(messenger.edits) != 1 || messenger.edits[0].MessageID != 55 {
		t.Fatalf("expected markup edit, got %+v", messenger.edits)
	}
	if messenger.edits[0].ReplyMarkup.InlineKeyboard[0][1].Text != "✅ 2" {
		t.Fatalf("expected second button ticked, got %+v", messenger.edits[0].ReplyMarkup)
	}
	if len(messenger.copies) != 1 || messenger.copies[0] != [3]int64{7, -100, 9} {
		t.Fatalf("expected film copied, got %+v", messenger.copies)
	}
	if store.downloads["id-2"] != 1 {
		t.Fatal("expected download counted")
	}
}

func TestCallbackUnknownFilm(t *testing.T) {
	messenger := &fakeMessenger{}
	b := New(messenger, &fakeSearcher{}, newFakeFilmStore())

	b.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		Data:    "film_missing",
		Message: &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: 7}},
	}})

	if len(messenger.answers) != 1 || messenger.answers[0] != filmNotFoundText {
		t.Fatalf("expected not found answer, got %v", messenger.answers)
	}
	if len(messenger.copies) != 0 {
		t.Fatal("nothing should be copied")
	}
}

func TestChannelPostIsStored(t *testing.T) {
	store := newFakeFilmStore()
	sink := &fakeSink{}
	b := New(&fakeMessenger{}, &fakeSearcher{}, store, WithStorageChannel(-100), WithAlerts(sink))

	b.HandleUpdate(context.Background(), telegram.Update{ChannelPost: &telegram.Message{
		MessageID: 12,
		Chat:      telegram.Chat{ID: -100},
		Caption:   "#Kung_Fu_Panda_(2008)\nJanr: Komediya",
		Video:     &telegram.FileRef{FileID: "vid"},
	}})

	if len(store.stored) != 1 {
		t.Fatalf("expected one stored film, got %d", len(store.stored))
	}
	data := store.stored[0]
	if data.Title != "Kung Fu Panda" || data.MessageID != 12 || data.ChatID != -100 || data.FileID != "vid" {
		t.Fatalf("unexpected film data: %+v", data)
	}
	if len(sink.messages) != 0 {
		t.Fatalf("expected no alerts, got %v", sink.messages)
	}
}

func TestChannelPostFromOtherChannelIsSkipped(t *testing.T) {
	store := newFakeFilmStore()
	b := New(&fakeMessenger{}, &fakeSearcher{}, store, WithStorageChannel(-100))

	b.HandleUpdate(context.Background(), telegram.Update{ChannelPost: &telegram.Message{
		MessageID: 12,
		Chat:      telegram.Chat{ID: -200},
		Text:      "#Cars",
	}})

	if len(store.stored) != 0 {
		t.Fatal("post from another channel must be skipped")
	}
}

func TestChannelPostWithoutTitleRaisesAlert(t *testing.T) {
	store := newFakeFilmStore()
	sink := &fakeSink{}
	b := New(&fakeMessenger{}, &fakeSearcher{}, store, WithStorageChannel(-100), WithAlerts(sink))

	b.HandleUpdate(context.Background(), telegram.Update{ChannelPost: &telegram.Message{
		MessageID: 13,
		Chat:      telegram.Chat{ID: -100},
		Caption:   "🔥🔥\nHD",
	}})

	if len(store.stored) != 0 {
		t.Fatal("untitled post must not be stored")
	}
	if len(sink.messages) != 1 || !strings.Contains(sink.messages[0], "Film nomini olish xatolik") {
		t.Fatalf("expected caption alert, got %v", sink.messages)
	}
}

func TestChannelPostStoreFailureRaisesAlert(t *testing.T) {
	store := newFakeFilmStore()
	store.storeErr = errors.New("duplicate code")
	sink := &fakeSink{}
	b := New(&fakeMessenger{}, &fakeSearcher{}, store, WithStorageChannel(-100), WithAlerts(sink))

	b.HandleUpdate(context.Background(), telegram.Update{ChannelPost: &telegram.Message{
		MessageID: 14,
		Chat:      telegram.Chat{ID: -100},
		Text:      "#Cars",
	}})

	if len(sink.messages) != 1 || !strings.Contains(sink.messages[0], "duplicate code") {
		t.Fatalf("expected store alert, got %v", sink.messages)
	}
}

type panickingSearcher struct{}

func (panickingSearcher) Search(context.Context, domain.SearchRequest) (domain.SearchResponse, error) {
	panic("boom")
}

func TestHandleUpdateRecoversPanic(t *testing.T) {
	b := New(&fakeMessenger{}, panickingSearcher{}, newFakeFilmStore(), WithUpdateTimeout(time.Second))
	b.HandleUpdate(context.Background(), textUpdate(7, "Shrek"))
}
