package alert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"multfilm/searchbot/internal/telegram"
)

type fakeSender struct {
	sent    []telegram.SendMessageRequest
	failFor map[int64]error
}

func (f *fakeSender) SendMessage(_ context.Context, req telegram.SendMessageRequest) (telegram.Message, error) {
	f.sent = append(f.sent, req)
	if err := f.failFor[req.ChatID]; err != nil {
		return telegram.Message{}, err
	}
	return telegram.Message{MessageID: int64(len(f.sent))}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTelegramSinkSendsToEveryAdmin(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, []int64{10, -20}, quietLogger())

	if err := sink.Notify(context.Background(), "caption without title"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 2 || sender.sent[0].ChatID != 10 || sender.sent[1].ChatID != -20 {
		t.Fatalf("unexpected deliveries %+v", sender.sent)
	}
	for _, req := range sender.sent {
		if req.Text != "caption without title" || req.ParseMode != "" {
			t.Fatalf("alert must be sent as plain text, got %+v", req)
		}
	}
}

func TestTelegramSinkJoinsDeliveryErrors(t *testing.T) {
	blocked := errors.New("bot was blocked by the user")
	missing := errors.New("chat not found")
	sender := &fakeSender{failFor: map[int64]error{1: blocked, 3: missing}}
	sink := NewTelegramSink(sender, []int64{1, 2, 3}, quietLogger())

	err := sink.Notify(context.Background(), "store failed")
	if !errors.Is(err, blocked) || !errors.Is(err, missing) {
		t.Fatalf("expected both delivery errors, got %v", err)
	}
	if len(sender.sent) != 3 {
		t.Fatalf("a failed chat must not stop delivery to the others, got %d sends", len(sender.sent))
	}
}

func TestTelegramSinkWithoutSenderOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTelegramSink(nil, []int64{1}, slog.New(slog.NewTextHandler(&buf, nil)))
	if err := sink.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.Contains(buf.String(), "operator alert") {
		t.Fatalf("expected alert to be logged, got %q", buf.String())
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	if err := (LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}).Notify(context.Background(), "parse failed"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.Contains(buf.String(), "parse failed") {
		t.Fatalf("expected message in log, got %q", buf.String())
	}
}
