package publisher

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	errs []error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	pub := newTelegram(bot, 42, zerolog.Nop())

	if err := pub.Send(context.Background(), "*hello*"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(bot.sent))
	}
	if bot.sent[0].ParseMode != tgbotapi.ModeMarkdown {
		t.Fatalf("expected markdown parse mode, got %q", bot.sent[0].ParseMode)
	}
	if bot.sent[0].ChatID != 42 {
		t.Fatalf("unexpected chat id: %d", bot.sent[0].ChatID)
	}
}

func TestSend_MarkupRejectionFallsBackToPlainText(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{errs: []error{
		&tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"},
	}}
	pub := newTelegram(bot, 42, zerolog.Nop())

	if err := pub.Send(context.Background(), "broken \\*markup\\*"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("expected fallback send, got %d", len(bot.sent))
	}
	got := bot.sent[0]
	if got.ParseMode != "" {
		t.Fatalf("expected plain text fallback, got parse mode %q", got.ParseMode)
	}
	if got.Text != "broken markup" {
		t.Fatalf("expected markdown stripped, got %q", got.Text)
	}
}

func TestSend_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{errs: []error{
		&tgbotapi.Error{Code: 502, Message: "Bad Gateway"},
		nil,
	}}
	pub := newTelegram(bot, 42, zerolog.Nop())

	if err := pub.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("expected exactly one accepted send, got %d", len(bot.sent))
	}
}

func TestSend_PermanentClientErrorFailsFast(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{errs: []error{
		&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked"},
		&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked"},
		&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked"},
	}}
	pub := newTelegram(bot, 42, zerolog.Nop())

	if err := pub.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected permanent error surfaced")
	}
	if len(bot.sent) != 0 {
		t.Fatalf("expected no accepted sends, got %d", len(bot.sent))
	}
}

func TestRetryDelay_HonorsRetryAfter(t *testing.T) {
	t.Parallel()

	err := &tgbotapi.Error{
		Code:               429,
		Message:            "Too Many Requests",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7},
	}
	if got := retryDelay(err, 0); got.Seconds() != 7 {
		t.Fatalf("expected server retry-after honored, got %v", got)
	}
}
