// Package publisher delivers formatted analyses to a Telegram chat. The
// orchestrator only learns success or failure; everything retriable is
// handled here.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	sendAttempts   = 3
	sendBaseDelay  = time.Second
	maxRetryAfter  = 2 * time.Minute
	messagesPerSec = 1
)

// botAPI is the slice of tgbotapi.BotAPI the publisher uses. Narrowed to an
// interface so tests can fake the wire.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages to one chat with legacy Markdown formatting,
// falling back to plain text when Telegram rejects the markup.
type Telegram struct {
	bot     botAPI
	chatID  int64
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewTelegram(token string, chatID int64, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegram(bot, chatID, logger), nil
}

func newTelegram(bot botAPI, chatID int64, logger zerolog.Logger) *Telegram {
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSec), 1),
		logger:  logger,
	}
}

// Send delivers one message. Rate-limit responses honor the server's
// retry-after; transient errors back off exponentially; a markup rejection
// retries once without formatting. A nil return means Telegram accepted the
// message.
func (t *Telegram) Send(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(t.chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if isMarkupRejection(err) && msg.ParseMode != "" {
			t.logger.Warn().Err(err).Msg("markdown rejected, retrying as plain text")
			msg.ParseMode = ""
			msg.Text = stripMarkdown(message)
			continue
		}

		delay := retryDelay(err, attempt)
		if delay < 0 {
			return fmt.Errorf("telegram send failed: %w", err)
		}
		t.logger.Warn().Err(err).Dur("backoff", delay).Msg("telegram send retry")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", sendAttempts, lastErr)
}

// retryDelay returns how long to wait before the next attempt, or a negative
// value when the error is permanent.
func retryDelay(err error, attempt int) time.Duration {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
			if retryAfter <= 0 {
				retryAfter = sendBaseDelay
			}
			if retryAfter > maxRetryAfter {
				retryAfter = maxRetryAfter
			}
			return retryAfter
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return -1
		}
	}
	return sendBaseDelay << attempt
}

func isMarkupRejection(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Message), "parse entities")
}

// stripMarkdown removes the formatting characters from the fallback text so
// escaped markup does not leak to readers verbatim.
func stripMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"\\*", "", "*", "",
		"\\_", "", "_", "",
		"\\[", "[",
		"\\`", "", "`", "",
	)
	return replacer.Replace(text)
}
