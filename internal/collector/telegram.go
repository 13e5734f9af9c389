package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

const (
	telegramPreviewURL  = "https://t.me/s/%s"
	messagesPerChannel  = 10
	telegramTitleLength = 120
)

// Telegram collects recent posts from public channels via the t.me/s
// preview pages. No bot membership or API credentials are required; the
// preview only exists for public channels.
type Telegram struct {
	client   *http.Client
	channels []string
	logger   zerolog.Logger
}

func NewTelegram(channels []string, logger zerolog.Logger) *Telegram {
	return &Telegram{
		client:   newHTTPClient(),
		channels: channels,
		logger:   logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Collect(ctx context.Context) ([]model.Signal, error) {
	var signals []model.Signal
	var failures []string

	for _, channel := range t.channels {
		batch, err := t.fetchChannel(ctx, channel)
		if err != nil {
			t.logger.Warn().Err(err).Str("channel", channel).Msg("failed to scrape channel")
			failures = append(failures, channel)
			continue
		}
		signals = append(signals, batch...)
	}

	if len(signals) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all %d channels failed (first: %s)", len(failures), failures[0])
	}
	return signals, nil
}

func (t *Telegram) fetchChannel(ctx context.Context, channel string) ([]model.Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(telegramPreviewURL, channel), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "signal-pipeline/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel preview returned %d", resp.StatusCode)
	}
	return parseChannelPreview(channel, resp.Body)
}

// parseChannelPreview extracts the visible messages from one t.me/s page.
// Posts without text (media-only) are skipped.
func parseChannelPreview(channel string, r io.Reader) ([]model.Signal, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse channel html: %w", err)
	}

	var signals []model.Signal
	doc.Find(".tgme_widget_message").Each(func(_ int, sel *goquery.Selection) {
		text := collapseWhitespace(sel.Find(".tgme_widget_message_text").Text())
		if text == "" {
			return
		}

		sig := model.Signal{
			Source:  channel,
			Title:   truncate(text, telegramTitleLength),
			Content: truncate(text, maxContentLength),
			Channel: model.ChannelTelegram,
		}
		if post, ok := sel.Attr("data-post"); ok && post != "" {
			sig.Link = "https://t.me/" + post
		}
		if datetime, ok := sel.Find(".tgme_widget_message_date time").Attr("datetime"); ok {
			if ts, err := time.Parse(time.RFC3339, datetime); err == nil {
				sig.Time = ts
			}
		}
		signals = append(signals, sig)
	})

	// Preview pages list oldest first; keep the newest tail.
	if len(signals) > messagesPerChannel {
		signals = signals[len(signals)-messagesPerChannel:]
	}
	return signals, nil
}
