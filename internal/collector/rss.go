package collector

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

const itemsPerFeed = 10

// RSS collects recent items from the configured feed URLs.
type RSS struct {
	parser *gofeed.Parser
	feeds  []string
	logger zerolog.Logger
}

func NewRSS(feeds []string, logger zerolog.Logger) *RSS {
	parser := gofeed.NewParser()
	parser.Client = newHTTPClient()
	parser.UserAgent = "signal-pipeline/1.0"

	return &RSS{
		parser: parser,
		feeds:  feeds,
		logger: logger,
	}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Collect(ctx context.Context) ([]model.Signal, error) {
	var signals []model.Signal
	var failures []string

	for _, feedURL := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.logger.Warn().Err(err).Str("feed", feedURL).Msg("failed to fetch feed")
			failures = append(failures, feedURL)
			continue
		}
		signals = append(signals, feedSignals(feed)...)
	}

	if len(signals) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all %d feeds failed (first: %s)", len(failures), failures[0])
	}
	return signals, nil
}

func feedSignals(feed *gofeed.Feed) []model.Signal {
	source := feed.Title
	if source == "" {
		source = feed.Link
	}

	items := feed.Items
	if len(items) > itemsPerFeed {
		items = items[:itemsPerFeed]
	}

	signals := make([]model.Signal, 0, len(items))
	for _, item := range items {
		signals = append(signals, itemSignal(source, item))
	}
	return signals
}

func itemSignal(source string, item *gofeed.Item) model.Signal {
	content := item.Content
	if content == "" {
		content = item.Description
	}

	sig := model.Signal{
		Source:  source,
		Title:   collapseWhitespace(item.Title),
		Link:    item.Link,
		Content: truncate(stripHTML(content), maxContentLength),
		Channel: model.ChannelRSS,
	}
	if len(item.Categories) > 0 {
		sig.Category = item.Categories[0]
	}
	if item.PublishedParsed != nil {
		sig.Time = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		sig.Time = *item.UpdatedParsed
	}
	return sig
}
