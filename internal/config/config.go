package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	StateDir string `envconfig:"STATE_DIR" default:"./state"`

	GitHubToken      string `envconfig:"GITHUB_TOKEN" default:""`
	GitHubRepos      string `envconfig:"GITHUB_REPOS" default:""`
	RSSFeeds         string `envconfig:"RSS_FEEDS" default:""`
	TelegramChannels string `envconfig:"TELEGRAM_CHANNELS" default:""`

	AnthropicAPIKeys string `envconfig:"ANTHROPIC_API_KEYS" default:""`
	AnthropicModel   string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" default:"0"`

	ContentSimilarityThreshold float64 `envconfig:"CONTENT_SIMILARITY_THRESHOLD" default:"0.8"`
	TitleSimilarityThreshold   float64 `envconfig:"TITLE_SIMILARITY_THRESHOLD" default:"0.9"`
	MaxPerSourcePerHour        int     `envconfig:"MAX_PER_SOURCE_PER_HOUR" default:"3"`
	MaxSignalsPerRun           int     `envconfig:"MAX_SIGNALS_PER_RUN" default:"50"`
	MinPublishScore            int     `envconfig:"MIN_PUBLISH_SCORE" default:"60"`
	DedupStrategy              string  `envconfig:"DEDUP_STRATEGY" default:"positional"`

	CronSchedule string        `envconfig:"CRON_SCHEDULE" default:"*/30 * * * *"`
	RunTimeout   time.Duration `envconfig:"RUN_TIMEOUT" default:"10m"`
	StatusAddr   string        `envconfig:"STATUS_ADDR" default:":8085"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.StateDir) == "" {
		return fmt.Errorf("STATE_DIR is required")
	}
	if c.ContentSimilarityThreshold <= 0 || c.ContentSimilarityThreshold > 1 {
		return fmt.Errorf("CONTENT_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.TitleSimilarityThreshold <= 0 || c.TitleSimilarityThreshold > 1 {
		return fmt.Errorf("TITLE_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.MaxPerSourcePerHour < 1 {
		return fmt.Errorf("MAX_PER_SOURCE_PER_HOUR must be >= 1")
	}
	if c.MaxSignalsPerRun < 1 {
		return fmt.Errorf("MAX_SIGNALS_PER_RUN must be >= 1")
	}
	if c.MinPublishScore < 1 || c.MinPublishScore > 100 {
		return fmt.Errorf("MIN_PUBLISH_SCORE must be in [1, 100]")
	}
	switch strings.ToLower(strings.TrimSpace(c.DedupStrategy)) {
	case "positional", "simhash":
	default:
		return fmt.Errorf("DEDUP_STRATEGY must be one of: positional, simhash")
	}
	if c.RunTimeout < time.Minute {
		return fmt.Errorf("RUN_TIMEOUT must be >= 1m")
	}
	return nil
}

// GitHubRepoList returns the configured owner/repo pairs.
func (c *Config) GitHubRepoList() []string {
	return splitCommaList(c.GitHubRepos)
}

func (c *Config) RSSFeedList() []string {
	return splitCommaList(c.RSSFeeds)
}

func (c *Config) TelegramChannelList() []string {
	return splitCommaList(c.TelegramChannels)
}

func (c *Config) AnthropicKeyList() []string {
	return splitCommaList(c.AnthropicAPIKeys)
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
