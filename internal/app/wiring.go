package app

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/collector"
	"github.com/initial69/Automatic-Pipeline/internal/config"
	"github.com/initial69/Automatic-Pipeline/internal/fingerprint"
	"github.com/initial69/Automatic-Pipeline/internal/pipeline"
	"github.com/initial69/Automatic-Pipeline/internal/publisher"
	"github.com/initial69/Automatic-Pipeline/internal/scorer"
	"github.com/initial69/Automatic-Pipeline/internal/tracker"
)

type statePaths struct {
	Collection string
	Analysis   string
	Dedup      string
	BatchDir   string
	Report     string
}

func newStatePaths(stateDir string) statePaths {
	return statePaths{
		Collection: filepath.Join(stateDir, "collection_tracker.json"),
		Analysis:   filepath.Join(stateDir, "analysis_tracker.json"),
		Dedup:      filepath.Join(stateDir, "dedup_tracker.json"),
		BatchDir:   filepath.Join(stateDir, "signals"),
		Report:     filepath.Join(stateDir, "last_run_report.json"),
	}
}

// buildDeps wires trackers and collaborators from the configuration. Scorer
// and publisher stay nil when their credentials are absent; the run command
// treats that as a hard error, collect does not need them at all.
func buildDeps(cfg *config.Config, logger zerolog.Logger) (pipeline.Deps, error) {
	paths := newStatePaths(cfg.StateDir)

	strategy, err := fingerprint.New(cfg.DedupStrategy)
	if err != nil {
		return pipeline.Deps{}, err
	}

	deps := pipeline.Deps{
		Collectors: buildCollectors(cfg, logger),
		Collection: tracker.NewCollectionTracker(paths.Collection, logger),
		Analysis:   tracker.NewAnalysisTracker(paths.Analysis, logger),
		Dedup:      tracker.NewDedupTracker(paths.Dedup, strategy, logger),
		Batch:      tracker.NewDailyBatch(paths.BatchDir, logger),
		ReportPath: paths.Report,
	}

	if keys := cfg.AnthropicKeyList(); len(keys) > 0 {
		sc, err := scorer.NewAnthropic(keys, cfg.AnthropicModel, logger)
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("build scorer: %w", err)
		}
		deps.Scorer = sc
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		pub, err := publisher.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("build publisher: %w", err)
		}
		deps.Publisher = pub
	}

	return deps, nil
}

func buildCollectors(cfg *config.Config, logger zerolog.Logger) []pipeline.Collector {
	var collectors []pipeline.Collector
	if repos := cfg.GitHubRepoList(); len(repos) > 0 {
		collectors = append(collectors, collector.NewGitHub(cfg.GitHubToken, repos, logger))
	}
	if feeds := cfg.RSSFeedList(); len(feeds) > 0 {
		collectors = append(collectors, collector.NewRSS(feeds, logger))
	}
	if channels := cfg.TelegramChannelList(); len(channels) > 0 {
		collectors = append(collectors, collector.NewTelegram(channels, logger))
	}
	return collectors
}
