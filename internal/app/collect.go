package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/initial69/Automatic-Pipeline/internal/cli"
	"github.com/initial69/Automatic-Pipeline/internal/config"
	"github.com/initial69/Automatic-Pipeline/internal/logging"
	"github.com/initial69/Automatic-Pipeline/internal/model"
)

// collect fetches from every configured source and records the new signals,
// skipping scoring and publishing entirely. Useful for seeding the trackers
// before enabling the publisher.
func runCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dryRun := fs.Bool("dry-run", false, "List signals without updating tracker state")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	deps, err := buildDeps(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("wiring failed")
		return 1
	}
	if len(deps.Collectors) == 0 {
		fmt.Fprintln(os.Stderr, "No sources configured: set GITHUB_REPOS, RSS_FEEDS or TELEGRAM_CHANNELS")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	var collected []model.Signal
	for _, c := range deps.Collectors {
		batch, err := c.Collect(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("collector", c.Name()).Msg("collector failed")
			continue
		}
		collected = append(collected, batch...)
	}

	if *dryRun {
		for _, sig := range collected {
			fmt.Printf("[%s/%s] %s\n", sig.Channel, sig.Source, sig.Title)
		}
		fmt.Printf("collect dry-run collected=%d\n", len(collected))
		return 0
	}

	newSignals, skipped := deps.Collection.FilterNewSignals(collected)
	if err := deps.Collection.Save(); err != nil {
		logger.Error().Err(err).Msg("failed to flush collection tracker")
		return 1
	}
	if _, err := deps.Batch.Append(newSignals); err != nil {
		logger.Warn().Err(err).Msg("failed to persist daily batch")
	}

	fmt.Printf(
		"collect collected=%d new=%d skipped=%d tracked_global=%d\n",
		len(collected),
		len(newSignals),
		len(skipped),
		deps.Collection.GlobalSize(),
	)
	return 0
}
