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
	"github.com/initial69/Automatic-Pipeline/internal/pipeline"
)

func runOnce(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Run timeout (0 uses RUN_TIMEOUT)")

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

	runTimeout := cfg.RunTimeout
	if *timeout > 0 {
		runTimeout = *timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	svc := pipeline.NewService(cfg, deps, logger)
	report, err := svc.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		return 1
	}

	fmt.Printf(
		"run collected=%d new=%d scored=%d published=%d duplicates=%d send_failures=%d\n",
		report.Collected,
		report.NewSignals,
		report.Scored,
		report.Published,
		report.Duplicates,
		len(report.SendFailures),
	)
	return 0
}
