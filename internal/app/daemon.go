package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/initial69/Automatic-Pipeline/internal/cli"
	"github.com/initial69/Automatic-Pipeline/internal/config"
	"github.com/initial69/Automatic-Pipeline/internal/httpapi"
	"github.com/initial69/Automatic-Pipeline/internal/logging"
	"github.com/initial69/Automatic-Pipeline/internal/pipeline"
	"github.com/initial69/Automatic-Pipeline/internal/scheduler"
)

// daemon runs the pipeline on CRON_SCHEDULE and serves the status API until
// SIGINT or SIGTERM.
func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	immediate := fs.Bool("immediate", false, "Run one pass at startup before the first cron tick")

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
	if deps.Scorer == nil || deps.Publisher == nil {
		fmt.Fprintln(os.Stderr, "Daemon mode requires ANTHROPIC_API_KEYS, TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
		return 1
	}

	svc := pipeline.NewService(cfg, deps, logger)
	job := func(ctx context.Context) error {
		_, err := svc.Run(ctx)
		return err
	}

	sched := scheduler.New(cfg.RunTimeout, logger)
	if err := sched.Schedule(cfg.CronSchedule, job); err != nil {
		logger.Error().Err(err).Msg("invalid schedule")
		return 1
	}

	paths := newStatePaths(cfg.StateDir)
	sizes := func() httpapi.StateSizes {
		return httpapi.StateSizes{CollectedGlobal: deps.Collection.GlobalSize()}
	}
	server := httpapi.NewServer(paths.Report, sizes, logger, httpapi.Options{Addr: cfg.StatusAddr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	if *immediate {
		runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
		if err := job(runCtx); err != nil {
			logger.Error().Err(err).Msg("startup run failed")
		}
		cancel()
	}

	logger.Info().
		Str("schedule", cfg.CronSchedule).
		Str("status_addr", cfg.StatusAddr).
		Msg("daemon started")

	sched.Start(ctx)

	if err := <-errCh; err != nil {
		logger.Error().Err(err).Msg("status server failed")
		return 1
	}
	logger.Info().Msg("daemon stopped")
	return 0
}
