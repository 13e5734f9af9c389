package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/initial69/Automatic-Pipeline/internal/cli"
	"github.com/initial69/Automatic-Pipeline/internal/config"
)

// health validates configuration and verifies the state directory is
// writable. It makes no network calls.
func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

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
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	if err := checkStateDir(cfg.StateDir); err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	sources := len(cfg.GitHubRepoList()) + len(cfg.RSSFeedList()) + len(cfg.TelegramChannelList())
	if sources == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no sources configured")
	}
	if len(cfg.AnthropicKeyList()) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: ANTHROPIC_API_KEYS not set, scoring disabled")
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		fmt.Fprintln(os.Stderr, "Warning: Telegram publisher not configured")
	}

	fmt.Printf("ok: state dir writable, %d sources configured\n", sources)
	return 0
}

func checkStateDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	probe := filepath.Join(dir, ".health_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("state dir not writable: %w", err)
	}
	return os.Remove(probe)
}
