package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/initial69/Automatic-Pipeline/internal/cli"
	"github.com/initial69/Automatic-Pipeline/internal/config"
	"github.com/initial69/Automatic-Pipeline/internal/pipeline"
)

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	asJSON := fs.Bool("json", false, "Print the raw report JSON")

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

	report, err := pipeline.LoadReport(newStatePaths(cfg.StateDir).Report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load run report: %v\n", err)
		return 1
	}
	if report == nil {
		fmt.Println("no completed run yet")
		return 0
	}

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("last run: %s -> %s\n", report.StartedAt.Format("2006-01-02 15:04:05"), report.FinishedAt.Format("15:04:05"))
	fmt.Printf(
		"collected=%d new=%d scored=%d approved=%d duplicates=%d published=%d\n",
		report.Collected,
		report.NewSignals,
		report.Scored,
		report.Approved,
		report.Duplicates,
		report.Published,
	)
	for source, count := range report.SourceCounts {
		fmt.Printf("  source %s: %d\n", source, count)
	}
	for _, failure := range report.SendFailures {
		fmt.Printf("  send failure: %s (%s)\n", failure.Title, failure.Error)
	}
	for _, msg := range report.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	return 0
}
