// Package app implements the signal-pipeline CLI.
package app

import (
	"fmt"
	"os"
	"strings"
)

func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "run", "run-once":
		return runOnce(args[1:])
	case "collect":
		return runCollect(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	case "status":
		return runStatus(args[1:])
	case "health":
		return runHealth(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "signal-pipeline CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pipeline <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run      Execute one full collect-analyze-publish pass")
	fmt.Fprintln(os.Stderr, "  collect  Fetch signals and update the collection tracker, no scoring")
	fmt.Fprintln(os.Stderr, "  daemon   Run on a cron schedule with the status server")
	fmt.Fprintln(os.Stderr, "  status   Print the last run report")
	fmt.Fprintln(os.Stderr, "  health   Validate configuration and state directory")
	fmt.Fprintln(os.Stderr, "  help     Show this help")
}
