package app

import (
	"path/filepath"
	"testing"
)

func TestRun_UnknownCommand(t *testing.T) {
	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected exit code 2 for unknown command, got %d", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit code 2 for missing command, got %d", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected exit code 0 for help, got %d", code)
	}
}

func TestCheckStateDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	if err := checkStateDir(dir); err != nil {
		t.Fatalf("expected fresh dir created and writable: %v", err)
	}
	if err := checkStateDir(dir); err != nil {
		t.Fatalf("expected existing dir accepted: %v", err)
	}
}

func TestNewStatePaths(t *testing.T) {
	t.Parallel()

	paths := newStatePaths("/var/lib/pipeline")
	if paths.Collection != filepath.Join("/var/lib/pipeline", "collection_tracker.json") {
		t.Fatalf("unexpected collection path: %s", paths.Collection)
	}
	if paths.Report != filepath.Join("/var/lib/pipeline", "last_run_report.json") {
		t.Fatalf("unexpected report path: %s", paths.Report)
	}
}
