package tracker

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

func TestAnalysisTracker_FilterNewSignals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis_tracker.json")
	tr := NewAnalysisTracker(path, zerolog.Nop())

	s := testSignal("A", "http://x.com/1", "Foo Launch")

	newSignals, skipped := tr.FilterNewSignals([]model.Signal{s, s})
	if len(newSignals) != 1 || len(skipped) != 1 {
		t.Fatalf("expected first occurrence to win within batch: %d new %d skipped", len(newSignals), len(skipped))
	}

	newSignals, skipped = tr.FilterNewSignals([]model.Signal{s})
	if len(newSignals) != 0 || len(skipped) != 1 {
		t.Fatalf("expected re-filter to skip: %d new %d skipped", len(newSignals), len(skipped))
	}
}

func TestAnalysisTracker_NoExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis_tracker.json")
	tr := NewAnalysisTracker(path, zerolog.Nop())

	s := testSignal("A", "http://x.com/1", "Foo Launch")
	result := &model.Analysis{ProjectName: "Foo", Score: 70}
	tr.MarkAsAnalyzed(s, result)
	if err := tr.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Analysis identity never ages out; a reload still knows the item.
	reloaded := NewAnalysisTracker(path, zerolog.Nop())
	if !reloaded.IsAlreadyAnalyzed(s) {
		t.Fatalf("expected analyzed record to survive reload without expiry")
	}
}

func TestAnalysisTracker_UpsertIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis_tracker.json")
	tr := NewAnalysisTracker(path, zerolog.Nop())

	s := testSignal("A", "http://x.com/1", "Foo Launch")
	tr.MarkAsAnalyzed(s, nil)
	tr.MarkAsAnalyzed(s, &model.Analysis{ProjectName: "Foo"})
	tr.MarkAsAnalyzed(s, nil)

	if len(tr.state.Analyzed) != 1 {
		t.Fatalf("expected a single record after repeated marks, got %d", len(tr.state.Analyzed))
	}
}
