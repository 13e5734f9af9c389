package tracker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/model"
)

func testSignal(source, link, title string) model.Signal {
	return model.Signal{
		Source:  source,
		Link:    link,
		Title:   title,
		Time:    globaltime.UTC(),
		Channel: model.ChannelRSS,
	}
}

func newTestCollectionTracker(t *testing.T) *CollectionTracker {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection_tracker.json")
	return NewCollectionTracker(path, zerolog.Nop())
}

func TestFilterNewSignals_IdempotentReingestion(t *testing.T) {
	tr := newTestCollectionTracker(t)
	s := testSignal("A", "http://x.com/1", "Foo Launch")

	newSignals, skipped := tr.FilterNewSignals([]model.Signal{s})
	if len(newSignals) != 1 || len(skipped) != 0 {
		t.Fatalf("first pass: got %d new %d skipped", len(newSignals), len(skipped))
	}

	newSignals, skipped = tr.FilterNewSignals([]model.Signal{s})
	if len(newSignals) != 0 || len(skipped) != 1 {
		t.Fatalf("second pass: got %d new %d skipped", len(newSignals), len(skipped))
	}
}

func TestFilterNewSignals_WithinBatchDuplicates(t *testing.T) {
	tr := newTestCollectionTracker(t)

	batch := []model.Signal{
		testSignal("A", "http://x.com/1?utm_source=foo", "Foo Launch"),
		testSignal("A", "http://x.com/1", "Foo Launch"),
		testSignal("B", "http://y.com/2", "Bar Update"),
	}

	newSignals, skipped := tr.FilterNewSignals(batch)
	if len(newSignals) != 2 {
		t.Fatalf("expected 2 new signals, got %d", len(newSignals))
	}
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped signal, got %d", len(skipped))
	}
	if skipped[0].Link != "http://x.com/1" {
		t.Fatalf("expected the normalized-URL collision to be skipped, got %q", skipped[0].Link)
	}
}

func TestMultiKeyIdentity_TitleAloneDoesNotCollide(t *testing.T) {
	tr := newTestCollectionTracker(t)

	// Identical normalized titles, different sources and links: distinct.
	a := testSignal("A", "http://x.com/1", "Foo Launch")
	b := testSignal("B", "http://y.com/2", "Foo Launch")
	newSignals, _ := tr.FilterNewSignals([]model.Signal{a, b})
	if len(newSignals) != 2 {
		t.Fatalf("expected title-only overlap with distinct links to stay distinct, got %d new", len(newSignals))
	}

	// Same normalized title, both linkless: the title-only key catches it.
	tr2 := newTestCollectionTracker(t)
	c := testSignal("A", "", "Bar Update")
	d := testSignal("B", "", "Bar Update")
	newSignals, skipped := tr2.FilterNewSignals([]model.Signal{c, d})
	if len(newSignals) != 1 || len(skipped) != 1 {
		t.Fatalf("expected linkless title collision: got %d new %d skipped", len(newSignals), len(skipped))
	}
}

func TestRetentionPruneOnMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection_tracker.json")
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	defer globaltime.ResetTime()

	globaltime.SetMockTime(base.Add(-31 * 24 * time.Hour))
	old := NewCollectionTracker(path, zerolog.Nop())
	old.MarkAsCollected(testSignal("A", "http://old.com/1", "Stale Item"))
	staleKeys := old.GlobalSize()
	if staleKeys == 0 {
		t.Fatalf("expected stale entry recorded")
	}
	if err := old.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// 31 days later any mark prunes the stale entries as a side effect.
	globaltime.SetMockTime(base)
	tr := NewCollectionTracker(path, zerolog.Nop())
	tr.MarkAsCollected(testSignal("B", "http://new.com/2", "Fresh Item"))

	if got := tr.GlobalSize(); got >= staleKeys+3 {
		t.Fatalf("expected stale keys pruned on mark, global size %d", got)
	}
	if tr.IsAlreadyCollected(testSignal("A", "http://old.com/1", "Stale Item")) {
		t.Fatalf("expected pruned entry to read as new")
	}
}

func TestGlobalFreshWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection_tracker.json")
	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	defer globaltime.ResetTime()

	globaltime.SetMockTime(base)
	tr := NewCollectionTracker(path, zerolog.Nop())
	tr.MarkAsCollected(testSignal("A", "http://x.com/1", "Foo Launch"))
	if err := tr.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Next local date: today scope no longer applies, but the global entry
	// is fresh (< 7d) so the signal still reads as collected.
	globaltime.SetMockTime(base.Add(48 * time.Hour))
	reloaded := NewCollectionTracker(path, zerolog.Nop())
	if !reloaded.IsAlreadyCollected(testSignal("A", "http://x.com/1", "Foo Launch")) {
		t.Fatalf("expected fresh global entry to count as collected")
	}

	// Past the 7-day fresh window the global entry is stale: not a
	// duplicate, even though it has not been pruned yet.
	globaltime.SetMockTime(base.Add(8 * 24 * time.Hour))
	stale := NewCollectionTracker(path, zerolog.Nop())
	if stale.IsAlreadyCollected(testSignal("A", "http://x.com/1", "Foo Launch")) {
		t.Fatalf("expected stale global entry to read as new")
	}
}

func TestCollectionTracker_CorruptStateStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collection_tracker.json")
	if err := saveState(path, "not an object"); err != nil {
		t.Fatalf("seed corrupt state: %v", err)
	}

	tr := NewCollectionTracker(path, zerolog.Nop())
	if tr.IsAlreadyCollected(testSignal("A", "http://x.com/1", "Foo Launch")) {
		t.Fatalf("expected empty state after corrupt load")
	}
}
