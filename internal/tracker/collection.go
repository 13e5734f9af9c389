package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/model"
	"github.com/initial69/Automatic-Pipeline/internal/normalize"
)

const (
	// Global-scope entries older than this are pruned on every mark.
	collectionRetention = 30 * 24 * time.Hour
	// Global-scope hits only count as duplicates within this window; older
	// entries are treated as stale rather than pruned.
	collectionFreshWindow = 7 * 24 * time.Hour
)

type collectionScope struct {
	Collected map[string]time.Time `json:"collected"`
}

type collectionState struct {
	Global      collectionScope `json:"global"`
	Today       collectionScope `json:"today"`
	TodayDate   string          `json:"today_date,omitempty"`
	LastUpdated time.Time       `json:"last_updated"`
}

// CollectionTracker records which signals have already been ingested. It
// indexes every signal under the full identity key set (normalize.IdentityKeys)
// in two scopes: "today", reset at local-date rollover, and a rolling global
// window.
type CollectionTracker struct {
	path   string
	state  collectionState
	logger zerolog.Logger
}

// NewCollectionTracker loads tracker state from path, substituting empty
// state (with a warning) when the file is missing or unparsable. The today
// scope is cleared when the recorded date is not the current local date.
func NewCollectionTracker(path string, logger zerolog.Logger) *CollectionTracker {
	t := &CollectionTracker{
		path:   path,
		logger: logger,
	}
	if err := loadState(path, &t.state); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("collection tracker state unreadable, starting empty")
		t.state = collectionState{}
	}
	if t.state.Global.Collected == nil {
		t.state.Global.Collected = map[string]time.Time{}
	}
	if t.state.Today.Collected == nil {
		t.state.Today.Collected = map[string]time.Time{}
	}

	today := globaltime.LocalDate()
	if t.state.TodayDate != today {
		t.state.Today.Collected = map[string]time.Time{}
		t.state.TodayDate = today
	}
	return t
}

// IsAlreadyCollected reports whether any identity key of the signal exists in
// the today scope, or in the global scope with age within the fresh window.
func (t *CollectionTracker) IsAlreadyCollected(s model.Signal) bool {
	now := globaltime.UTC()
	for _, key := range normalize.IdentityKeys(s.Source, s.Link, s.Title) {
		if _, ok := t.state.Today.Collected[key]; ok {
			return true
		}
		if ts, ok := t.state.Global.Collected[key]; ok {
			if now.Sub(ts) <= collectionFreshWindow {
				return true
			}
		}
	}
	return false
}

// MarkAsCollected writes every identity key into both scopes with the current
// timestamp and prunes global entries past the retention window. Marking an
// already-marked key overwrites its timestamp; the maps cannot grow duplicate
// entries.
func (t *CollectionTracker) MarkAsCollected(s model.Signal) {
	now := globaltime.UTC()
	for _, key := range normalize.IdentityKeys(s.Source, s.Link, s.Title) {
		t.state.Today.Collected[key] = now
		t.state.Global.Collected[key] = now
	}
	t.pruneGlobal(now)
	t.state.LastUpdated = now
}

func (t *CollectionTracker) pruneGlobal(now time.Time) {
	for key, ts := range t.state.Global.Collected {
		if now.Sub(ts) > collectionRetention {
			delete(t.state.Global.Collected, key)
		}
	}
}

// FilterNewSignals partitions a batch into unseen and already-collected
// signals in one left-to-right pass. Each new signal is marked before the
// next is checked, so duplicates within the same batch are caught too: the
// first occurrence wins.
func (t *CollectionTracker) FilterNewSignals(signals []model.Signal) (newSignals, skipped []model.Signal) {
	for _, s := range signals {
		if t.IsAlreadyCollected(s) {
			skipped = append(skipped, s)
			continue
		}
		t.MarkAsCollected(s)
		newSignals = append(newSignals, s)
	}
	return newSignals, skipped
}

// Save flushes in-memory state to disk. Callers must flush before process
// exit or mutations since the last save are lost (worst case: re-collecting,
// never re-publishing).
func (t *CollectionTracker) Save() error {
	return saveState(t.path, &t.state)
}

// GlobalSize reports how many keys the global scope currently holds.
func (t *CollectionTracker) GlobalSize() int {
	return len(t.state.Global.Collected)
}
