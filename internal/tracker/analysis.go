package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/model"
	"github.com/initial69/Automatic-Pipeline/internal/normalize"
)

type analyzedRecord struct {
	Timestamp      time.Time       `json:"timestamp"`
	AnalysisResult *model.Analysis `json:"analysis_result,omitempty"`
}

type analysisState struct {
	Analyzed    map[string]analyzedRecord `json:"analyzed"`
	LastUpdated time.Time                 `json:"last_updated"`
}

// AnalysisTracker records which signals have already been sent to scoring.
// Entries never expire: scoring is costly and rate-limited, so an item
// analyzed once is never re-sent.
type AnalysisTracker struct {
	path   string
	state  analysisState
	logger zerolog.Logger
}

func NewAnalysisTracker(path string, logger zerolog.Logger) *AnalysisTracker {
	t := &AnalysisTracker{
		path:   path,
		logger: logger,
	}
	if err := loadState(path, &t.state); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("analysis tracker state unreadable, starting empty")
		t.state = analysisState{}
	}
	if t.state.Analyzed == nil {
		t.state.Analyzed = map[string]analyzedRecord{}
	}
	return t
}

func (t *AnalysisTracker) IsAlreadyAnalyzed(s model.Signal) bool {
	_, ok := t.state.Analyzed[normalize.CompositeKey(s.Source, s.Link, s.Title)]
	return ok
}

// MarkAsAnalyzed upserts the signal's composite key. Result may be nil when
// marking ahead of the scoring call.
func (t *AnalysisTracker) MarkAsAnalyzed(s model.Signal, result *model.Analysis) {
	now := globaltime.UTC()
	t.state.Analyzed[normalize.CompositeKey(s.Source, s.Link, s.Title)] = analyzedRecord{
		Timestamp:      now,
		AnalysisResult: result,
	}
	t.state.LastUpdated = now
}

// FilterNewSignals partitions a batch into not-yet-analyzed and
// already-analyzed signals, marking as it goes so same-batch duplicates are
// caught (first occurrence wins).
func (t *AnalysisTracker) FilterNewSignals(signals []model.Signal) (newSignals, skipped []model.Signal) {
	for _, s := range signals {
		if t.IsAlreadyAnalyzed(s) {
			skipped = append(skipped, s)
			continue
		}
		t.MarkAsAnalyzed(s, nil)
		newSignals = append(newSignals, s)
	}
	return newSignals, skipped
}

func (t *AnalysisTracker) Save() error {
	return saveState(t.path, &t.state)
}
