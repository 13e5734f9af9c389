package tracker

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/model"
	"github.com/initial69/Automatic-Pipeline/internal/normalize"
)

// DailyBatch persists the merged, deduped "signals of the day" as one dated
// JSON file per local date. Runs within the same day append to the file;
// appending the same identity twice keeps the first occurrence.
type DailyBatch struct {
	dir    string
	logger zerolog.Logger
}

func NewDailyBatch(dir string, logger zerolog.Logger) *DailyBatch {
	return &DailyBatch{
		dir:    dir,
		logger: logger,
	}
}

func (b *DailyBatch) pathFor(date string) string {
	return filepath.Join(b.dir, fmt.Sprintf("signals_%s.json", date))
}

// Load returns the signals recorded for the current local date. A missing or
// unreadable file yields an empty batch.
func (b *DailyBatch) Load() []model.Signal {
	path := b.pathFor(globaltime.LocalDate())
	var signals []model.Signal
	if err := loadState(path, &signals); err != nil {
		b.logger.Warn().Err(err).Str("path", path).Msg("daily batch unreadable, starting empty")
		return nil
	}
	return signals
}

// Append merges new signals into today's batch file and returns the merged
// set. Identity is the composite key; earlier entries win.
func (b *DailyBatch) Append(signals []model.Signal) ([]model.Signal, error) {
	merged := b.Load()
	seen := make(map[string]struct{}, len(merged))
	for _, s := range merged {
		seen[normalize.CompositeKey(s.Source, s.Link, s.Title)] = struct{}{}
	}

	for _, s := range signals {
		key := normalize.CompositeKey(s.Source, s.Link, s.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, s)
	}

	path := b.pathFor(globaltime.LocalDate())
	if err := saveState(path, merged); err != nil {
		return merged, fmt.Errorf("persist daily batch: %w", err)
	}
	return merged, nil
}
