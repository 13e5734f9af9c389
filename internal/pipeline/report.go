package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
)

// SendFailure records one publish attempt that the collaborator rejected.
// Failed identities stay at processed and are listed here for manual
// follow-up.
type SendFailure struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
	Error string `json:"error"`
}

// Report summarizes one run per stage. It is persisted as JSON for the
// status command and the HTTP status endpoint.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Collected        int            `json:"collected"`
	NewSignals       int            `json:"new_signals"`
	SkippedCollected int            `json:"skipped_collected"`
	ToAnalyze        int            `json:"to_analyze"`
	SkippedAnalyzed  int            `json:"skipped_analyzed"`
	Scored           int            `json:"scored"`
	Approved         int            `json:"approved"`
	Duplicates       int            `json:"duplicates"`
	SkippedLowScore  int            `json:"skipped_low_score"`
	Published        int            `json:"published"`
	SourceCounts     map[string]int `json:"source_counts"`
	SendFailures     []SendFailure  `json:"send_failures,omitempty"`
	Errors           []string       `json:"errors,omitempty"`
}

func newReport() *Report {
	return &Report{
		StartedAt:    globaltime.UTC(),
		SourceCounts: map[string]int{},
	}
}

func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace run report: %w", err)
	}
	return nil
}

// LoadReport reads the last persisted run report. A missing file returns
// (nil, nil) so callers can distinguish "never ran" from a real error.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse run report: %w", err)
	}
	return &r, nil
}
