// Package tracker implements the persisted "have I seen this before" state
// for the three pipeline stages. Each tracker is loaded once at process
// start, mutated in memory during the run, and flushed at explicit
// checkpoints. State files are single human-inspectable JSON documents; a
// missing or corrupt file degrades to empty state and never aborts the run.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// loadState fills v from the JSON document at path. A missing file is not an
// error; it simply leaves v untouched.
func loadState(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read state file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse state file %s: %w", path, err)
	}
	return nil
}

// saveState writes v as indented JSON via a temp file + rename so a crash
// mid-write cannot leave a truncated document behind.
func saveState(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file %s: %w", path, err)
	}
	return nil
}
