package tracker

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/fingerprint"
	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/model"
	"github.com/initial69/Automatic-Pipeline/internal/normalize"
)

const (
	// StatusProcessed is the anti-race holding state entered immediately
	// before a send attempt.
	StatusProcessed = "processed"
	// StatusPublished is entered only after the send reports success.
	StatusPublished = "published"

	sourceRecordWindow   = 24 * time.Hour
	sourceThrottleWindow = time.Hour
)

// Dedup reasons surfaced by CheckDeduplication.
const (
	ReasonURLProcessed     = "url_already_processed"
	ReasonAlreadyPublished = "already_published"
	ReasonExactContent     = "exact_content_match"
	ReasonSimilarContent   = "similar_content"
	ReasonExactTitle       = "exact_title_match"
	ReasonSimilarTitle     = "similar_title"
	ReasonSourceFrequency  = "source_frequency_exceeded"
)

// PublishedRecord is one entry in the published index.
type PublishedRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Status    string    `json:"status"`
}

// HashRecord is one entry in the content/title hash indexes.
type HashRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
}

type dedupState struct {
	Published     map[string]PublishedRecord `json:"published"`
	ContentHashes map[string]HashRecord      `json:"content_hashes"`
	TitleHashes   map[string]HashRecord      `json:"title_hashes"`
	SourceHashes  map[string][]time.Time     `json:"source_hashes"`
	LastUpdated   time.Time                  `json:"last_updated"`
}

// SimilarityResult reports one content/title similarity check.
type SimilarityResult struct {
	IsDuplicate bool
	Similarity  float64
	Reason      string
	Original    *HashRecord
}

// FrequencyResult reports a source throttle check.
type FrequencyResult struct {
	IsDuplicate bool
	Count       int
}

// DedupResult aggregates a full CheckDeduplication pass.
type DedupResult struct {
	IsDuplicate bool
	Reasons     []string
	Details     map[string]any
}

// DedupOptions carries the per-call-site thresholds and caps.
type DedupOptions struct {
	ContentThreshold    float64
	TitleThreshold      float64
	MaxPerSourcePerHour int
	MaxSignalsPerRun    int
	MinScore            int
}

// DedupTracker guards the publish stage: it knows what has already been
// processed or published, and holds the hash indexes for approximate
// similarity plus per-source rate counters.
type DedupTracker struct {
	path     string
	state    dedupState
	strategy fingerprint.Strategy
	logger   zerolog.Logger
}

func NewDedupTracker(path string, strategy fingerprint.Strategy, logger zerolog.Logger) *DedupTracker {
	t := &DedupTracker{
		path:     path,
		strategy: strategy,
		logger:   logger,
	}
	if err := loadState(path, &t.state); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("dedup tracker state unreadable, starting empty")
		t.state = dedupState{}
	}
	if t.state.Published == nil {
		t.state.Published = map[string]PublishedRecord{}
	}
	if t.state.ContentHashes == nil {
		t.state.ContentHashes = map[string]HashRecord{}
	}
	if t.state.TitleHashes == nil {
		t.state.TitleHashes = map[string]HashRecord{}
	}
	if t.state.SourceHashes == nil {
		t.state.SourceHashes = map[string][]time.Time{}
	}
	return t
}

// CheckURLAlreadyProcessed scans the link field of every published and
// content-hash record for the cleaned URL. This is the strongest guard and
// must run first in any combined check: it is the only cross-run check
// anchored to a stable external identifier.
//
// The match is substring containment, not equality, so one cleaned URL that
// is a prefix of another (x.com/1 vs x.com/12) also matches. That
// over-suppression is intentional and preserved as-is.
func (t *DedupTracker) CheckURLAlreadyProcessed(rawURL string) bool {
	clean := normalize.CleanURL(rawURL)
	if clean == "" {
		return false
	}

	for _, rec := range t.state.Published {
		if rec.Link != "" && strings.Contains(normalize.CleanURL(rec.Link), clean) {
			return true
		}
	}
	for _, rec := range t.state.ContentHashes {
		if rec.Link != "" && strings.Contains(normalize.CleanURL(rec.Link), clean) {
			return true
		}
	}
	return false
}

// CheckAlreadyPublished is an exact composite-key presence check.
func (t *DedupTracker) CheckAlreadyPublished(a model.Analysis) bool {
	_, ok := t.state.Published[t.compositeKey(a)]
	return ok
}

// CheckContentSimilarity compares content against the content hash index:
// exact fingerprint match scores 1.0; otherwise a linear scan in map
// iteration order returns the first hit at or above the threshold.
func (t *DedupTracker) CheckContentSimilarity(content string, threshold float64) SimilarityResult {
	return t.checkSimilarity(t.state.ContentHashes, content, threshold, ReasonExactContent, ReasonSimilarContent)
}

// CheckTitleSimilarity is the title-index counterpart of
// CheckContentSimilarity.
func (t *DedupTracker) CheckTitleSimilarity(title string, threshold float64) SimilarityResult {
	return t.checkSimilarity(t.state.TitleHashes, title, threshold, ReasonExactTitle, ReasonSimilarTitle)
}

func (t *DedupTracker) checkSimilarity(index map[string]HashRecord, text string, threshold float64, exactReason, similarReason string) SimilarityResult {
	if strings.TrimSpace(text) == "" {
		return SimilarityResult{}
	}

	hash := t.strategy.Fingerprint(text)
	if rec, ok := index[hash]; ok {
		original := rec
		return SimilarityResult{
			IsDuplicate: true,
			Similarity:  1.0,
			Reason:      exactReason,
			Original:    &original,
		}
	}

	for existing, rec := range index {
		score := t.strategy.Similarity(hash, existing)
		if score >= threshold {
			original := rec
			return SimilarityResult{
				IsDuplicate: true,
				Similarity:  score,
				Reason:      similarReason,
				Original:    &original,
			}
		}
	}
	return SimilarityResult{}
}

// CheckSourceFrequency counts sends for the source within the trailing hour.
// This throttles a source regardless of content distinctness: it is an
// editorial cap, not a correctness dedup.
func (t *DedupTracker) CheckSourceFrequency(source string, maxPerHour int) FrequencyResult {
	if maxPerHour <= 0 {
		return FrequencyResult{}
	}

	cutoff := globaltime.UTC().Add(-sourceThrottleWindow)
	count := 0
	for _, ts := range t.state.SourceHashes[strings.ToLower(strings.TrimSpace(source))] {
		if ts.After(cutoff) {
			count++
		}
	}
	return FrequencyResult{
		IsDuplicate: count >= maxPerHour,
		Count:       count,
	}
}

// CheckDeduplication runs the full check sequence. The URL-processed and
// already-published checks are hard stops that return immediately; the
// content, title and frequency checks are soft signals that are all
// evaluated and accumulated so diagnostics can show every reason at once.
func (t *DedupTracker) CheckDeduplication(a model.Analysis, opts DedupOptions) DedupResult {
	details := map[string]any{}

	link := a.Link
	if link == "" {
		link = a.EvidenceLink()
	}
	if t.CheckURLAlreadyProcessed(link) {
		return DedupResult{
			IsDuplicate: true,
			Reasons:     []string{ReasonURLProcessed},
			Details:     map[string]any{"url": link},
		}
	}

	if t.CheckAlreadyPublished(a) {
		return DedupResult{
			IsDuplicate: true,
			Reasons:     []string{ReasonAlreadyPublished},
			Details:     map[string]any{"composite_key": t.compositeKey(a)},
		}
	}

	var reasons []string

	if content := t.CheckContentSimilarity(a.Content, opts.ContentThreshold); content.IsDuplicate {
		reasons = append(reasons, content.Reason)
		details["content_similarity"] = content.Similarity
		if content.Original != nil {
			details["content_original"] = content.Original.Title
		}
	}

	if title := t.CheckTitleSimilarity(a.Title, opts.TitleThreshold); title.IsDuplicate {
		reasons = append(reasons, title.Reason)
		details["title_similarity"] = title.Similarity
		if title.Original != nil {
			details["title_original"] = title.Original.Title
		}
	}

	if freq := t.CheckSourceFrequency(a.Source, opts.MaxPerSourcePerHour); freq.IsDuplicate {
		reasons = append(reasons, ReasonSourceFrequency)
		details["source_count_last_hour"] = freq.Count
	}

	return DedupResult{
		IsDuplicate: len(reasons) > 0,
		Reasons:     reasons,
		Details:     details,
	}
}

// MarkAsProcessed records the holding state before any send attempt, closing
// the window where a slow publish call could let a retried pass re-select
// the same signal. If the send later fails the record stays at processed:
// failed sends are surfaced for manual follow-up, never requeued.
func (t *DedupTracker) MarkAsProcessed(a model.Analysis) {
	now := globaltime.UTC()
	key := t.compositeKey(a)
	t.state.Published[key] = PublishedRecord{
		Timestamp: now,
		Source:    a.Source,
		Title:     a.Title,
		Link:      a.Link,
		Status:    StatusProcessed,
	}
	if strings.TrimSpace(a.Content) != "" {
		t.state.ContentHashes[t.strategy.Fingerprint(a.Content)] = HashRecord{
			Timestamp: now,
			Source:    a.Source,
			Title:     a.Title,
			Link:      a.Link,
		}
	}
	t.state.LastUpdated = now
}

// MarkAsPublished upgrades the record to published and updates every index:
// content and title hashes plus the source timestamp list, which is pruned
// to the trailing 24 hours on each write.
func (t *DedupTracker) MarkAsPublished(a model.Analysis) {
	now := globaltime.UTC()
	key := t.compositeKey(a)
	t.state.Published[key] = PublishedRecord{
		Timestamp: now,
		Source:    a.Source,
		Title:     a.Title,
		Link:      a.Link,
		Status:    StatusPublished,
	}

	if strings.TrimSpace(a.Content) != "" {
		t.state.ContentHashes[t.strategy.Fingerprint(a.Content)] = HashRecord{
			Timestamp: now,
			Source:    a.Source,
			Title:     a.Title,
			Link:      a.Link,
		}
	}
	if strings.TrimSpace(a.Title) != "" {
		t.state.TitleHashes[t.strategy.Fingerprint(a.Title)] = HashRecord{
			Timestamp: now,
			Source:    a.Source,
			Title:     a.Title,
			Link:      a.Link,
		}
	}

	sourceKey := strings.ToLower(strings.TrimSpace(a.Source))
	cutoff := now.Add(-sourceRecordWindow)
	kept := make([]time.Time, 0, len(t.state.SourceHashes[sourceKey])+1)
	for _, ts := range t.state.SourceHashes[sourceKey] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	t.state.SourceHashes[sourceKey] = append(kept, now)
	t.state.LastUpdated = now
}

// FilterSignalsForPublishing evaluates analyses in order without marking
// anything, partitioning them into approved, duplicates and skipped
// (below-score) sets. Evaluation stops outright once the approval cap is
// reached; later items are never classified at all.
func (t *DedupTracker) FilterSignalsForPublishing(analyses []model.Analysis, opts DedupOptions) (approved, duplicates, skipped []model.Analysis) {
	for _, a := range analyses {
		if opts.MaxSignalsPerRun > 0 && len(approved) >= opts.MaxSignalsPerRun {
			break
		}

		if opts.MinScore > 0 && a.Score < opts.MinScore {
			skipped = append(skipped, a)
			continue
		}

		result := t.CheckDeduplication(a, opts)
		if result.IsDuplicate {
			t.logger.Debug().
				Str("title", a.Title).
				Strs("reasons", result.Reasons).
				Msg("analysis dropped as duplicate")
			duplicates = append(duplicates, a)
			continue
		}
		approved = append(approved, a)
	}
	return approved, duplicates, skipped
}

// SetSourceTimestamps replaces the recorded send times for a source. Used by
// tests to fabricate aged entries.
func (t *DedupTracker) SetSourceTimestamps(source string, timestamps []time.Time) {
	t.state.SourceHashes[strings.ToLower(strings.TrimSpace(source))] = timestamps
}

func (t *DedupTracker) Save() error {
	return saveState(t.path, &t.state)
}

func (t *DedupTracker) compositeKey(a model.Analysis) string {
	return normalize.CompositeKey(a.Source, a.Link, a.Title)
}
