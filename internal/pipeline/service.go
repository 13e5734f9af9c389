// Package pipeline sequences the three trackers across the three stages:
// ingest, analyze, publish. Every stage filter runs before its external
// collaborator and tracker state is flushed after each mark that precedes an
// external side effect, so a crash mid-run can at worst re-collect, never
// re-publish.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/config"
	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/model"
	"github.com/initial69/Automatic-Pipeline/internal/normalize"
	"github.com/initial69/Automatic-Pipeline/internal/tracker"
)

// Collector produces signals from one source. A failing collector
// contributes zero signals; it never aborts the run.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]model.Signal, error)
}

// Scorer turns a batch of signals into analyses. Cardinality is best-effort:
// the scorer may legitimately return fewer or more analyses than signals.
type Scorer interface {
	Score(ctx context.Context, signals []model.Signal) ([]model.Analysis, error)
}

// Publisher delivers one formatted message. A nil error means the message
// was confirmed sent; any error is recorded and the run moves on.
type Publisher interface {
	Send(ctx context.Context, message string) error
}

// Service wires the trackers and collaborators for one run. Trackers are
// injected explicitly rather than reached through package state so the
// check-then-mark sequence stays visible and testable.
type Service struct {
	cfg        *config.Config
	collectors []Collector
	scorer     Scorer
	publisher  Publisher
	collection *tracker.CollectionTracker
	analysis   *tracker.AnalysisTracker
	dedup      *tracker.DedupTracker
	batch      *tracker.DailyBatch
	reportPath string
	logger     zerolog.Logger
}

type Deps struct {
	Collectors []Collector
	Scorer     Scorer
	Publisher  Publisher
	Collection *tracker.CollectionTracker
	Analysis   *tracker.AnalysisTracker
	Dedup      *tracker.DedupTracker
	Batch      *tracker.DailyBatch
	ReportPath string
}

func NewService(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		collectors: deps.Collectors,
		scorer:     deps.Scorer,
		publisher:  deps.Publisher,
		collection: deps.Collection,
		analysis:   deps.Analysis,
		dedup:      deps.Dedup,
		batch:      deps.Batch,
		reportPath: deps.ReportPath,
		logger:     logger,
	}
}

// Run executes one full pipeline pass. The returned report is best-effort
// complete even when the run errors out partway.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := newReport()
	defer func() {
		report.FinishedAt = globaltime.UTC()
		s.flushAll(report)
	}()

	if s.publisher == nil {
		return report, fmt.Errorf("publisher is not configured (missing credentials)")
	}
	if s.scorer == nil {
		return report, fmt.Errorf("scorer is not configured")
	}

	// Stage 1: collect.
	collected := s.collectAll(ctx, report)
	report.Collected = len(collected)

	newSignals, skippedCollected := s.collection.FilterNewSignals(collected)
	report.NewSignals = len(newSignals)
	report.SkippedCollected = len(skippedCollected)
	if err := s.collection.Save(); err != nil {
		s.logger.Error().Err(err).Msg("failed to flush collection tracker")
		report.Errors = append(report.Errors, err.Error())
	}

	s.logger.Info().
		Int("collected", report.Collected).
		Int("new", report.NewSignals).
		Int("skipped", report.SkippedCollected).
		Msg("ingest stage done")

	// The merged batch, not just this run's new signals, feeds the analyze
	// stage: signals seeded by an earlier collect-only pass are already
	// marked collected and would otherwise never reach scoring.
	merged, err := s.batch.Append(newSignals)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist daily batch")
		report.Errors = append(report.Errors, err.Error())
	}

	// Stage 2: analyze.
	toScore, skippedAnalyzed := s.analysis.FilterNewSignals(merged)
	report.ToAnalyze = len(toScore)
	report.SkippedAnalyzed = len(skippedAnalyzed)
	if err := s.analysis.Save(); err != nil {
		s.logger.Error().Err(err).Msg("failed to flush analysis tracker")
		report.Errors = append(report.Errors, err.Error())
	}

	if len(toScore) == 0 {
		s.logger.Info().Msg("nothing new to analyze, run complete")
		return report, nil
	}

	analyses, err := s.scorer.Score(ctx, toScore)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("scoring failed: %v", err))
		return report, fmt.Errorf("scoring failed: %w", err)
	}
	report.Scored = len(analyses)

	enriched := enrichAnalyses(analyses, toScore)
	s.recordAnalysisResults(enriched, toScore)

	// Stage 3: publish.
	opts := tracker.DedupOptions{
		ContentThreshold:    s.cfg.ContentSimilarityThreshold,
		TitleThreshold:      s.cfg.TitleSimilarityThreshold,
		MaxPerSourcePerHour: s.cfg.MaxPerSourcePerHour,
		MaxSignalsPerRun:    s.cfg.MaxSignalsPerRun,
		MinScore:            s.cfg.MinPublishScore,
	}
	approved, duplicates, skipped := s.dedup.FilterSignalsForPublishing(enriched, opts)
	report.Approved = len(approved)
	report.Duplicates = len(duplicates)
	report.SkippedLowScore = len(skipped)

	s.logger.Info().
		Int("scored", report.Scored).
		Int("approved", report.Approved).
		Int("duplicates", report.Duplicates).
		Int("skipped_low_score", report.SkippedLowScore).
		Msg("publish filter done")

	for _, a := range approved {
		// Holding state before the send attempt; flushed immediately so an
		// overlapping or retried pass cannot re-select this identity.
		s.dedup.MarkAsProcessed(a)
		if err := s.dedup.Save(); err != nil {
			s.logger.Error().Err(err).Msg("failed to flush dedup tracker before send")
			report.Errors = append(report.Errors, err.Error())
		}

		if err := s.publisher.Send(ctx, FormatMessage(a)); err != nil {
			// The record stays at processed: failed sends are surfaced for
			// manual follow-up, never requeued within a run.
			s.logger.Warn().Err(err).Str("title", a.Title).Msg("publish failed")
			report.SendFailures = append(report.SendFailures, SendFailure{
				Title: a.Title,
				Link:  a.Link,
				Error: err.Error(),
			})
			continue
		}

		s.dedup.MarkAsPublished(a)
		if err := s.dedup.Save(); err != nil {
			s.logger.Error().Err(err).Msg("failed to flush dedup tracker after send")
			report.Errors = append(report.Errors, err.Error())
		}
		report.Published++
	}

	s.logger.Info().
		Int("published", report.Published).
		Int("send_failures", len(report.SendFailures)).
		Msg("run complete")
	return report, nil
}

func (s *Service) collectAll(ctx context.Context, report *Report) []model.Signal {
	var signals []model.Signal
	for _, c := range s.collectors {
		batch, err := c.Collect(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("collector", c.Name()).Msg("collector failed, continuing with zero signals")
			report.Errors = append(report.Errors, fmt.Sprintf("collector %s: %v", c.Name(), err))
			continue
		}
		for i := range batch {
			batch[i].Priority = model.DerivePriority(batch[i])
		}
		report.SourceCounts[c.Name()] = len(batch)
		signals = append(signals, batch...)
	}

	// Highest priority first so the publish cap favors the strongest items.
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Priority > signals[j].Priority
	})
	return signals
}

func (s *Service) recordAnalysisResults(analyses []model.Analysis, signals []model.Signal) {
	byKey := make(map[string]model.Signal, len(signals))
	for _, sig := range signals {
		byKey[normalize.CompositeKey(sig.Source, sig.Link, sig.Title)] = sig
	}
	for i := range analyses {
		a := analyses[i]
		if sig, ok := byKey[normalize.CompositeKey(a.Source, a.Link, a.Title)]; ok {
			s.analysis.MarkAsAnalyzed(sig, &analyses[i])
		}
	}
	if err := s.analysis.Save(); err != nil {
		s.logger.Error().Err(err).Msg("failed to flush analysis results")
	}
}

func (s *Service) flushAll(report *Report) {
	if s.collection != nil {
		if err := s.collection.Save(); err != nil {
			s.logger.Error().Err(err).Msg("final collection tracker flush failed")
		}
	}
	if s.analysis != nil {
		if err := s.analysis.Save(); err != nil {
			s.logger.Error().Err(err).Msg("final analysis tracker flush failed")
		}
	}
	if s.dedup != nil {
		if err := s.dedup.Save(); err != nil {
			s.logger.Error().Err(err).Msg("final dedup tracker flush failed")
		}
	}
	if s.reportPath != "" {
		if err := report.Save(s.reportPath); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist run report")
		}
	}
}

// enrichAnalyses copies source/title/link/content from the matching signal
// onto each analysis before it reaches the dedup tracker. Matching tries the
// canonical evidence back-link first, then project-name token overlap with
// the signal title. An analysis that matches nothing is anchored to the
// batch's first signal so it still carries a trackable identity.
func enrichAnalyses(analyses []model.Analysis, signals []model.Signal) []model.Analysis {
	if len(signals) == 0 {
		return analyses
	}

	byCleanURL := make(map[string]model.Signal, len(signals))
	for _, sig := range signals {
		if clean := normalize.CleanURL(sig.Link); clean != "" {
			byCleanURL[clean] = sig
		}
	}

	enriched := make([]model.Analysis, 0, len(analyses))
	for _, a := range analyses {
		sig, ok := matchSignal(a, signals, byCleanURL)
		if !ok {
			sig = signals[0]
		}
		a.Source = sig.Source
		a.Title = sig.Title
		a.Link = sig.Link
		a.Content = sig.Content
		a.URLKey = normalize.CleanURL(sig.Link)
		if len(a.Evidence) == 0 && sig.Link != "" {
			a.Evidence = []string{sig.Link}
		}
		enriched = append(enriched, a)
	}
	return enriched
}

func matchSignal(a model.Analysis, signals []model.Signal, byCleanURL map[string]model.Signal) (model.Signal, bool) {
	if link := a.EvidenceLink(); link != "" {
		if sig, ok := byCleanURL[normalize.CleanURL(link)]; ok {
			return sig, true
		}
	}

	project := strings.Fields(normalize.Title(a.ProjectName))
	if len(project) == 0 {
		return model.Signal{}, false
	}
	for _, sig := range signals {
		title := " " + normalize.Title(sig.Title) + " "
		for _, token := range project {
			if strings.Contains(title, " "+token+" ") {
				return sig, true
			}
		}
	}
	return model.Signal{}, false
}
