// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package pipeline orchestrates the corpus, index, match and summarize
// phases over a workspace. Phases run strictly in sequence; units inside a
// phase (repositories, targets, reports) run on a bounded worker pool and
// each writes only its own output file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vulntor/libscout/pkg/aggregate"
	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/corpus"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/manifest"
	"github.com/vulntor/libscout/pkg/match"
	"github.com/vulntor/libscout/pkg/storage"
)

const reportExt = ".csv"

// Service runs pipeline phases against one set of paths.
type Service struct {
	paths        Paths
	opts         Options
	extractor    *fingerprint.Extractor
	store        *classindex.Store
	progressSink ProgressSink
	logger       zerolog.Logger
	now          func() time.Time

	// scanned holds targets whose class index this Service rebuilt, so a
	// later phase in the same run reuses it instead of scanning again.
	scanned sync.Map
}

// NewService validates opts and builds a Service.
func NewService(paths Paths, opts Options) (*Service, error) {
	extractor, err := fingerprint.NewExtractor(opts.Extract)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	indexer := classindex.NewIndexer()
	if len(opts.IndexDirPatterns) > 0 {
		indexer.DirPatterns = opts.IndexDirPatterns
	}
	if opts.IndexHeadLines > 0 {
		indexer.HeadLines = opts.IndexHeadLines
	}
	store, err := classindex.NewStore(paths.ClassIndexDir, indexer, opts.IndexCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init class index: %w", err)
	}

	return &Service{
		paths:     paths,
		opts:      opts,
		extractor: extractor,
		store:     store,
		logger:    log.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}, nil
}

// WithProgressSink attaches a sink to receive progress notifications.
func (s *Service) WithProgressSink(sink ProgressSink) *Service {
	s.progressSink = sink
	return s
}

// Paths returns the paths the service reads and writes.
func (s *Service) Paths() Paths {
	return s.paths
}

func (s *Service) newStats(phase, output string) *Stats {
	return &Stats{
		RunID:     uuid.NewString(),
		Phase:     phase,
		Output:    output,
		StartedAt: s.now(),
	}
}

func (s *Service) finishStats(st *Stats) {
	st.Duration = s.now().Sub(st.StartedAt)
	s.logger.Info().
		Str("run_id", st.RunID).
		Str("phase", st.Phase).
		Int("processed", st.Processed).
		Int("ok", st.OK).
		Int("exists", st.Exists).
		Int("no_classes", st.NoClasses).
		Int("failed", st.Failed).
		Int("skipped", st.Skipped).
		Int("rows", st.Rows).
		Dur("duration", st.Duration).
		Msg("phase finished")
	s.emit(ProgressEvent{
		RunID:  st.RunID,
		Phase:  st.Phase,
		Status: "completed",
		Done:   st.Processed,
		Total:  st.Total,
		Rows:   st.Rows,
	})
}

func (s *Service) emit(ev ProgressEvent) {
	if s.progressSink == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	s.progressSink.OnEvent(ev)
}

// BuildCorpus extracts fingerprints from every eligible repository in the
// manifest and writes the corpus file. Repositories are merged in manifest
// order regardless of which worker finished first.
func (s *Service) BuildCorpus(ctx context.Context) (*Stats, error) {
	st := s.newStats(PhaseCorpus, s.paths.CorpusFile)

	if storage.Exists(s.paths.CorpusFile) && !s.opts.Force {
		return st, newOutputExistsError("corpus", s.paths.CorpusFile)
	}

	m, err := manifest.ReadFile(s.paths.Manifest, manifest.Options{Limit: s.opts.LimitRepos})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, newManifestMissingError(s.paths.Manifest)
		}
		return st, fmt.Errorf("read manifest: %w", err)
	}
	s.logger.Info().
		Int("repos", len(m.Entries)).
		Int("ineligible", m.Ineligible).
		Int("invalid", m.Invalid).
		Str("output", s.paths.CorpusFile).
		Msg("building corpus")

	repos := make(map[string]fingerprint.Repository, len(m.Entries))
	units := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		repo := e.Repository(s.paths.ReposDir)
		if _, dup := repos[repo.ID()]; dup {
			continue
		}
		repos[repo.ID()] = repo
		units = append(units, repo.ID())
	}

	found := make([][]fingerprint.Fingerprint, len(units))
	extract := make([]fingerprint.Stats, len(units))
	position := make(map[string]int, len(units))
	for i, u := range units {
		position[u] = i
	}

	s.runUnits(ctx, st, units, func(ctx context.Context, unit string) UnitResult {
		res, err := s.extractor.Extract(ctx, repos[unit])
		if err != nil {
			return failed(err)
		}
		i := position[unit]
		found[i] = res.Fingerprints
		extract[i] = res.Stats
		return UnitResult{Status: StatusOK, Rows: len(res.Fingerprints)}
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}

	c := corpus.New()
	st.Extract = &fingerprint.Stats{}
	for i := range units {
		c.AddAll(found[i])
		st.Extract.Add(extract[i])
	}
	st.Rows = c.Len()

	err = storage.WriteAtomic(s.paths.CorpusFile, func(w io.Writer) error {
		return corpus.Write(w, c.Fingerprints())
	})
	if err != nil {
		return st, fmt.Errorf("write corpus: %w", err)
	}
	s.finishStats(st)
	return st, nil
}

// Targets lists target identities: the subdirectories of the decoded root in
// name order, truncated to LimitTargets.
func (s *Service) Targets() ([]string, error) {
	entries, err := os.ReadDir(s.paths.DecodedDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newTargetRootMissingError(s.paths.DecodedDir)
		}
		return nil, err
	}
	var targets []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			targets = append(targets, e.Name())
		}
	}
	sort.Strings(targets)
	if s.opts.LimitTargets > 0 && len(targets) > s.opts.LimitTargets {
		targets = targets[:s.opts.LimitTargets]
	}
	return targets, nil
}

func (s *Service) targetDir(target string) string {
	return filepath.Join(s.paths.DecodedDir, target)
}

// ReportPath is the raw match report of target.
func (s *Service) ReportPath(target string) string {
	return filepath.Join(s.paths.ReportsDir, target+reportExt)
}

// SummaryPath is the summary report of target.
func (s *Service) SummaryPath(target string) string {
	return filepath.Join(s.paths.SummariesDir, target+reportExt)
}

// IndexTargets builds or refreshes the class index of every target.
func (s *Service) IndexTargets(ctx context.Context) (*Stats, error) {
	st := s.newStats(PhaseIndex, s.paths.ClassIndexDir)
	targets, err := s.Targets()
	if err != nil {
		return st, err
	}

	s.runUnits(ctx, st, targets, func(ctx context.Context, target string) UnitResult {
		classes, src, err := s.store.LoadOrBuild(ctx, target, s.targetDir(target), s.opts.Reindex)
		if err != nil {
			return failed(err)
		}
		if src == classindex.SourceScanned {
			s.scanned.Store(target, struct{}{})
		}
		switch {
		case len(classes) == 0:
			return UnitResult{Status: StatusNoClasses}
		case src != classindex.SourceScanned:
			return UnitResult{Status: StatusExists, Rows: len(classes)}
		default:
			return UnitResult{Status: StatusOK, Rows: len(classes)}
		}
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}
	s.finishStats(st)
	return st, nil
}

// LoadCorpus reads the corpus file.
func (s *Service) LoadCorpus() (*corpus.Corpus, error) {
	c, rs, err := corpus.LoadFile(s.paths.CorpusFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, newCorpusMissingError(s.paths.CorpusFile)
	case errors.Is(err, corpus.ErrEmptyCorpus):
		return nil, newEmptyCorpusError(s.paths.CorpusFile)
	case err != nil:
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if rs.Skipped > 0 {
		s.logger.Warn().Int("rows", rs.Rows).Int("skipped", rs.Skipped).Msg("corpus rows skipped")
	}
	s.logger.Info().
		Int("fingerprints", c.Len()).
		Int("prefixes", c.PrefixCount()).
		Msg("corpus loaded")
	return c, nil
}

// MatchTargets writes a raw match report for every target. A target with an
// existing report is left alone unless Force is set. A target with no
// classes gets a header-only report.
func (s *Service) MatchTargets(ctx context.Context) (*Stats, error) {
	st := s.newStats(PhaseMatch, s.paths.ReportsDir)

	c, err := s.LoadCorpus()
	if err != nil {
		return st, err
	}
	targets, err := s.Targets()
	if err != nil {
		return st, err
	}
	engine := match.NewEngine(c)

	s.runUnits(ctx, st, targets, func(ctx context.Context, target string) UnitResult {
		return s.matchTarget(ctx, engine, target)
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}
	s.finishStats(st)
	return st, nil
}

func (s *Service) matchTarget(ctx context.Context, engine *match.Engine, target string) UnitResult {
	out := s.ReportPath(target)
	if storage.Exists(out) && !s.opts.Force {
		return UnitResult{Status: StatusExists}
	}

	force := s.opts.Reindex
	if _, ok := s.scanned.Load(target); ok {
		force = false
	}
	classes, _, err := s.store.LoadOrBuild(ctx, target, s.targetDir(target), force)
	if err != nil {
		return failed(err)
	}

	var records []match.Record
	if len(classes) > 0 {
		records = engine.Match(target, classes)
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	err = storage.WriteAtomic(out, func(w io.Writer) error {
		return match.WriteReport(w, records)
	})
	if err != nil {
		return failed(err)
	}
	if len(classes) == 0 {
		return UnitResult{Status: StatusNoClasses}
	}
	return UnitResult{Status: StatusOK, Rows: len(records)}
}

// Reports lists the targets that have a raw match report, in name order,
// truncated to LimitTargets.
func (s *Service) Reports() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.paths.ReportsDir, "*"+reportExt))
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(matches))
	for _, m := range matches {
		targets = append(targets, strings.TrimSuffix(filepath.Base(m), reportExt))
	}
	sort.Strings(targets)
	if s.opts.LimitTargets > 0 && len(targets) > s.opts.LimitTargets {
		targets = targets[:s.opts.LimitTargets]
	}
	return targets, nil
}

// Summarize writes one summary report per raw match report.
func (s *Service) Summarize(ctx context.Context) (*Stats, error) {
	st := s.newStats(PhaseSummarize, s.paths.SummariesDir)
	targets, err := s.Reports()
	if err != nil {
		return st, err
	}

	s.runUnits(ctx, st, targets, func(ctx context.Context, target string) UnitResult {
		return s.summarizeTarget(target)
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}
	s.finishStats(st)
	return st, nil
}

func (s *Service) summarizeTarget(target string) UnitResult {
	out := s.SummaryPath(target)
	if storage.Exists(out) && !s.opts.Force {
		return UnitResult{Status: StatusExists}
	}
	records, err := match.ReadReportFile(s.ReportPath(target))
	if err != nil {
		return failed(err)
	}
	summaries := aggregate.Summarize(target, records)
	err = storage.WriteAtomic(out, func(w io.Writer) error {
		return aggregate.Write(w, summaries)
	})
	if err != nil {
		return failed(err)
	}
	return UnitResult{Status: StatusOK, Rows: len(summaries)}
}

// Run executes every phase. Corpus building and class indexing are
// independent and run side by side; matching starts once both are done.
// An existing corpus is reused when Force is not set.
func (s *Service) Run(ctx context.Context) ([]*Stats, error) {
	var corpusStats, indexStats *Stats
	s.cleanStaleTemp()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.BuildCorpus(gctx)
		corpusStats = st
		if errors.Is(err, ErrOutputExists) {
			s.logger.Info().Str("corpus", s.paths.CorpusFile).Msg("reusing existing corpus")
			corpusStats.Exists = 1
			return nil
		}
		return err
	})
	g.Go(func() error {
		st, err := s.IndexTargets(gctx)
		indexStats = st
		return err
	})
	if err := g.Wait(); err != nil {
		return compact(corpusStats, indexStats), err
	}

	matchStats, err := s.MatchTargets(ctx)
	if err != nil {
		return compact(corpusStats, indexStats, matchStats), err
	}
	summaryStats, err := s.Summarize(ctx)
	return compact(corpusStats, indexStats, matchStats, summaryStats), err
}

// cleanStaleTemp drops temporary files left by an interrupted run.
func (s *Service) cleanStaleTemp() {
	dirs := []string{filepath.Dir(s.paths.CorpusFile), s.paths.ClassIndexDir, s.paths.ReportsDir, s.paths.SummariesDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		n, err := storage.CleanTemp(dir)
		if err != nil {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("clean temporary files")
			continue
		}
		if n > 0 {
			s.logger.Info().Int("removed", n).Str("dir", dir).Msg("removed stale temporary files")
		}
	}
}

func compact(stats ...*Stats) []*Stats {
	out := make([]*Stats, 0, len(stats))
	for _, st := range stats {
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}
