// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/libscout/pkg/namespace"
)

// Defaults mirror the evidence density observed in typical Android library
// repositories: package statements sit in the first few dozen lines and
// build descriptors rarely exceed a megabyte.
const (
	DefaultMaxSourceFiles     = 5000
	DefaultMaxFileBytes       = 2_000_000
	DefaultMaxDescriptorBytes = 1_000_000
	DefaultSourceHeadLines    = 50
	DefaultGradleHeadLines    = 200

	manifestFileName      = "AndroidManifest.xml"
	pomFileName           = "pom.xml"
	licenseMetadataPrefix = "third_party_license_metadata"
)

var gradleFileNames = map[string]struct{}{
	"build.gradle":     {},
	"build.gradle.kts": {},
}

var skippedDirs = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
}

// Options tune one extraction.
type Options struct {
	MaxSourceFiles     int
	MaxFileBytes       int64
	MaxDescriptorBytes int64
	SourceHeadLines    int
	SourceParser       string
}

// DefaultOptions returns the stock extraction limits with the line parser.
func DefaultOptions() Options {
	return Options{
		MaxSourceFiles:     DefaultMaxSourceFiles,
		MaxFileBytes:       DefaultMaxFileBytes,
		MaxDescriptorBytes: DefaultMaxDescriptorBytes,
		SourceHeadLines:    DefaultSourceHeadLines,
		SourceParser:       ParserLine,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxSourceFiles <= 0 {
		o.MaxSourceFiles = def.MaxSourceFiles
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = def.MaxFileBytes
	}
	if o.MaxDescriptorBytes <= 0 {
		o.MaxDescriptorBytes = def.MaxDescriptorBytes
	}
	if o.SourceHeadLines <= 0 {
		o.SourceHeadLines = def.SourceHeadLines
	}
	if o.SourceParser == "" {
		o.SourceParser = def.SourceParser
	}
	return o
}

// Stats counts what an extraction looked at. Skipped files were unreadable
// or over the size guard; they never fail the repository.
type Stats struct {
	SourceFiles      int  `json:"source_files"`
	DescriptorFiles  int  `json:"descriptor_files"`
	SkippedFiles     int  `json:"skipped_files"`
	SourceCapReached bool `json:"source_cap_reached"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.SourceFiles += other.SourceFiles
	s.DescriptorFiles += other.DescriptorFiles
	s.SkippedFiles += other.SkippedFiles
	s.SourceCapReached = s.SourceCapReached || other.SourceCapReached
}

// Result is the deduplicated evidence of one repository.
type Result struct {
	Repo         Repository
	Fingerprints []Fingerprint
	Stats        Stats
}

// Extractor scans repository checkouts for namespace evidence.
type Extractor struct {
	opts   Options
	logger zerolog.Logger
}

// NewExtractor validates the parser mode and returns an Extractor.
func NewExtractor(opts Options) (*Extractor, error) {
	opts = opts.withDefaults()
	p, err := NewSourceParser(opts.SourceParser)
	if err != nil {
		return nil, err
	}
	p.Close()
	return &Extractor{
		opts:   opts,
		logger: log.With().Str("component", "fingerprint.extractor").Logger(),
	}, nil
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract walks repo.LocalPath and returns its fingerprints. A missing or
// non-directory checkout is an error for this repository only; a checkout
// with no evidence is a valid empty result.
func (e *Extractor) Extract(ctx context.Context, repo Repository) (Result, error) {
	res := Result{Repo: repo}

	info, err := os.Stat(repo.LocalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, NewRepositoryMissingError(repo.LocalPath)
		}
		return res, err
	}
	if !info.IsDir() {
		return res, NewRepositoryInvalidError(repo.LocalPath)
	}

	parser, err := NewSourceParser(e.opts.SourceParser)
	if err != nil {
		return res, err
	}
	defer parser.Close()

	s := &scan{
		ctx:    ctx,
		opts:   e.opts,
		repo:   repo,
		parser: parser,
	}
	if err := filepath.WalkDir(repo.LocalPath, s.visit); err != nil {
		return res, err
	}

	res.Fingerprints = Dedup(s.found)
	res.Stats = s.stats
	e.logger.Debug().
		Str("repo", repo.ID()).
		Int("fingerprints", len(res.Fingerprints)).
		Int("source_files", s.stats.SourceFiles).
		Int("skipped_files", s.stats.SkippedFiles).
		Bool("source_cap_reached", s.stats.SourceCapReached).
		Msg("repository scanned")
	return res, nil
}

// scan holds the state of one repository walk.
type scan struct {
	ctx    context.Context
	opts   Options
	repo   Repository
	parser SourceParser
	found  []Fingerprint
	stats  Stats
}

func (s *scan) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		// Unreadable subtree: skip it, keep walking.
		if d != nil && d.IsDir() {
			s.stats.SkippedFiles++
			return filepath.SkipDir
		}
		s.stats.SkippedFiles++
		return nil
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if d.IsDir() {
		if _, skip := skippedDirs[d.Name()]; skip {
			return filepath.SkipDir
		}
		return nil
	}
	if !d.Type().IsRegular() {
		return nil
	}

	name := d.Name()
	if lang, ok := languageForExt(filepath.Ext(name)); ok {
		s.source(path, lang)
		return nil
	}

	switch {
	case name == manifestFileName:
		s.manifest(path)
	case name == pomFileName:
		s.pom(path)
	case isGradleFile(name):
		s.gradle(path)
	case strings.HasPrefix(name, licenseMetadataPrefix):
		s.licenseBundle(path)
	}
	return nil
}

func isGradleFile(name string) bool {
	_, ok := gradleFileNames[name]
	return ok
}

func (s *scan) emit(id string, kind EvidenceKind, path string) {
	prefix, ok := namespace.Canonicalize(id)
	if !ok {
		return
	}
	s.found = append(s.found, Fingerprint{
		Prefix:     prefix,
		Kind:       kind,
		SourcePath: path,
		Repo:       s.repo,
	})
}

func (s *scan) source(path string, lang Language) {
	if s.stats.SourceFiles >= s.opts.MaxSourceFiles {
		s.stats.SourceCapReached = true
		return
	}
	s.stats.SourceFiles++

	head, ok := readHead(path, s.opts.SourceHeadLines, s.opts.MaxFileBytes)
	if !ok {
		s.stats.SkippedFiles++
		return
	}
	if pkg, found := s.parser.Package(s.ctx, lang, head); found {
		s.emit(pkg, KindSourcePackage, path)
	}
}

func (s *scan) manifest(path string) {
	s.stats.DescriptorFiles++
	text, ok := readText(path, s.opts.MaxDescriptorBytes)
	if !ok {
		s.stats.SkippedFiles++
		return
	}
	if pkg, found := manifestPackage(text); found {
		s.emit(pkg, KindManifestPackage, path)
	}
}

func (s *scan) pom(path string) {
	s.stats.DescriptorFiles++
	text, ok := readText(path, s.opts.MaxDescriptorBytes)
	if !ok {
		s.stats.SkippedFiles++
		return
	}
	groupID, artifactID := pomCoordinates(text)
	if groupID != "" {
		s.emit(groupID, KindBuildGroup, path)
	}
	if artifactID != "" && validArtifactID(artifactID) {
		s.emit(artifactID, KindBuildArtifactRoot, path)
	}
}

func (s *scan) gradle(path string) {
	s.stats.DescriptorFiles++
	lines, ok := readHead(path, DefaultGradleHeadLines, s.opts.MaxDescriptorBytes)
	if !ok {
		s.stats.SkippedFiles++
		return
	}
	if group, found := gradleGroup(lines); found {
		s.emit(group, KindBuildGroup, path)
	}
}

func (s *scan) licenseBundle(path string) {
	s.stats.DescriptorFiles++
	text, ok := readText(path, s.opts.MaxFileBytes)
	if !ok {
		s.stats.SkippedFiles++
		return
	}
	for _, group := range licenseBundleGroups(text) {
		s.emit(group, KindLicenseBundleEntry, path)
	}
}
