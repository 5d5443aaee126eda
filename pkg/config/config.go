// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"

	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/fingerprint"
)

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	validate      *validator.Validate
	mu            sync.RWMutex
}

// NewManager creates a Manager with an empty koanf instance.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
		},
		Paths: PathsConfig{
			Manifest: "repos/cloned_repos.csv",
			Repos:    "repos",
			Decoded:  "decoded",
		},
		Pipeline: PipelineConfig{
			Workers:  4,
			LogEvery: 20,
		},
		Extract: ExtractConfig{
			MaxSourceFiles:     fingerprint.DefaultMaxSourceFiles,
			MaxFileBytes:       fingerprint.DefaultMaxFileBytes,
			MaxDescriptorBytes: fingerprint.DefaultMaxDescriptorBytes,
			SourceHeadLines:    fingerprint.DefaultSourceHeadLines,
			SourceParser:       fingerprint.ParserLine,
		},
		Index: IndexConfig{
			DirPatterns: []string{classindex.DefaultDirPattern},
			HeadLines:   classindex.DefaultHeadLines,
			CacheSize:   classindex.DefaultCacheEntries,
		},
	}
}

// Load merges the sources in priority order, unmarshals the result and
// validates it. The previous configuration is kept when Load fails.
func (m *Manager) Load(sources ...ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	postProcessConfig(&newCfg)

	if err := m.validate.Struct(newCfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", describeValidation(err))
	}

	m.koanfInstance = k
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.currentConfig
	cfg.Index.DirPatterns = append([]string(nil), m.currentConfig.Index.DirPatterns...)
	return cfg
}

// Koanf exposes the merged key space, mainly for `config` style dumps.
func (m *Manager) Koanf() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance
}

func postProcessConfig(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Extract.SourceParser = strings.ToLower(strings.TrimSpace(cfg.Extract.SourceParser))

	patterns := cfg.Index.DirPatterns[:0]
	for _, p := range cfg.Index.DirPatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	cfg.Index.DirPatterns = patterns
}

// describeValidation flattens validator errors into key=rule pairs.
func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map for
// koanf's confmap provider, so every key is known before overrides load.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level": def.Log.Level,

		"workspace.dir":      def.Workspace.Dir,
		"workspace.disabled": def.Workspace.Disabled,

		"paths.manifest":    def.Paths.Manifest,
		"paths.repos":       def.Paths.Repos,
		"paths.decoded":     def.Paths.Decoded,
		"paths.corpus":      def.Paths.Corpus,
		"paths.class_index": def.Paths.ClassIndex,
		"paths.reports":     def.Paths.Reports,
		"paths.summaries":   def.Paths.Summaries,

		"pipeline.workers":       def.Pipeline.Workers,
		"pipeline.force":         def.Pipeline.Force,
		"pipeline.reindex":       def.Pipeline.Reindex,
		"pipeline.limit_repos":   def.Pipeline.LimitRepos,
		"pipeline.limit_targets": def.Pipeline.LimitTargets,
		"pipeline.log_every":     def.Pipeline.LogEvery,

		"extract.max_source_files":     def.Extract.MaxSourceFiles,
		"extract.max_file_bytes":       def.Extract.MaxFileBytes,
		"extract.max_descriptor_bytes": def.Extract.MaxDescriptorBytes,
		"extract.source_head_lines":    def.Extract.SourceHeadLines,
		"extract.source_parser":        def.Extract.SourceParser,

		"index.dir_patterns": def.Index.DirPatterns,
		"index.head_lines":   def.Index.HeadLines,
		"index.cache_size":   def.Index.CacheSize,
	}
}
