// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

// Config is the root configuration structure for LibScout.
type Config struct {
	Log       LogConfig       `description:"Logging configuration" koanf:"log"`
	Workspace WorkspaceConfig `description:"Workspace configuration" koanf:"workspace"`
	Paths     PathsConfig     `description:"Input and output locations" koanf:"paths"`
	Pipeline  PipelineConfig  `description:"Phase execution settings" koanf:"pipeline"`
	Extract   ExtractConfig   `description:"Fingerprint extraction limits" koanf:"extract"`
	Index     IndexConfig     `description:"Class index settings" koanf:"index"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level string `description:"Log level: trace|debug|info|warn|error" koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
}

// WorkspaceConfig selects the artifact root.
type WorkspaceConfig struct {
	Dir      string `description:"Workspace root directory" koanf:"dir"`
	Disabled bool   `description:"Run without a workspace; every path must be given explicitly" koanf:"disabled"`
}

// PathsConfig holds the input locations and output overrides. Empty
// output paths resolve inside the workspace.
type PathsConfig struct {
	Manifest   string `description:"Repository manifest CSV" koanf:"manifest"`
	Repos      string `description:"Root of cloned repositories" koanf:"repos"`
	Decoded    string `description:"Root of decompiled targets" koanf:"decoded"`
	Corpus     string `description:"Fingerprint corpus CSV" koanf:"corpus"`
	ClassIndex string `description:"Class index cache directory" koanf:"class_index"`
	Reports    string `description:"Match report directory" koanf:"reports"`
	Summaries  string `description:"Summary report directory" koanf:"summaries"`
}

// PipelineConfig holds phase execution settings.
type PipelineConfig struct {
	Workers      int  `description:"Concurrent units per phase" koanf:"workers" validate:"min=1,max=256"`
	Force        bool `description:"Overwrite existing outputs" koanf:"force"`
	Reindex      bool `description:"Rebuild class indexes even when cached" koanf:"reindex"`
	LimitRepos   int  `description:"Process at most N repositories (0 = all)" koanf:"limit_repos" validate:"min=0"`
	LimitTargets int  `description:"Process at most N targets (0 = all)" koanf:"limit_targets" validate:"min=0"`
	LogEvery     int  `description:"Progress log cadence in units (0 = off)" koanf:"log_every" validate:"min=0"`
}

// ExtractConfig bounds fingerprint extraction per repository.
type ExtractConfig struct {
	MaxSourceFiles     int    `description:"Source files scanned per repository" koanf:"max_source_files" validate:"min=1"`
	MaxFileBytes       int64  `description:"Largest source file read" koanf:"max_file_bytes" validate:"min=1"`
	MaxDescriptorBytes int64  `description:"Largest build descriptor read" koanf:"max_descriptor_bytes" validate:"min=1"`
	SourceHeadLines    int    `description:"Lines read from the head of a source file" koanf:"source_head_lines" validate:"min=1"`
	SourceParser       string `description:"Package declaration parser: line|syntax" koanf:"source_parser" validate:"oneof=line syntax"`
}

// IndexConfig controls target class indexing.
type IndexConfig struct {
	DirPatterns []string `description:"Directory globs holding disassembled classes" koanf:"dir_patterns" validate:"min=1,dive,required"`
	HeadLines   int      `description:"Lines read from the head of a class file" koanf:"head_lines" validate:"min=1"`
	CacheSize   int      `description:"In-memory class index entries" koanf:"cache_size" validate:"min=1"`
}
