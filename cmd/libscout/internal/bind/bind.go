// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package bind turns the loaded configuration into pipeline inputs.
package bind

import (
	"context"
	"fmt"

	"github.com/vulntor/libscout/pkg/appctx"
	"github.com/vulntor/libscout/pkg/config"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/pipeline"
	"github.com/vulntor/libscout/pkg/storage"
	"github.com/vulntor/libscout/pkg/workspace"
)

// BindPipelineOptions maps configuration onto pipeline options.
func BindPipelineOptions(cfg config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Workers = cfg.Pipeline.Workers
	opts.Force = cfg.Pipeline.Force
	opts.Reindex = cfg.Pipeline.Reindex
	opts.LimitRepos = cfg.Pipeline.LimitRepos
	opts.LimitTargets = cfg.Pipeline.LimitTargets
	opts.LogEvery = cfg.Pipeline.LogEvery

	opts.Extract = fingerprint.Options{
		MaxSourceFiles:     cfg.Extract.MaxSourceFiles,
		MaxFileBytes:       cfg.Extract.MaxFileBytes,
		MaxDescriptorBytes: cfg.Extract.MaxDescriptorBytes,
		SourceHeadLines:    cfg.Extract.SourceHeadLines,
		SourceParser:       cfg.Extract.SourceParser,
	}

	opts.IndexDirPatterns = append([]string(nil), cfg.Index.DirPatterns...)
	opts.IndexHeadLines = cfg.Index.HeadLines
	opts.IndexCacheSize = cfg.Index.CacheSize
	return opts
}

// BindPaths resolves every phase location. Outputs without an explicit
// path land in the workspace; with the workspace disabled they must be
// given on the command line or in the config file.
func BindPaths(cfg config.Config, workspaceRoot string) (pipeline.Paths, error) {
	paths := pipeline.Paths{
		Manifest:      cfg.Paths.Manifest,
		ReposDir:      cfg.Paths.Repos,
		DecodedDir:    cfg.Paths.Decoded,
		CorpusFile:    cfg.Paths.Corpus,
		ClassIndexDir: cfg.Paths.ClassIndex,
		ReportsDir:    cfg.Paths.Reports,
		SummariesDir:  cfg.Paths.Summaries,
	}

	layout := workspace.Layout{Root: workspaceRoot}
	outputs := []struct {
		flag     string
		value    *string
		fallback func() string
	}{
		{"corpus", &paths.CorpusFile, layout.CorpusFile},
		{"index-dir", &paths.ClassIndexDir, layout.ClassIndexDir},
		{"reports-dir", &paths.ReportsDir, layout.ReportsDir},
		{"summary-dir", &paths.SummariesDir, layout.SummariesDir},
	}
	for _, out := range outputs {
		if *out.value != "" {
			continue
		}
		if workspaceRoot == "" {
			return paths, storage.NewInvalidInputError(out.flag, fmt.Sprintf("workspace disabled; pass --%s", out.flag))
		}
		*out.value = out.fallback()
	}
	return paths, nil
}

// BindService builds a pipeline service from the configuration and
// workspace attached to ctx.
func BindService(ctx context.Context) (*pipeline.Service, error) {
	cfg := appctx.CurrentConfig(ctx)

	root := ""
	if sc, ok := storage.ConfigFromContext(ctx); ok {
		root = sc.WorkspaceRoot
	}

	paths, err := BindPaths(cfg, root)
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(paths, BindPipelineOptions(cfg))
}
