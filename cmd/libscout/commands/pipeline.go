// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/libscout/cmd/libscout/internal/bind"
	"github.com/vulntor/libscout/cmd/libscout/internal/format"
	"github.com/vulntor/libscout/pkg/pipeline"
	"github.com/vulntor/libscout/pkg/storage"
	"github.com/vulntor/libscout/pkg/workspace"
)

type phaseFunc func(ctx context.Context, svc *pipeline.Service) ([]*pipeline.Stats, error)

// single adapts a one-phase service method to phaseFunc.
func single(fn func(*pipeline.Service, context.Context) (*pipeline.Stats, error)) phaseFunc {
	return func(ctx context.Context, svc *pipeline.Service) ([]*pipeline.Stats, error) {
		st, err := fn(svc, ctx)
		if st == nil {
			return nil, err
		}
		return []*pipeline.Stats{st}, err
	}
}

// newService binds a pipeline service for cmd and attaches the progress
// printer in table mode.
func newService(cmd *cobra.Command, formatter format.Formatter) (*pipeline.Service, error) {
	svc, err := bind.BindService(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !formatter.Quiet() && !formatter.IsJSON() {
		verbosity, _ := cmd.Flags().GetCount("verbosity")
		svc.WithProgressSink(format.NewProgressPrinter(cmd.ErrOrStderr(), formatter.Color(), verbosity > 0))
	}
	return svc, nil
}

// lockWorkspace takes the run lock when a workspace is active. The
// returned func releases it.
func lockWorkspace(cmd *cobra.Command) (func(), error) {
	sc, ok := storage.ConfigFromContext(cmd.Context())
	if !ok {
		return func() {}, nil
	}
	lock, err := workspace.Lock(sc.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Msg("release workspace lock")
		}
	}, nil
}

// runPhase executes fn under the workspace lock and renders its stats or
// its failure.
func runPhase(cmd *cobra.Command, operation string, fn phaseFunc) error {
	formatter := format.FromCommand(cmd)

	svc, err := newService(cmd, formatter)
	if err != nil {
		_ = formatter.PrintTotalFailureSummary(operation, err)
		return reported(err)
	}

	unlock, err := lockWorkspace(cmd)
	if err != nil {
		_ = formatter.PrintTotalFailureSummary(operation, err)
		return reported(err)
	}
	defer unlock()

	stats, runErr := fn(cmd.Context(), svc)
	if len(stats) > 0 {
		if err := formatter.PrintStats(stats); err != nil {
			return err
		}
	}
	if runErr != nil {
		_ = formatter.PrintTotalFailureSummary(operation, runErr)
		return reported(runErr)
	}
	return nil
}

func newCorpusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "corpus",
		Short:   "Manage the fingerprint corpus",
		GroupID: "pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Extract namespace fingerprints from cloned repositories",
		Long: `Reads the clone manifest, extracts namespace evidence from every eligible
repository and writes the fingerprint corpus CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhase(cmd, "build corpus", single((*pipeline.Service).BuildCorpus))
		},
	}
	addExecutionFlags(build)
	addExtractFlags(build)

	cmd.AddCommand(build)
	return cmd
}

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "index",
		Short:   "Index the classes of every decompiled target",
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhase(cmd, "index targets", single((*pipeline.Service).IndexTargets))
		},
	}
	addExecutionFlags(cmd)
	addIndexFlags(cmd)
	return cmd
}

func newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "match",
		Short:   "Match target classes against the corpus",
		Long:    `Writes one raw match report per target. Targets with an existing report are skipped unless --force is given.`,
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhase(cmd, "match", single((*pipeline.Service).MatchTargets))
		},
	}
	addExecutionFlags(cmd)
	addIndexFlags(cmd)
	return cmd
}

func newSummarizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "summarize",
		Short:   "Aggregate match reports into per-library summaries",
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhase(cmd, "summarize", single((*pipeline.Service).Summarize))
		},
	}
	addExecutionFlags(cmd)
	cmd.Flags().Int("limit-targets", 0, "Process at most N reports (0 = all)")
	return cmd
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every phase: corpus, index, match and summarize",
		Long: `Builds the corpus and indexes targets side by side, then matches and
summarizes. An existing corpus is reused unless --force is given.`,
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhase(cmd, "run", func(ctx context.Context, svc *pipeline.Service) ([]*pipeline.Stats, error) {
				return svc.Run(ctx)
			})
		},
	}
	addExecutionFlags(cmd)
	addExtractFlags(cmd)
	addIndexFlags(cmd)
	return cmd
}
