// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulntor/libscout/cmd/libscout/internal/format"
	"github.com/vulntor/libscout/pkg/pipeline"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Match and summarize targets as they appear in the decoded root",
		Long: `Processes the targets already present, then watches the decoded root and
runs match and summarize for each new batch of targets. Stop with Ctrl-C.`,
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter := format.FromCommand(cmd)

			svc, err := newService(cmd, formatter)
			if err != nil {
				_ = formatter.PrintTotalFailureSummary("watch", err)
				return reported(err)
			}

			unlock, err := lockWorkspace(cmd)
			if err != nil {
				_ = formatter.PrintTotalFailureSummary("watch", err)
				return reported(err)
			}
			defer unlock()

			w, err := pipeline.NewWatcher(svc, debounce, func(stats []*pipeline.Stats, err error) {
				if len(stats) > 0 {
					_ = formatter.PrintStats(stats)
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					_ = formatter.PrintTotalFailureSummary("process batch", err)
				}
			})
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			if err := w.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				_ = formatter.PrintTotalFailureSummary("watch", err)
				return reported(err)
			}
			return nil
		},
	}

	addExecutionFlags(cmd)
	addIndexFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", pipeline.DefaultDebounce, "Quiet period before a batch of new targets is processed")
	return cmd
}
