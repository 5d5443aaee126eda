// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/libscout/cmd/libscout/internal/format"
	"github.com/vulntor/libscout/pkg/appctx"
	"github.com/vulntor/libscout/pkg/config"
	"github.com/vulntor/libscout/pkg/logging"
	"github.com/vulntor/libscout/pkg/paths"
	"github.com/vulntor/libscout/pkg/storage"
	"github.com/vulntor/libscout/pkg/workspace"
)

const cliExecutable = "libscout"

// NewCommand constructs the top-level libscout CLI command, wiring global
// flags, configuration loading and shared workspace preparation.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		verbosityCount int
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Detect open-source libraries in decompiled Android apps",
		Long: `libscout builds a corpus of namespace fingerprints from cloned library
repositories and matches it against the classes of decompiled targets.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if output, _ := cmd.Flags().GetString("output"); output != "" {
				if err := format.ValidateMode(output); err != nil {
					return err
				}
			}

			path := configFile
			if path == "" {
				path = paths.ConfigFile()
			}
			sources := config.DefaultSources(path, cmd.Flags(), debug)
			if configFile != "" {
				sources[1] = &config.FileSource{Path: configFile, Required: true}
			}

			mgr := config.NewManager()
			if err := mgr.Load(sources...); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg := mgr.Get()

			if err := logging.ConfigureGlobalLogging(logging.LevelFromVerbosity(cfg.Log.Level, verbosityCount, debug)); err != nil {
				return err
			}

			ctx := appctx.WithConfig(cmd.Context(), mgr)

			if !cfg.Workspace.Disabled {
				sc := &storage.Config{WorkspaceRoot: cfg.Workspace.Dir}
				if sc.WorkspaceRoot != "" {
					if err := sc.Validate(); err != nil {
						return fmt.Errorf("workspace: %w", err)
					}
				}
				prepared, err := workspace.Prepare(sc.WorkspaceRoot)
				if err != nil {
					return fmt.Errorf("prepare workspace: %w", err)
				}
				sc.WorkspaceRoot = prepared
				ctx = storage.WithConfig(ctx, sc)
				log.Debug().Str("workspace", prepared).Msg("workspace ready")
			} else {
				log.Debug().Msg("workspace disabled for this run")
			}

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Configuration file path (default "+paths.ConfigFile()+")")
	flags.String("workspace-dir", "", "Override workspace root directory")
	flags.Bool("no-workspace", false, "Disable workspace persistence for this run")
	flags.CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.StringP("output", "o", string(format.ModeTable), "Output format: table, json or yaml")
	flags.BoolP("quiet", "q", false, "Suppress summaries and progress")
	flags.Bool("no-color", false, "Disable colored output")

	flags.String("manifest", "", "Clone manifest CSV (default repos/cloned_repos.csv)")
	flags.String("repos-dir", "", "Root of cloned repositories (default repos)")
	flags.String("decoded-dir", "", "Root of decompiled targets (default decoded)")
	flags.String("corpus", "", "Fingerprint corpus CSV (default <workspace>/corpus/fingerprints.csv)")
	flags.String("index-dir", "", "Class index cache directory (default <workspace>/classes_index)")
	flags.String("reports-dir", "", "Match report directory (default <workspace>/reports)")
	flags.String("summary-dir", "", "Summary report directory (default <workspace>/summaries)")

	cmd.AddGroup(&cobra.Group{ID: "pipeline", Title: "Pipeline Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newCorpusCommand())
	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newMatchCommand())
	cmd.AddCommand(newSummarizeCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// reportedError marks an error the formatter already printed.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
