// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"github.com/spf13/cobra"
)

// addExecutionFlags registers the worker pool and rerun flags shared by
// every phase command. Defaults come from the configuration layers, so the
// flag defaults here are only shown in help.
func addExecutionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 4, "Concurrent units")
	cmd.Flags().Bool("force", false, "Overwrite existing outputs")
	cmd.Flags().Int("log-every", 20, "Log progress every N units (0 = off)")
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit-repos", 0, "Process at most N repositories (0 = all)")
	cmd.Flags().Int("max-source-files", 5000, "Source files inspected per repository")
	cmd.Flags().String("source-parser", "line", "Package declaration parser: line or syntax")
}

func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit-targets", 0, "Process at most N targets (0 = all)")
	cmd.Flags().Bool("reindex", false, "Rebuild class indexes even when cached")
	cmd.Flags().StringSlice("dir-pattern", nil, "Directory globs holding disassembled classes (default smali*)")
	cmd.Flags().Int("head-lines", 20, "Lines read from the head of each class file")
}
