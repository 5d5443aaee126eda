// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/vulntor/libscout/cmd/libscout/internal/bind"
	"github.com/vulntor/libscout/cmd/libscout/internal/format"
	"github.com/vulntor/libscout/pkg/aggregate"
	"github.com/vulntor/libscout/pkg/match"
	"github.com/vulntor/libscout/pkg/storage"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Inspect match reports and summaries",
		GroupID: "core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newReportShowCommand())
	return cmd
}

func newReportShowCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <target>",
		Short: "Show the libraries detected in one target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)
			target := args[0]

			svc, err := bind.BindService(cmd.Context())
			if err != nil {
				_ = formatter.PrintTotalFailureSummary("show report", err)
				return reported(err)
			}

			if raw {
				path := svc.ReportPath(target)
				records, err := match.ReadReportFile(path)
				if err != nil {
					err = notFound("report", path, err)
					_ = formatter.PrintTotalFailureSummary("show report", err)
					return reported(err)
				}
				return printRecords(formatter, records)
			}

			path := svc.SummaryPath(target)
			summaries, err := aggregate.ReadFile(path)
			if err != nil {
				err = notFound("summary", path, err)
				_ = formatter.PrintTotalFailureSummary("show report", err)
				return reported(err)
			}
			return formatter.PrintSummaries(summaries)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Show the raw class matches instead of the summary")
	return cmd
}

func printRecords(formatter format.Formatter, records []match.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Class.Descriptor.String(),
			r.Prefix().String(),
			r.Fingerprint.Repo.LibraryKey(),
			string(r.Fingerprint.Kind),
			r.Class.File,
		})
	}
	if len(rows) == 0 {
		return formatter.PrintSummary("No classes matched")
	}
	return formatter.PrintTable([]string{"class", "prefix", "library", "evidence", "file"}, rows)
}

func notFound(resource, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return storage.NewNotFoundError(resource, path)
	}
	return err
}
