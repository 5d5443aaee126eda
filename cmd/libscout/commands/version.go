// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"text/template"

	"github.com/spf13/cobra"

	"github.com/vulntor/libscout/cmd/libscout/internal/format"
	"github.com/vulntor/libscout/pkg/version"
)

var versionTemplate = `Version:      {{.Version}}
Commit:       {{.Commit}}
Go version:   {{.GoVersion}}
Built:        {{.BuildDate}}
OS/Arch:      {{.Platform}}
`

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print the version number of libscout",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			formatter := format.FromCommand(cmd)
			output, _ := cmd.Flags().GetString("output")
			switch format.ParseMode(output) {
			case format.ModeJSON:
				return formatter.PrintJSON(info)
			case format.ModeYAML:
				return formatter.PrintYAML(info)
			}

			tmpl, err := template.New("version").Parse(versionTemplate)
			if err != nil {
				return err
			}
			return tmpl.Execute(cmd.OutOrStdout(), info)
		},
	}
}
