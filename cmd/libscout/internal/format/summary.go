// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/vulntor/libscout/pkg/aggregate"
	"github.com/vulntor/libscout/pkg/pipeline"
)

const (
	maxErrorsToShow = 5 // Maximum failures to display before truncating
)

// PrintStats prints the final counts of each phase.
// Example output:
//
//	match (run 3f2a9c1e, 1.2s)
//	  ✓ OK:        12
//	  • Exists:     3
//	  ⚠ Skipped:    1
//	  ✗ Failed:     2
//	  Rows:       418
//
//	Failed units:
//	  - app-7: read class index: permission denied
func (f *formatter) PrintStats(stats []*pipeline.Stats) error {
	if f.quiet {
		return nil
	}
	if ok, err := f.printData(stats); ok {
		return err
	}

	var sb strings.Builder
	for i, st := range stats {
		if st == nil {
			continue
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.styled(color.Bold, "%s (run %s, %s)\n", st.Phase, shortID(st.RunID), st.Duration.Round(time.Millisecond)))
		if st.Output != "" {
			sb.WriteString(fmt.Sprintf("  Output:     %s\n", st.Output))
		}
		sb.WriteString(f.styled(color.FgGreen, "  ✓ OK:       %d\n", st.OK))
		if st.Exists > 0 {
			sb.WriteString(fmt.Sprintf("  • Exists:   %d\n", st.Exists))
		}
		if st.NoClasses > 0 {
			sb.WriteString(f.styled(color.FgYellow, "  ∅ No classes: %d\n", st.NoClasses))
		}
		if st.Skipped > 0 {
			sb.WriteString(f.styled(color.FgYellow, "  ⚠ Skipped:  %d\n", st.Skipped))
		}
		if st.Failed > 0 {
			sb.WriteString(f.styled(color.FgRed, "  ✗ Failed:   %d\n", st.Failed))
		}
		sb.WriteString(fmt.Sprintf("  Rows:       %d\n", st.Rows))
		if ex := st.Extract; ex != nil {
			sb.WriteString(fmt.Sprintf("  Files:      %d source, %d descriptor, %d skipped\n",
				ex.SourceFiles, ex.DescriptorFiles, ex.SkippedFiles))
		}

		if len(st.Failures) > 0 {
			sb.WriteString("\nFailed units:\n")
			for j, failure := range st.Failures {
				if j >= maxErrorsToShow {
					sb.WriteString(fmt.Sprintf("  ... and %d more (use --output json for full list)\n", len(st.Failures)-maxErrorsToShow))
					break
				}
				sb.WriteString(fmt.Sprintf("  - %s: %s\n", failure.Unit, failure.Error))
			}
		}
	}

	_, err := f.stdout.Write([]byte(sb.String()))
	return err
}

// PrintTotalFailureSummary prints total failure with error and suggestions
// Example output:
//
//	✗ Failed to match: fingerprint corpus not found: corpus/fingerprints.csv
//
//	💡 Suggestions:
//	  → Build the corpus first:        libscout corpus build
func (f *formatter) PrintTotalFailureSummary(operation string, err error) error {
	if err == nil || f.quiet {
		return nil
	}

	errorCode := pipeline.ErrorCode(err)
	if f.mode != ModeTable {
		_, writeErr := f.printData(map[string]any{
			"success":     false,
			"operation":   operation,
			"error":       err.Error(),
			"error_code":  errorCode,
			"suggestions": pipeline.Suggestions(err),
		})
		return writeErr
	}

	var sb strings.Builder
	sb.WriteString(f.styled(color.FgRed, "✗ Failed to %s: %v\n", operation, err))

	if suggestions := pipeline.Suggestions(err); len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  → %s\n", s))
		}
	}

	_, writeErr := f.stderr.Write([]byte(sb.String()))
	return writeErr
}

// SummaryRow is the machine readable form of one summary line.
type SummaryRow struct {
	TargetID       string `json:"target_id" yaml:"target_id"`
	LibraryKey     string `json:"library_key" yaml:"library_key"`
	LibraryName    string `json:"library_name" yaml:"library_name"`
	RepoURL        string `json:"repo_url,omitempty" yaml:"repo_url,omitempty"`
	Prefix         string `json:"namespace_prefix" yaml:"namespace_prefix"`
	Depth          int    `json:"depth" yaml:"depth"`
	EvidenceKinds  string `json:"evidence_kinds" yaml:"evidence_kinds"`
	ClassesMatched int    `json:"classes_matched" yaml:"classes_matched"`
	SampleClass    string `json:"sample_class,omitempty" yaml:"sample_class,omitempty"`
}

// PrintSummaries renders the library summary of one target.
func (f *formatter) PrintSummaries(summaries []aggregate.Summary) error {
	rows := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, SummaryRow{
			TargetID:       s.TargetID,
			LibraryKey:     s.LibraryKey,
			LibraryName:    s.LibraryName,
			RepoURL:        s.Repo.URL,
			Prefix:         s.Prefix.String(),
			Depth:          s.Depth(),
			EvidenceKinds:  s.KindsString(),
			ClassesMatched: s.ClassesMatched,
			SampleClass:    s.Sample.Descriptor.String(),
		})
	}

	if ok, err := f.printData(rows); ok {
		return err
	}

	if len(rows) == 0 {
		return f.PrintSummary("No libraries detected")
	}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.LibraryKey,
			r.Prefix,
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.ClassesMatched),
			r.EvidenceKinds,
			r.SampleClass,
		})
	}
	return f.PrintTable([]string{"library", "prefix", "depth", "classes", "evidence", "sample"}, table)
}

func (f *formatter) styled(attr color.Attribute, format string, args ...any) string {
	if f.color {
		return color.New(attr).Sprintf(format, args...)
	}
	return fmt.Sprintf(format, args...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
