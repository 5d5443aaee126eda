// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vulntor/libscout/pkg/aggregate"
	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/namespace"
	"github.com/vulntor/libscout/pkg/pipeline"
)

func TestPrintJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name:     "simple object",
			data:     map[string]string{"library": "okhttp"},
			expected: "{\n  \"library\": \"okhttp\"\n}\n",
		},
		{
			name:     "nil",
			data:     nil,
			expected: "null\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			f := New(&stdout, &stderr, ModeJSON, false, false)

			require.NoError(t, f.PrintJSON(tt.data))
			require.Equal(t, tt.expected, stdout.String())
			require.Empty(t, stderr.String())
		})
	}
}

func TestPrintTable(t *testing.T) {
	headers := []string{"library", "classes"}
	rows := [][]string{{"okhttp", "12"}, {"gson", "3"}}

	t.Run("table mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)
		require.NoError(t, f.PrintTable(headers, rows))
		require.Contains(t, stdout.String(), "library")
		require.Contains(t, stdout.String(), "okhttp")
	})

	t.Run("json mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeJSON, false, false)
		require.NoError(t, f.PrintTable(headers, rows))

		var items []map[string]string
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &items))
		require.Len(t, items, 2)
		require.Equal(t, "gson", items[1]["library"])
	})

	t.Run("yaml mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeYAML, false, false)
		require.NoError(t, f.PrintTable(headers, rows))

		var items []map[string]string
		require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &items))
		require.Equal(t, "12", items[0]["classes"])
	})
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name       string
		mode       OutputMode
		quiet      bool
		wantStdout string
		wantStderr string
	}{
		{"table", ModeTable, false, "done\n", ""},
		{"json goes to stderr", ModeJSON, false, "", "done\n"},
		{"quiet", ModeTable, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			f := New(&stdout, &stderr, tt.mode, tt.quiet, false)
			require.NoError(t, f.PrintSummary("done"))
			require.Equal(t, tt.wantStdout, stdout.String())
			require.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestPrintError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeTable, false, false)
	require.NoError(t, f.PrintError(errors.New("boom")))
	require.Equal(t, "Error: boom\n", stderr.String())

	stdout.Reset()
	f = New(&stdout, &stderr, ModeJSON, false, false)
	require.NoError(t, f.PrintError(errors.New("boom")))
	require.Contains(t, stdout.String(), `"success": false`)

	require.NoError(t, f.PrintError(nil))
}

func TestPrintStats(t *testing.T) {
	stats := []*pipeline.Stats{{
		RunID:     "3f2a9c1e-0000-0000-0000-000000000000",
		Phase:     pipeline.PhaseMatch,
		Output:    "reports",
		Total:     8,
		Processed: 8,
		OK:        5,
		Exists:    1,
		NoClasses: 1,
		Failed:    1,
		Rows:      42,
		Failures:  []pipeline.Failure{{Unit: "app-7", Error: "permission denied"}},
		Duration:  1200 * time.Millisecond,
	}}

	t.Run("table", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)
		require.NoError(t, f.PrintStats(stats))

		out := stdout.String()
		require.Contains(t, out, "match (run 3f2a9c1e, 1.2s)")
		require.Contains(t, out, "✓ OK:       5")
		require.Contains(t, out, "✗ Failed:   1")
		require.Contains(t, out, "Rows:       42")
		require.Contains(t, out, "- app-7: permission denied")
	})

	t.Run("json", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeJSON, false, false)
		require.NoError(t, f.PrintStats(stats))

		var decoded []map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
		require.Equal(t, "match", decoded[0]["phase"])
		require.EqualValues(t, 42, decoded[0]["rows"])
	})

	t.Run("truncates failures", func(t *testing.T) {
		many := *stats[0]
		many.Failures = nil
		for i := 0; i < maxErrorsToShow+2; i++ {
			many.Failures = append(many.Failures, pipeline.Failure{Unit: fmt.Sprintf("app-%d", i), Error: "x"})
		}
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)
		require.NoError(t, f.PrintStats([]*pipeline.Stats{&many}))
		require.Contains(t, stdout.String(), "... and 2 more")
	})

	t.Run("quiet", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, true, false)
		require.NoError(t, f.PrintStats(stats))
		require.Empty(t, stdout.String())
	})
}

func TestPrintTotalFailureSummary(t *testing.T) {
	err := fmt.Errorf("load corpus: %w", pipeline.ErrCorpusMissing)

	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeTable, false, false)
	require.NoError(t, f.PrintTotalFailureSummary("match", err))
	require.Contains(t, stderr.String(), "✗ Failed to match")
	require.Contains(t, stderr.String(), "libscout corpus build")

	stdout.Reset()
	f = New(&stdout, &stderr, ModeJSON, false, false)
	require.NoError(t, f.PrintTotalFailureSummary("match", err))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Equal(t, "CORPUS_MISSING", decoded["error_code"])
}

func TestPrintSummaries(t *testing.T) {
	summaries := []aggregate.Summary{{
		TargetID:       "app-1",
		LibraryKey:     "github.com/square/okhttp",
		LibraryName:    "okhttp",
		Prefix:         namespace.MustCanonicalize("com.squareup.okhttp3"),
		ClassesMatched: 7,
		Sample:         classindex.Class{Descriptor: "Lcom/squareup/okhttp3/Call;"},
	}}

	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeTable, false, false)
	require.NoError(t, f.PrintSummaries(summaries))
	require.Contains(t, stdout.String(), "Lcom/squareup/okhttp3/")
	require.Contains(t, stdout.String(), "Lcom/squareup/okhttp3/Call;")

	stdout.Reset()
	f = New(&stdout, &stderr, ModeJSON, false, false)
	require.NoError(t, f.PrintSummaries(summaries))
	var rows []SummaryRow
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows))
	require.Equal(t, 3, rows[0].Depth)
	require.Equal(t, 7, rows[0].ClassesMatched)

	stdout.Reset()
	f = New(&stdout, &stderr, ModeTable, false, false)
	require.NoError(t, f.PrintSummaries(nil))
	require.Equal(t, "No libraries detected\n", stdout.String())
}

func TestParseMode(t *testing.T) {
	require.Equal(t, ModeJSON, ParseMode("JSON"))
	require.Equal(t, ModeYAML, ParseMode("yml"))
	require.Equal(t, ModeTable, ParseMode("unknown"))

	require.NoError(t, ValidateMode("yaml"))
	require.Error(t, ValidateMode("xml"))
}
