// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/namespace"
)

// Header is the column order of a summary report.
var Header = []string{
	"target_id",
	"repo_host",
	"repo_path",
	"repo_url",
	"library_key",
	"library_name",
	"namespace_prefix",
	"evidence_kinds",
	"classes_matched",
	"sample_class",
	"sample_class_file",
}

var headerAliases = map[string]string{
	"app_sha256":        "target_id",
	"libarary_key":      "library_key",
	"smali_prefix":      "namespace_prefix",
	"fingerprint_types": "evidence_kinds",
}

// Write emits summaries header first.
func Write(w io.Writer, summaries []Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := cw.Write([]string{
			s.TargetID,
			s.Repo.Host,
			s.Repo.Path,
			s.Repo.URL,
			s.LibraryKey,
			s.LibraryName,
			string(s.Prefix),
			s.KindsString(),
			strconv.Itoa(s.ClassesMatched),
			string(s.Sample.Descriptor),
			s.Sample.File,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a summary report. Malformed records are skipped and a
// malformed classes_matched cell reads as zero.
func Read(r io.Reader) ([]Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read summary header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var out []Summary
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read summary: %w", err)
		}
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		var kinds []fingerprint.EvidenceKind
		for _, part := range strings.Split(cell("evidence_kinds"), KindSeparator) {
			if part == "" {
				continue
			}
			if k, ok := fingerprint.ParseKind(part); ok {
				kinds = append(kinds, k)
			} else {
				kinds = append(kinds, fingerprint.EvidenceKind(part))
			}
		}

		out = append(out, Summary{
			TargetID: cell("target_id"),
			Repo: fingerprint.Repository{
				Host: cell("repo_host"),
				Path: cell("repo_path"),
				URL:  cell("repo_url"),
			},
			LibraryKey:     cell("library_key"),
			LibraryName:    cell("library_name"),
			Prefix:         namespace.Prefix(cell("namespace_prefix")),
			Kinds:          kinds,
			ClassesMatched: cast.ToInt(cell("classes_matched")),
			Sample: classindex.Class{
				Descriptor: namespace.Descriptor(cell("sample_class")),
				File:       cell("sample_class_file"),
			},
		})
	}
	return out, nil
}

// ReadFile reads the summary report at path.
func ReadFile(path string) ([]Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}
