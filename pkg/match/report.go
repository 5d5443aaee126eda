// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package match

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/namespace"
)

// ReportHeader is the column order of a raw match report.
var ReportHeader = []string{
	"target_id",
	"repo_host",
	"repo_path",
	"repo_url",
	"library_key",
	"library_name",
	"namespace_prefix",
	"evidence_kind",
	"class",
	"class_file",
}

var reportAliases = map[string]string{
	"app_sha256":       "target_id",
	"libarary_key":     "library_key",
	"smali_prefix":     "namespace_prefix",
	"fingerprint_type": "evidence_kind",
}

// WriteReport emits records header first. An empty record set still gets a
// header so the report is recognisable as complete.
func WriteReport(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return err
	}
	for _, r := range records {
		fp := r.Fingerprint
		if err := cw.Write([]string{
			r.TargetID,
			fp.Repo.Host,
			fp.Repo.Path,
			fp.Repo.URL,
			fp.Repo.LibraryKey(),
			fp.Repo.LibraryName(),
			string(fp.Prefix),
			string(fp.Kind),
			string(r.Class.Descriptor),
			r.Class.File,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadReport parses a raw match report. A zero-byte report is an empty
// marker and yields no records. Malformed records are skipped and unknown
// evidence kinds are kept verbatim.
func ReadReport(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if alias, ok := reportAliases[h]; ok {
			h = alias
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var out []Record
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
			return nil, fmt.Errorf("read report: %w", err)
		}
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		kind, ok := fingerprint.ParseKind(cell("evidence_kind"))
		if !ok {
			kind = fingerprint.EvidenceKind(cell("evidence_kind"))
		}
		out = append(out, Record{
			TargetID: cell("target_id"),
			Fingerprint: fingerprint.Fingerprint{
				Prefix: namespace.Prefix(cell("namespace_prefix")),
				Kind:   kind,
				Repo: fingerprint.Repository{
					Host: cell("repo_host"),
					Path: cell("repo_path"),
					URL:  cell("repo_url"),
				},
			},
			Class: classindex.Class{
				Descriptor: namespace.Descriptor(cell("class")),
				File:       cell("class_file"),
			},
		})
	}
	return out, nil
}

// ReadReportFile reads the report at path.
func ReadReportFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadReport(f)
}
