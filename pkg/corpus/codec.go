// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/namespace"
)

// Header is the column order of a corpus file.
var Header = []string{
	"repo_host",
	"repo_path",
	"repo_url",
	"library_key",
	"library_name",
	"namespace_prefix",
	"evidence_kind",
	"source_file_path",
}

// headerAliases maps column names written by older corpus builders.
var headerAliases = map[string]string{
	"libarary_key":     "library_key",
	"smali_prefix":     "namespace_prefix",
	"fingerprint_type": "evidence_kind",
	"repo_file_path":   "source_file_path",
}

// ErrEmptyCorpus is returned by LoadFile when no usable prefix was read.
var ErrEmptyCorpus = errors.New("corpus contains no usable prefixes")

// Write emits fps as a corpus file, header first.
func Write(w io.Writer, fps []fingerprint.Fingerprint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, fp := range fps {
		row := []string{
			fp.Repo.Host,
			fp.Repo.Path,
			fp.Repo.URL,
			fp.Repo.LibraryKey(),
			fp.Repo.LibraryName(),
			string(fp.Prefix),
			string(fp.Kind),
			fp.SourcePath,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadStats counts rows dropped while reading a corpus file.
type ReadStats struct {
	Rows    int
	Skipped int
}

// Read parses a corpus file into a Corpus. Malformed records, rows whose
// prefix is not canonical and rows whose kind is unknown are skipped and
// counted.
func Read(r io.Reader) (*Corpus, ReadStats, error) {
	var st ReadStats
	c := New()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return c, st, nil
	}
	if err != nil {
		return nil, st, fmt.Errorf("read corpus header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		st.Rows++
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			st.Skipped++
			continue
		}
		if err != nil {
			return nil, st, fmt.Errorf("read corpus: %w", err)
		}
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		prefix := cell("namespace_prefix")
		if !namespace.IsCanonical(prefix) {
			st.Skipped++
			continue
		}
		kind, ok := fingerprint.ParseKind(cell("evidence_kind"))
		if !ok {
			st.Skipped++
			continue
		}
		fp := fingerprint.Fingerprint{
			Prefix:     namespace.Prefix(prefix),
			Kind:       kind,
			SourcePath: cell("source_file_path"),
			Repo: fingerprint.Repository{
				Host: cell("repo_host"),
				Path: cell("repo_path"),
				URL:  cell("repo_url"),
			},
		}
		c.Add(fp)
	}
	return c, st, nil
}

// LoadFile reads the corpus at path.
func LoadFile(path string) (*Corpus, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, err
	}
	defer func() { _ = f.Close() }()

	c, st, err := Read(f)
	if err != nil {
		return nil, st, err
	}
	if c.PrefixCount() == 0 {
		return nil, st, ErrEmptyCorpus
	}
	return c, st, nil
}
