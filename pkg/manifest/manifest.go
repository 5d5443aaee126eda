// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package manifest reads the clone manifest: one row per candidate
// repository with its local checkout and clone status.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vulntor/libscout/pkg/fingerprint"
)

// Column names of the manifest header.
const (
	ColHost      = "host"
	ColRepoPath  = "repo_path"
	ColURL       = "url"
	ColLocalPath = "local_path"
	ColStatus    = "status"
	ColMessage   = "message"
)

// eligibleStatuses are clone outcomes whose checkout is usable.
var eligibleStatuses = map[string]struct{}{
	"ok":        {},
	"exists":    {},
	"available": {},
	"dry_run":   {},
}

var validate = validator.New()

// Entry is one manifest row.
type Entry struct {
	Host      string `validate:"required,hostname_rfc1123"`
	RepoPath  string `validate:"required"`
	URL       string `validate:"omitempty,url"`
	LocalPath string
	Status    string
	Message   string
}

// Eligible reports whether the row's status marks an available checkout.
func (e Entry) Eligible() bool {
	_, ok := eligibleStatuses[strings.ToLower(strings.TrimSpace(e.Status))]
	return ok
}

// Repository converts the row into a repository reference. Only an absolute
// local path is used as is; a relative one, or none at all, resolves to
// <reposDir>/<host>/<repo_path>.
func (e Entry) Repository(reposDir string) fingerprint.Repository {
	local := e.LocalPath
	if local == "" || !filepath.IsAbs(local) {
		local = filepath.Join(reposDir, e.Host, filepath.FromSlash(e.RepoPath))
	}
	return fingerprint.Repository{
		Host:      e.Host,
		Path:      e.RepoPath,
		URL:       e.URL,
		LocalPath: local,
	}
}

// Result is the outcome of reading a manifest.
type Result struct {
	Entries    []Entry
	Ineligible int
	Invalid    int
}

// Options filter the rows returned by Read.
type Options struct {
	// Limit truncates the eligible rows; zero or less means no limit.
	Limit int
}

// ErrMissingColumns is returned when the header lacks host or repo_path.
var ErrMissingColumns = errors.New("manifest header must contain host and repo_path")

// Read parses a manifest, keeping eligible and valid rows in file order.
// Unknown columns are ignored and missing optional columns read as empty.
func Read(r io.Reader, opts Options) (Result, error) {
	var res Result

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read manifest header: %w", err)
	}
	cols := indexHeader(header)
	if _, ok := cols[ColHost]; !ok {
		return res, ErrMissingColumns
	}
	if _, ok := cols[ColRepoPath]; !ok {
		return res, ErrMissingColumns
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read manifest: %w", err)
		}
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		e := Entry{
			Host:      strings.ToLower(cell(ColHost)),
			RepoPath:  strings.Trim(cell(ColRepoPath), "/"),
			URL:       cell(ColURL),
			LocalPath: cell(ColLocalPath),
			Status:    cell(ColStatus),
			Message:   cell(ColMessage),
		}
		if !e.Eligible() {
			res.Ineligible++
			continue
		}
		if err := validate.Struct(e); err != nil {
			res.Invalid++
			continue
		}
		res.Entries = append(res.Entries, e)
		if opts.Limit > 0 && len(res.Entries) >= opts.Limit {
			break
		}
	}
	return res, nil
}

// ReadFile opens and parses the manifest at path.
func ReadFile(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = f.Close() }()
	return Read(f, opts)
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}
