// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package aggregate folds raw match records into one summary row per
// matched library and prefix.
package aggregate

import (
	"sort"
	"strings"

	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/match"
	"github.com/vulntor/libscout/pkg/namespace"
)

// KindSeparator joins evidence kinds in a summary cell.
const KindSeparator = "|"

// Summary is one matched library in one target.
type Summary struct {
	TargetID       string
	Repo           fingerprint.Repository
	LibraryKey     string
	LibraryName    string
	Prefix         namespace.Prefix
	Kinds          []fingerprint.EvidenceKind
	ClassesMatched int
	Sample         classindex.Class
}

// Depth is the segment count of the matched prefix. A deeper prefix is more
// specific evidence; it is reported alongside the row and does not reorder
// anything.
func (s Summary) Depth() int {
	return s.Prefix.Depth()
}

// KindsString renders the evidence kinds sorted and pipe-joined.
func (s Summary) KindsString() string {
	parts := make([]string, 0, len(s.Kinds))
	for _, k := range s.Kinds {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, KindSeparator)
}

type groupKey struct {
	host, path, libKey, libName string
	prefix                      namespace.Prefix
}

type group struct {
	summary Summary
	kinds   map[fingerprint.EvidenceKind]struct{}
	classes map[classindex.Class]struct{}
	sampled bool
}

// Summarize groups records by repository, library identity and prefix.
// Groups appear in the order their first record was seen. ClassesMatched
// counts distinct (class, file) pairs. The sample is the first record in the
// group that names a class, so identical input order always yields the same
// sample.
func Summarize(targetID string, records []match.Record) []Summary {
	var order []groupKey
	groups := make(map[groupKey]*group)

	for _, r := range records {
		repo := r.Fingerprint.Repo
		k := groupKey{
			host:    repo.Host,
			path:    repo.Path,
			libKey:  repo.LibraryKey(),
			libName: repo.LibraryName(),
			prefix:  r.Fingerprint.Prefix,
		}
		g, ok := groups[k]
		if !ok {
			g = &group{
				summary: Summary{
					TargetID:    targetID,
					Repo:        fingerprint.Repository{Host: repo.Host, Path: repo.Path, URL: repo.URL},
					LibraryKey:  k.libKey,
					LibraryName: k.libName,
					Prefix:      k.prefix,
				},
				kinds:   make(map[fingerprint.EvidenceKind]struct{}),
				classes: make(map[classindex.Class]struct{}),
			}
			groups[k] = g
			order = append(order, k)
		}
		if g.summary.Repo.URL == "" {
			g.summary.Repo.URL = repo.URL
		}
		if r.Fingerprint.Kind != "" {
			g.kinds[r.Fingerprint.Kind] = struct{}{}
		}
		if r.Class.Descriptor != "" {
			g.classes[r.Class] = struct{}{}
			if !g.sampled {
				g.summary.Sample = r.Class
				g.sampled = true
			}
		}
	}

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		g := groups[k]
		s := g.summary
		s.ClassesMatched = len(g.classes)
		s.Kinds = make([]fingerprint.EvidenceKind, 0, len(g.kinds))
		for kind := range g.kinds {
			s.Kinds = append(s.Kinds, kind)
		}
		sort.Slice(s.Kinds, func(i, j int) bool { return s.Kinds[i] < s.Kinds[j] })
		out = append(out, s)
	}
	return out
}
