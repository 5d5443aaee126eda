// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package corpus indexes namespace fingerprints by prefix across every
// candidate repository.
package corpus

import (
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/namespace"
)

type entryKey struct {
	prefix namespace.Prefix
	kind   fingerprint.EvidenceKind
	host   string
	path   string
}

// Corpus maps a canonical prefix to every fingerprint that declared it.
// Repositories sharing a prefix are all kept under that key. A Corpus is
// built once and must not be mutated while it is being read.
type Corpus struct {
	byPrefix map[namespace.Prefix][]fingerprint.Fingerprint
	seen     map[entryKey]struct{}
	order    []fingerprint.Fingerprint
}

// New returns an empty corpus.
func New() *Corpus {
	return &Corpus{
		byPrefix: make(map[namespace.Prefix][]fingerprint.Fingerprint),
		seen:     make(map[entryKey]struct{}),
	}
}

// Add inserts fp unless the same (prefix, kind, repository) is already
// present. It reports whether fp was added. Non-canonical prefixes are
// rejected.
func (c *Corpus) Add(fp fingerprint.Fingerprint) bool {
	if !namespace.IsCanonical(string(fp.Prefix)) {
		return false
	}
	k := entryKey{fp.Prefix, fp.Kind, fp.Repo.Host, fp.Repo.Path}
	if _, dup := c.seen[k]; dup {
		return false
	}
	c.seen[k] = struct{}{}
	c.byPrefix[fp.Prefix] = append(c.byPrefix[fp.Prefix], fp)
	c.order = append(c.order, fp)
	return true
}

// AddAll inserts each fingerprint and returns how many were added.
func (c *Corpus) AddAll(fps []fingerprint.Fingerprint) int {
	n := 0
	for _, fp := range fps {
		if c.Add(fp) {
			n++
		}
	}
	return n
}

// Lookup returns the fingerprints declared under prefix in insertion order.
// The returned slice must not be modified.
func (c *Corpus) Lookup(prefix namespace.Prefix) []fingerprint.Fingerprint {
	return c.byPrefix[prefix]
}

// Len is the number of fingerprints.
func (c *Corpus) Len() int {
	return len(c.order)
}

// PrefixCount is the number of distinct prefixes.
func (c *Corpus) PrefixCount() int {
	return len(c.byPrefix)
}

// Fingerprints returns every fingerprint in insertion order.
func (c *Corpus) Fingerprints() []fingerprint.Fingerprint {
	out := make([]fingerprint.Fingerprint, len(c.order))
	copy(out, c.order)
	return out
}
