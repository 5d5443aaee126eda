// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package match resolves the classes of a target against the fingerprint
// corpus by walking each class's ancestor prefixes.
package match

import (
	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/corpus"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/namespace"
)

// Record is one class credited to one repository through one prefix.
type Record struct {
	TargetID    string
	Fingerprint fingerprint.Fingerprint
	Class       classindex.Class
}

// Prefix is the matched namespace prefix.
func (r Record) Prefix() namespace.Prefix {
	return r.Fingerprint.Prefix
}

// Lookup is the read side of a corpus.
type Lookup interface {
	Lookup(prefix namespace.Prefix) []fingerprint.Fingerprint
}

var _ Lookup = (*corpus.Corpus)(nil)

// Engine matches classes against a corpus. It holds no mutable state and is
// safe for concurrent use as long as the corpus is not modified.
type Engine struct {
	corpus Lookup
}

// NewEngine returns an Engine reading from c.
func NewEngine(c Lookup) *Engine {
	return &Engine{corpus: c}
}

type recordKey struct {
	class  namespace.Descriptor
	prefix namespace.Prefix
	host   string
	path   string
}

// Match returns the deduplicated records for one target. Classes in the
// default namespace have an empty closure and never match. Records follow
// class order, then closure order (shortest prefix first), then corpus order.
func (e *Engine) Match(targetID string, classes []classindex.Class) []Record {
	var out []Record
	emitted := make(map[recordKey]struct{})
	for _, c := range classes {
		for _, prefix := range c.Descriptor.Closure() {
			for _, fp := range e.corpus.Lookup(prefix) {
				k := recordKey{c.Descriptor, fp.Prefix, fp.Repo.Host, fp.Repo.Path}
				if _, dup := emitted[k]; dup {
					continue
				}
				emitted[k] = struct{}{}
				out = append(out, Record{TargetID: targetID, Fingerprint: fp, Class: c})
			}
		}
	}
	return out
}
