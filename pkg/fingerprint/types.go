// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package fingerprint extracts namespace fingerprints from cloned source
// repositories. A fingerprint records that a repository declares a namespace
// prefix, together with the kind of evidence and the file that produced it.
package fingerprint

import (
	"strings"

	"github.com/vulntor/libscout/pkg/namespace"
)

// EvidenceKind classifies where a fingerprint came from. Kinds are listed in
// decreasing order of confidence; matching treats them all as equal keys.
type EvidenceKind string

const (
	KindSourcePackage      EvidenceKind = "source_package_declaration"
	KindManifestPackage    EvidenceKind = "manifest_package"
	KindBuildGroup         EvidenceKind = "build_descriptor_group"
	KindBuildArtifactRoot  EvidenceKind = "build_descriptor_artifact_root"
	KindLicenseBundleEntry EvidenceKind = "third_party_license_bundle_entry"
)

// legacyKinds maps evidence labels written by older corpus builders.
var legacyKinds = map[string]EvidenceKind{
	"java_package":        KindSourcePackage,
	"kotlin_package":      KindSourcePackage,
	"maven_group_prefix":  KindBuildGroup,
	"gradle_group_prefix": KindBuildGroup,
	"maven_artifact_root": KindBuildArtifactRoot,
	"google_oss_metadata": KindLicenseBundleEntry,
}

// Kinds returns every evidence kind, strongest first.
func Kinds() []EvidenceKind {
	return []EvidenceKind{
		KindSourcePackage,
		KindManifestPackage,
		KindBuildGroup,
		KindBuildArtifactRoot,
		KindLicenseBundleEntry,
	}
}

// ParseKind resolves an evidence label, accepting legacy aliases.
func ParseKind(s string) (EvidenceKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	k, ok := legacyKinds[s]
	return k, ok
}

// Rank orders kinds by confidence; lower is stronger. Unknown kinds rank last.
func (k EvidenceKind) Rank() int {
	for i, known := range Kinds() {
		if known == k {
			return i
		}
	}
	return len(Kinds())
}

// Repository identifies a candidate source repository.
type Repository struct {
	Host      string `json:"host" yaml:"host"`
	Path      string `json:"repo_path" yaml:"repo_path"`
	URL       string `json:"url" yaml:"url"`
	LocalPath string `json:"-" yaml:"-"`
}

// ID is the identity used when deduplicating matches: host plus path.
func (r Repository) ID() string {
	return r.Host + "/" + r.Path
}

// LibraryKey is the stable library identifier reported downstream.
func (r Repository) LibraryKey() string {
	return r.Path
}

// LibraryName is the last segment of the repository path.
func (r Repository) LibraryName() string {
	p := strings.TrimRight(r.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Fingerprint is one piece of namespace evidence from one repository.
type Fingerprint struct {
	Prefix     namespace.Prefix `json:"prefix"`
	Kind       EvidenceKind     `json:"kind"`
	SourcePath string           `json:"source_path"`
	Repo       Repository       `json:"repo"`
}

// Dedup drops repeated (prefix, kind) pairs, keeping the first occurrence and
// its source locator.
func Dedup(fps []Fingerprint) []Fingerprint {
	type key struct {
		prefix namespace.Prefix
		kind   EvidenceKind
	}
	seen := make(map[key]struct{}, len(fps))
	out := make([]Fingerprint, 0, len(fps))
	for _, fp := range fps {
		k := key{fp.Prefix, fp.Kind}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, fp)
	}
	return out
}
