// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package namespace converts dotted package identifiers and compiled class
// descriptors into the canonical namespace prefix form used as the matching
// key between source repositories and decompiled targets.
//
// A canonical prefix is rooted with the object-type marker and terminated by
// the separator:
//
//	com.example.lib  ->  Lcom/example/lib/
//	Lcom/example/lib/Client;  ->  closure [Lcom/ Lcom/example/ Lcom/example/lib/]
package namespace

import (
	"strings"
)

const (
	// RootMarker opens every canonical prefix and class descriptor.
	RootMarker = "L"
	// Separator delimits namespace segments.
	Separator = "/"
	// descriptorTerminator closes a class descriptor.
	descriptorTerminator = ";"
)

// Prefix is a canonical namespace prefix such as "Lcom/example/lib/".
type Prefix string

// String implements fmt.Stringer.
func (p Prefix) String() string { return string(p) }

// Segments returns the namespace segments of the prefix.
func (p Prefix) Segments() []string {
	body := strings.TrimSuffix(strings.TrimPrefix(string(p), RootMarker), Separator)
	if body == "" {
		return nil
	}
	return strings.Split(body, Separator)
}

// Depth is the number of segments in the prefix. Deeper prefixes are
// stronger evidence of a specific library.
func (p Prefix) Depth() int {
	return len(p.Segments())
}

// Dotted returns the dotted package form ("com.example.lib").
func (p Prefix) Dotted() string {
	return strings.Join(p.Segments(), ".")
}

// Canonicalize converts a dotted identifier to its canonical prefix.
// Leading and trailing separators are trimmed, every '.' becomes '/', and the
// result is rooted and separator-terminated. Input that is already canonical
// is returned unchanged. Empty or malformed identifiers report false.
func Canonicalize(id string) (Prefix, bool) {
	s := strings.TrimSpace(id)
	if IsCanonical(s) {
		return Prefix(s), true
	}

	s = strings.Trim(s, "./")
	if s == "" {
		return "", false
	}
	s = strings.ReplaceAll(s, ".", Separator)

	segments := strings.Split(s, Separator)
	for _, seg := range segments {
		if !validSegment(seg) {
			return "", false
		}
	}
	return Prefix(RootMarker + strings.Join(segments, Separator) + Separator), true
}

// MustCanonicalize is Canonicalize for identifiers known to be valid.
// It panics on malformed input and is intended for tests and constants.
func MustCanonicalize(id string) Prefix {
	p, ok := Canonicalize(id)
	if !ok {
		panic("namespace: malformed identifier " + id)
	}
	return p
}

// IsCanonical reports whether s is a well-formed canonical prefix.
func IsCanonical(s string) bool {
	if len(s) < len(RootMarker)+2 {
		return false
	}
	if !strings.HasPrefix(s, RootMarker) || !strings.HasSuffix(s, Separator) {
		return false
	}
	body := s[len(RootMarker) : len(s)-len(Separator)]
	for _, seg := range strings.Split(body, Separator) {
		if !validSegment(seg) {
			return false
		}
	}
	return true
}

// validSegment accepts identifier characters plus '$' and '-'. Anything else
// (spaces, quotes, empty segments from "a..b") marks the identifier malformed.
func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '$', r == '-':
		default:
			return false
		}
	}
	return true
}
