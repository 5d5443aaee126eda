// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package namespace

import "strings"

// Descriptor is a fully-qualified class descriptor such as "Lcom/foo/Bar;".
type Descriptor string

// ParseDescriptor validates a class descriptor token. Only object descriptors
// of the form "L<path>;" with non-empty segments are accepted.
func ParseDescriptor(token string) (Descriptor, bool) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, RootMarker) || !strings.HasSuffix(token, descriptorTerminator) {
		return "", false
	}
	body := token[len(RootMarker) : len(token)-len(descriptorTerminator)]
	if body == "" {
		return "", false
	}
	for _, seg := range strings.Split(body, Separator) {
		if seg == "" || strings.ContainsAny(seg, " \t;") {
			return "", false
		}
	}
	return Descriptor(token), true
}

// String implements fmt.Stringer.
func (d Descriptor) String() string { return string(d) }

// Path returns the slash-delimited namespace path without marker and terminator.
func (d Descriptor) Path() string {
	s := strings.TrimPrefix(string(d), RootMarker)
	return strings.TrimSuffix(s, descriptorTerminator)
}

// Segments returns every segment of the path including the class name.
func (d Descriptor) Segments() []string {
	p := d.Path()
	if p == "" {
		return nil
	}
	return strings.Split(p, Separator)
}

// Packaged reports whether the class is declared inside a namespace. Classes in
// the default namespace carry no matchable structure.
func (d Descriptor) Packaged() bool {
	return strings.Contains(d.Path(), Separator)
}

// Closure returns all proper ancestor prefixes of the class, shortest first.
// A class with k segments yields k-1 prefixes; a class in the default
// namespace yields none.
func (d Descriptor) Closure() []Prefix {
	segments := d.Segments()
	if len(segments) < 2 {
		return nil
	}

	out := make([]Prefix, 0, len(segments)-1)
	var b strings.Builder
	b.WriteString(RootMarker)
	for _, seg := range segments[:len(segments)-1] {
		b.WriteString(seg)
		b.WriteString(Separator)
		out = append(out, Prefix(b.String()))
	}
	return out
}
