// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package classindex lists the classes declared in a decompiled target and
// caches the list per target.
package classindex

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vulntor/libscout/pkg/namespace"
)

// Defaults for the disassembly layout.
const (
	DefaultDirPattern  = "smali*"
	DefaultFilePattern = "*.smali"
	DefaultHeadLines   = 20

	classDirective = ".class"
)

// Class is one class declared in a target.
type Class struct {
	Descriptor namespace.Descriptor `json:"class"`
	// File is relative to the target root, slash separated.
	File string `json:"path"`
}

// Stats counts what an indexing pass looked at.
type Stats struct {
	Files      int `json:"files"`
	Skipped    int `json:"skipped"`
	Unpackaged int `json:"unpackaged"`
}

// Indexer scans decompiled target trees for class declaration records.
type Indexer struct {
	// DirPatterns are globs matched against directory names. Only subtrees
	// rooted at a matching directory are scanned.
	DirPatterns []string
	// FilePattern selects candidate files inside those subtrees.
	FilePattern string
	// HeadLines bounds how far into a file the declaration is searched.
	HeadLines int
}

// NewIndexer returns an Indexer with the default disassembly layout.
func NewIndexer() *Indexer {
	return &Indexer{
		DirPatterns: []string{DefaultDirPattern},
		FilePattern: DefaultFilePattern,
		HeadLines:   DefaultHeadLines,
	}
}

// Validate checks the glob patterns.
func (ix *Indexer) Validate() error {
	for _, p := range append([]string{ix.filePattern()}, ix.dirPatterns()...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func (ix *Indexer) dirPatterns() []string {
	if len(ix.DirPatterns) == 0 {
		return []string{DefaultDirPattern}
	}
	return ix.DirPatterns
}

func (ix *Indexer) filePattern() string {
	if ix.FilePattern == "" {
		return DefaultFilePattern
	}
	return ix.FilePattern
}

func (ix *Indexer) headLines() int {
	if ix.HeadLines <= 0 {
		return DefaultHeadLines
	}
	return ix.HeadLines
}

func (ix *Indexer) isCodeDir(name string) bool {
	for _, p := range ix.dirPatterns() {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Index returns the packaged classes found under root, in walk order. Each
// file contributes at most one class. Classes in the default namespace are
// counted in Stats.Unpackaged and left out.
func (ix *Indexer) Index(ctx context.Context, root string) ([]Class, Stats, error) {
	var (
		classes []Class
		st      Stats
	)

	info, err := os.Stat(root)
	if err != nil {
		return nil, st, err
	}
	if !info.IsDir() {
		return nil, st, fmt.Errorf("%s is not a directory", root)
	}

	filePattern := ix.filePattern()
	head := ix.headLines()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			st.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(filePattern, d.Name()); !ok {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || !ix.underCodeDir(rel) {
			return nil
		}

		st.Files++
		desc, ok, readErr := classDescriptor(path, head)
		if readErr != nil {
			st.Skipped++
			return nil
		}
		if !ok {
			return nil
		}
		if !desc.Packaged() {
			st.Unpackaged++
			return nil
		}
		classes = append(classes, Class{Descriptor: desc, File: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, st, err
	}
	return classes, st, nil
}

// underCodeDir reports whether any directory on rel's path matches the
// decompiled-code patterns.
func (ix *Indexer) underCodeDir(rel string) bool {
	dir := filepath.Dir(rel)
	for dir != "." && dir != string(filepath.Separator) && dir != "" {
		if ix.isCodeDir(filepath.Base(dir)) {
			return true
		}
		dir = filepath.Dir(dir)
	}
	return false
}

// classDescriptor reads the first class directive within the head of a file.
// The descriptor is the last token of the directive, after any modifiers.
func classDescriptor(path string, head int) (namespace.Descriptor, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 256*1024)
	for i := 0; i < head && sc.Scan(); i++ {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != classDirective {
			continue
		}
		desc, ok := namespace.ParseDescriptor(fields[len(fields)-1])
		return desc, ok, nil
	}
	return "", false, nil
}
