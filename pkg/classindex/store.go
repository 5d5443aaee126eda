// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package classindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/libscout/pkg/namespace"
	"github.com/vulntor/libscout/pkg/storage"
)

// SchemaVersion is written into every cache file.
const SchemaVersion = "1.0.0"

// DefaultCacheEntries bounds the in-memory index cache.
const DefaultCacheEntries = 64

var compatibleSchema = mustConstraint("^1")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// cacheFile is the on-disk form of one target's class list.
type cacheFile struct {
	SchemaVersion string  `json:"schema_version"`
	Target        string  `json:"target"`
	Classes       []Class `json:"classes"`
}

// Source reports where LoadOrBuild got its classes.
type Source string

const (
	SourceMemory  Source = "memory"
	SourceCache   Source = "cache"
	SourceScanned Source = "scanned"
)

// Store persists class lists under Dir, one JSON file per target, and keeps
// recently used lists in memory.
type Store struct {
	dir     string
	indexer *Indexer
	mem     *lru.Cache[string, []Class]
	logger  zerolog.Logger
}

// NewStore returns a Store writing to dir. entries bounds the in-memory
// cache; zero or less uses DefaultCacheEntries.
func NewStore(dir string, indexer *Indexer, entries int) (*Store, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	if indexer == nil {
		indexer = NewIndexer()
	}
	if err := indexer.Validate(); err != nil {
		return nil, err
	}
	mem, err := lru.New[string, []Class](entries)
	if err != nil {
		return nil, err
	}
	return &Store{
		dir:     dir,
		indexer: indexer,
		mem:     mem,
		logger:  log.With().Str("component", "classindex").Logger(),
	}, nil
}

// Path is the cache file of target.
func (s *Store) Path(target string) string {
	return filepath.Join(s.dir, target+".json")
}

// LoadOrBuild returns the classes of the target rooted at targetDir. Unless
// force is set, a cached list is reused; an unreadable or incompatible cache
// is rebuilt without error.
func (s *Store) LoadOrBuild(ctx context.Context, target, targetDir string, force bool) ([]Class, Source, error) {
	if !force {
		if classes, ok := s.mem.Get(target); ok {
			return classes, SourceMemory, nil
		}
		classes, err := s.load(target)
		if err == nil {
			s.mem.Add(target, classes)
			return classes, SourceCache, nil
		}
		if !storage.IsNotFound(err) {
			s.logger.Debug().Str("target", target).Err(err).Msg("class cache unusable, rebuilding")
		}
	}

	classes, st, err := s.indexer.Index(ctx, targetDir)
	if err != nil {
		return nil, "", err
	}
	if err := s.save(target, classes); err != nil {
		return nil, "", err
	}
	s.mem.Add(target, classes)
	s.logger.Debug().
		Str("target", target).
		Int("classes", len(classes)).
		Int("files", st.Files).
		Int("skipped", st.Skipped).
		Int("unpackaged", st.Unpackaged).
		Msg("class index built")
	return classes, SourceScanned, nil
}

// Forget drops target from the in-memory cache.
func (s *Store) Forget(target string) {
	s.mem.Remove(target)
}

func (s *Store) load(target string) ([]Class, error) {
	data, err := storage.ReadFile("class index", s.Path(target))
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// decode accepts the versioned object form and the legacy bare array.
func decode(data []byte) ([]Class, error) {
	var legacy []Class
	if err := json.Unmarshal(data, &legacy); err == nil {
		if legacy == nil {
			return nil, fmt.Errorf("class index is null")
		}
		return validClasses(legacy)
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decode class index: %w", err)
	}
	v, err := semver.NewVersion(cf.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("class index schema version %q: %w", cf.SchemaVersion, err)
	}
	if !compatibleSchema.Check(v) {
		return nil, fmt.Errorf("class index schema version %s not supported", v)
	}
	return validClasses(cf.Classes)
}

func validClasses(in []Class) ([]Class, error) {
	out := make([]Class, 0, len(in))
	for _, c := range in {
		desc, ok := namespace.ParseDescriptor(string(c.Descriptor))
		if !ok || !desc.Packaged() {
			continue
		}
		out = append(out, Class{Descriptor: desc, File: c.File})
	}
	if len(in) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("class index holds no valid classes")
	}
	return out, nil
}

func (s *Store) save(target string, classes []Class) error {
	if classes == nil {
		classes = []Class{}
	}
	data, err := json.Marshal(cacheFile{
		SchemaVersion: SchemaVersion,
		Target:        target,
		Classes:       classes,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return err
	}
	return storage.WriteFileAtomic(s.Path(target), data)
}
