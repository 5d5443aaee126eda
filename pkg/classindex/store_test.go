// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package classindex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "classes_index")
	s, err := NewStore(dir, nil, 4)
	require.NoError(t, err)
	return s, dir
}

func TestStore_BuildThenReuse(t *testing.T) {
	s, _ := newStore(t)
	target := buildTarget(t)
	ctx := context.Background()

	classes, src, err := s.LoadOrBuild(ctx, "app-1", target, false)
	require.NoError(t, err)
	assert.Equal(t, SourceScanned, src)
	assert.Len(t, classes, 2)
	assert.FileExists(t, s.Path("app-1"))

	_, src, err = s.LoadOrBuild(ctx, "app-1", target, false)
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, src)

	s.Forget("app-1")
	again, src, err := s.LoadOrBuild(ctx, "app-1", target, false)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, classes, again)
}

func TestStore_CacheFileShape(t *testing.T) {
	s, _ := newStore(t)
	_, _, err := s.LoadOrBuild(context.Background(), "app-1", buildTarget(t), false)
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path("app-1"))
	require.NoError(t, err)
	var cf map[string]any
	require.NoError(t, json.Unmarshal(data, &cf))
	assert.Equal(t, SchemaVersion, cf["schema_version"])
	assert.Equal(t, "app-1", cf["target"])
	assert.Len(t, cf["classes"], 2)
}

func TestStore_ForceRebuilds(t *testing.T) {
	s, _ := newStore(t)
	target := buildTarget(t)
	ctx := context.Background()

	_, _, err := s.LoadOrBuild(ctx, "app-1", target, false)
	require.NoError(t, err)

	writeFile(t, target, "smali/org/extra/New.smali", ".class Lorg/extra/New;\n")

	cached, _, err := s.LoadOrBuild(ctx, "app-1", target, false)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	fresh, src, err := s.LoadOrBuild(ctx, "app-1", target, true)
	require.NoError(t, err)
	assert.Equal(t, SourceScanned, src)
	assert.Len(t, fresh, 3)
}

func TestStore_CorruptCacheRebuildsSilently(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"future schema", `{"schema_version":"2.0.0","target":"app-1","classes":[]}`},
		{"bad schema", `{"schema_version":"latest","classes":[]}`},
		{"only garbage classes", `[{"class":"nonsense","path":"x"}]`},
		{"null", "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dir := newStore(t)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			require.NoError(t, os.WriteFile(s.Path("app-1"), []byte(tt.content), 0o644))

			classes, src, err := s.LoadOrBuild(context.Background(), "app-1", buildTarget(t), false)
			require.NoError(t, err)
			assert.Equal(t, SourceScanned, src)
			assert.Len(t, classes, 2)
		})
	}
}

func TestStore_LegacyArray(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	legacy := `[{"class":"Lcom/foo/Bar;","path":"/decoded/app-1/smali/com/foo/Bar.smali"},{"class":"LRoot;","path":"x"}]`
	require.NoError(t, os.WriteFile(s.Path("app-1"), []byte(legacy), 0o644))

	classes, src, err := s.LoadOrBuild(context.Background(), "app-1", t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	require.Len(t, classes, 1)
	assert.Equal(t, "Lcom/foo/Bar;", string(classes[0].Descriptor))
}

func TestStore_EmptyTargetCached(t *testing.T) {
	s, _ := newStore(t)
	empty := t.TempDir()

	classes, _, err := s.LoadOrBuild(context.Background(), "empty", empty, false)
	require.NoError(t, err)
	assert.Empty(t, classes)

	s.Forget("empty")
	classes, src, err := s.LoadOrBuild(context.Background(), "empty", empty, false)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Empty(t, classes)
}

func TestStore_MissingTarget(t *testing.T) {
	s, _ := newStore(t)
	_, _, err := s.LoadOrBuild(context.Background(), "gone", filepath.Join(t.TempDir(), "gone"), false)
	require.Error(t, err)
	assert.NoFileExists(t, s.Path("gone"))
}
