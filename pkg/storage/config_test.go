// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("absolute path kept", func(t *testing.T) {
		dir := t.TempDir()
		cfg := &Config{WorkspaceRoot: dir}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, dir, cfg.WorkspaceRoot)
	})

	t.Run("tilde expanded", func(t *testing.T) {
		cfg := &Config{WorkspaceRoot: "~/libscout-test"}
		require.NoError(t, cfg.Validate())
		assert.False(t, strings.HasPrefix(cfg.WorkspaceRoot, "~"))
		assert.True(t, filepath.IsAbs(cfg.WorkspaceRoot))
	})

	t.Run("relative made absolute", func(t *testing.T) {
		cfg := &Config{WorkspaceRoot: "relative/ws"}
		require.NoError(t, cfg.Validate())
		assert.True(t, filepath.IsAbs(cfg.WorkspaceRoot))
	})

	t.Run("empty rejected", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})
}
