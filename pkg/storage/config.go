// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config locates the artifact store on disk.
type Config struct {
	// WorkspaceRoot holds corpus, class index, reports and summaries.
	WorkspaceRoot string `yaml:"workspace_root" env:"LIBSCOUT_WORKSPACE"`
}

// Validate expands a leading "~/" and makes the root absolute.
func (c *Config) Validate() error {
	if c.WorkspaceRoot == "" {
		return NewInvalidInputError("workspace_root", "workspace root directory is required")
	}

	if strings.HasPrefix(c.WorkspaceRoot, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.WorkspaceRoot = filepath.Join(home, c.WorkspaceRoot[2:])
	}

	absPath, err := filepath.Abs(c.WorkspaceRoot)
	if err != nil {
		return NewInvalidInputError("workspace_root", fmt.Sprintf("invalid path: %v", err))
	}
	c.WorkspaceRoot = absPath
	return nil
}
