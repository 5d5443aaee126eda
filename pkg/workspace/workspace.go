// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package workspace lays out the directory that holds every pipeline
// artifact and guards it against concurrent runs.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"
)

// Subdirectories of a prepared workspace.
const (
	CorpusDir     = "corpus"
	ClassIndexDir = "classes_index"
	ReportsDir    = "reports"
	SummariesDir  = "summaries"
	LogsDir       = "logs"

	// CorpusFileName is the corpus file inside CorpusDir.
	CorpusFileName = "fingerprints.csv"
	lockFileName   = ".libscout.lock"
)

// EnvWorkspace overrides the default workspace root.
const EnvWorkspace = "LIBSCOUT_WORKSPACE"

var defaultSubdirs = []string{
	CorpusDir,
	ClassIndexDir,
	ReportsDir,
	SummariesDir,
	LogsDir,
}

// ErrLocked is returned by Lock when another run holds the workspace.
var ErrLocked = errors.New("workspace is locked by another run")

var (
	userHomeDir = os.UserHomeDir
	getGOOS     = func() string { return runtime.GOOS }
)

// Prepare ensures the workspace root and required subdirectories exist.
// It returns the absolute path to the workspace root that was prepared.
func Prepare(root string) (string, error) {
	if root == "" {
		var err error
		root, err = defaultRoot()
		if err != nil {
			return "", err
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}

	if err := os.MkdirAll(absRoot, 0o750); err != nil {
		return "", fmt.Errorf("create workspace root: %w", err)
	}

	for _, sub := range defaultSubdirs {
		subPath := filepath.Join(absRoot, sub)
		if err := os.MkdirAll(subPath, 0o750); err != nil {
			return "", fmt.Errorf("create workspace subdir %q: %w", sub, err)
		}
	}

	return absRoot, nil
}

// Layout resolves artifact locations under a workspace root.
type Layout struct {
	Root string
}

// CorpusFile is the default corpus location.
func (l Layout) CorpusFile() string {
	return filepath.Join(l.Root, CorpusDir, CorpusFileName)
}

// ClassIndexDir holds the per-target class caches.
func (l Layout) ClassIndexDir() string {
	return filepath.Join(l.Root, ClassIndexDir)
}

// ReportsDir holds the raw match reports.
func (l Layout) ReportsDir() string {
	return filepath.Join(l.Root, ReportsDir)
}

// SummariesDir holds the summary reports.
func (l Layout) SummariesDir() string {
	return filepath.Join(l.Root, SummariesDir)
}

// LogsDir holds run logs.
func (l Layout) LogsDir() string {
	return filepath.Join(l.Root, LogsDir)
}

// Lock takes the workspace run lock without waiting. The caller must
// Unlock the returned lock when the run ends.
func Lock(root string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(root, lockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, root)
	}
	return fl, nil
}

func defaultRoot() (string, error) {
	if dir := os.Getenv(EnvWorkspace); dir != "" {
		return dir, nil
	}

	switch getGOOS() {
	case "darwin":
		home, err := userHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "LibScout"), nil
	case "windows":
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "LibScout"), nil
		}
		home, err := userHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, "AppData", "Roaming", "LibScout"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "libscout"), nil
		}
		home, err := userHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if home == "" {
			return "", errors.New("cannot determine workspace directory")
		}
		return filepath.Join(home, ".local", "share", "libscout"), nil
	}
}

// Subdirectories returns the list of default workspace subdirectories.
func Subdirectories() []string {
	subs := make([]string, len(defaultSubdirs))
	copy(subs, defaultSubdirs)
	return subs
}
