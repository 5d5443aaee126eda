// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Masterminds/semver/v3"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of libscout.
	Version = "dev"
	// Commit holds the current version commit of libscout.
	Commit = "none"
	// BuildDate holds the build date of libscout.
	BuildDate = "unknown"
	// StartDate holds the start date of libscout.
	StartDate = time.Now()
)

// Struct returns version information in a structured format.
type Struct struct {
	Version    string `json:"version" yaml:"version"`
	Commit     string `json:"commit" yaml:"commit"`
	BuildDate  string `json:"buildDate" yaml:"buildDate"`
	GoVersion  string `json:"goVersion" yaml:"goVersion"`
	Platform   string `json:"platform" yaml:"platform"`
	Prerelease bool   `json:"prerelease" yaml:"prerelease"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("LibScout %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:    Version,
		Commit:     Commit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Prerelease: IsPrerelease(Version),
	}
}

// IsPrerelease reports whether v is a development build or carries a
// semver prerelease tag.
func IsPrerelease(v string) bool {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return true
	}
	return parsed.Prerelease() != ""
}
