// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	manifestPackageRe  = regexp.MustCompile(`package\s*=\s*"([^"]+)"`)
	gradleGroupAssign  = regexp.MustCompile(`^\s*group\s*=\s*["']([^"']+)["']`)
	gradleGroupString  = regexp.MustCompile(`^\s*group\s+["']([^"']+)["']`)
	openTagRe          = regexp.MustCompile(`<([a-zA-Z0-9_.:-]+)>`)
	artifactIDRe       = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	bundleOffsetRe     = regexp.MustCompile(`^\d+:\d+\s+`)
	mavenCoordinatesRe = regexp.MustCompile(`^([a-zA-Z_][\w-]*(?:\.[a-zA-Z_][\w-]*)+):[\w.-]+`)
)

// manifestPackage finds the package attribute of an application manifest.
// It is a textual search, not an XML parse.
func manifestPackage(text string) (string, bool) {
	m := manifestPackageRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// gradleGroup returns the first group assignment in a Groovy or Kotlin build
// script.
func gradleGroup(lines []string) (string, bool) {
	for _, ln := range lines {
		if m := gradleGroupAssign.FindStringSubmatch(ln); m != nil {
			return m[1], true
		}
		if m := gradleGroupString.FindStringSubmatch(ln); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// pomCoordinates runs a shallow paired-tag scan over a POM. Element pairs are
// consumed whole, so coordinates nested in <parent> or <dependencies> are not
// mistaken for the project's own. The root <project> element is descended into.
func pomCoordinates(text string) (groupID, artifactID string) {
	pos := 0
	for pos < len(text) {
		loc := openTagRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		name := text[pos+loc[2] : pos+loc[3]]
		bodyStart := pos + loc[1]
		lower := strings.ToLower(name)

		if strings.HasSuffix(lower, "project") {
			pos = bodyStart
			continue
		}

		closing := "</" + name + ">"
		end := strings.Index(text[bodyStart:], closing)
		if end < 0 {
			pos = bodyStart
			continue
		}
		value := strings.TrimSpace(text[bodyStart : bodyStart+end])
		switch {
		case strings.HasSuffix(lower, "groupid") && groupID == "":
			groupID = value
		case strings.HasSuffix(lower, "artifactid") && artifactID == "":
			artifactID = value
		}
		if groupID != "" && artifactID != "" {
			break
		}
		pos = bodyStart + end + len(closing)
	}
	return groupID, artifactID
}

// validArtifactID reports whether an artifactId can stand as a root namespace.
func validArtifactID(id string) bool {
	return artifactIDRe.MatchString(id)
}

// licenseBundleGroups reads a third-party license metadata bundle and returns
// the group of every entry named by maven coordinates. The bundle is either a
// JSON array of objects with a "name" field or one entry per line, optionally
// prefixed with "offset:length ".
func licenseBundleGroups(text string) []string {
	var names []string

	var entries []map[string]any
	if err := json.Unmarshal([]byte(text), &entries); err == nil {
		for _, e := range entries {
			if name, ok := e["name"].(string); ok {
				names = append(names, name)
			}
		}
	} else {
		for _, ln := range strings.Split(text, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}
			names = append(names, bundleOffsetRe.ReplaceAllString(ln, ""))
		}
	}

	var groups []string
	for _, name := range names {
		if m := mavenCoordinatesRe.FindStringSubmatch(strings.TrimSpace(name)); m != nil {
			groups = append(groups, m[1])
		}
	}
	return groups
}
