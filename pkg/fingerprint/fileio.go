// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"bufio"
	"os"
	"strings"
)

// readText returns the file contents when the file is readable and no larger
// than maxBytes.
func readText(path string, maxBytes int64) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxBytes {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.ToValidUTF8(string(data), ""), true
}

// readHead returns up to n lines from the start of the file. Files larger
// than maxBytes are skipped entirely.
func readHead(path string, n int, maxBytes int64) ([]string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	if info, err := f.Stat(); err != nil || info.Size() > maxBytes {
		return nil, false
	}

	lines := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for len(lines) < n && sc.Scan() {
		lines = append(lines, strings.ToValidUTF8(sc.Text(), ""))
	}
	if err := sc.Err(); err != nil && len(lines) == 0 {
		return nil, false
	}
	return lines, true
}
