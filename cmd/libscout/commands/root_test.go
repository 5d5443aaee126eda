// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vulntor/libscout/cmd/libscout/internal/format"
	"github.com/vulntor/libscout/pkg/pipeline"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newFixture lays out one cloned repository with its manifest and two
// decoded targets, and returns the common path flags.
func newFixture(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "repos/github.com/square/okhttp/okhttp/src/main/java/okhttp3/Call.java", "package okhttp3;\n\npublic interface Call {}\n")
	writeFile(t, root, "repos/cloned_repos.csv", strings.Join([]string{
		"host,repo_path,url,local_path,status,message",
		"github.com,square/okhttp,https://github.com/square/okhttp,,ok,",
	}, "\n")+"\n")
	writeFile(t, root, "decoded/app-1/smali/okhttp3/Call.smali", ".class public interface abstract Lokhttp3/Call;\n")
	writeFile(t, root, "decoded/app-1/smali/okhttp3/internal/Util.smali", ".class public final Lokhttp3/internal/Util;\n")
	writeFile(t, root, "decoded/app-2/smali/com/acme/Main.smali", ".class public Lcom/acme/Main;\n")

	flags := []string{
		"--workspace-dir", filepath.Join(root, "ws"),
		"--manifest", filepath.Join(root, "repos", "cloned_repos.csv"),
		"--repos-dir", filepath.Join(root, "repos"),
		"--decoded-dir", filepath.Join(root, "decoded"),
		"--no-color",
	}
	return root, flags
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunThenShowReport(t *testing.T) {
	root, flags := newFixture(t)

	stdout, _, err := execute(t, append([]string{"run", "-o", "json"}, flags...)...)
	require.NoError(t, err)

	var stats []pipeline.Stats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	require.Len(t, stats, 4)

	_, err = os.Stat(filepath.Join(root, "ws", "corpus", "fingerprints.csv"))
	require.NoError(t, err)

	stdout, _, err = execute(t, append([]string{"report", "show", "app-1", "-o", "json"}, flags...)...)
	require.NoError(t, err)

	var rows []format.SummaryRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "github.com/square/okhttp", rows[0].LibraryKey)
	require.Equal(t, "Lokhttp3/", rows[0].Prefix)
	require.Equal(t, 2, rows[0].ClassesMatched)

	stdout, _, err = execute(t, append([]string{"report", "show", "app-1", "--raw"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, stdout, "Lokhttp3/internal/Util;")

	stdout, _, err = execute(t, append([]string{"report", "show", "app-2"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, stdout, "No libraries detected")
}

func TestCorpusBuildExistingOutput(t *testing.T) {
	_, flags := newFixture(t)

	_, _, err := execute(t, append([]string{"corpus", "build", "-q"}, flags...)...)
	require.NoError(t, err)

	_, stderr, err := execute(t, append([]string{"corpus", "build"}, flags...)...)
	require.ErrorIs(t, err, pipeline.ErrOutputExists)
	require.True(t, IsReported(err))
	require.Equal(t, 2, pipeline.ExitCode(err))
	require.Contains(t, stderr, "--force")

	_, _, err = execute(t, append([]string{"corpus", "build", "--force", "-q"}, flags...)...)
	require.NoError(t, err)
}

func TestCorpusBuildMissingManifest(t *testing.T) {
	root, flags := newFixture(t)
	args := append([]string{"corpus", "build"}, flags...)
	args = append(args, "--manifest", filepath.Join(root, "missing.csv"))

	_, _, err := execute(t, args...)
	require.ErrorIs(t, err, pipeline.ErrManifestMissing)
	require.Equal(t, 2, pipeline.ExitCode(err))
}

func TestMatchWithoutCorpus(t *testing.T) {
	_, flags := newFixture(t)

	_, _, err := execute(t, append([]string{"match", "-q"}, flags...)...)
	require.ErrorIs(t, err, pipeline.ErrCorpusMissing)
}

func TestNoWorkspaceRequiresOutputs(t *testing.T) {
	_, flags := newFixture(t)

	_, _, err := execute(t, append([]string{"index", "--no-workspace", "-q"}, flags...)...)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--corpus")
}

func TestConfigFileLayer(t *testing.T) {
	root, flags := newFixture(t)
	configPath := filepath.Join(root, "libscout.yaml")
	writeFile(t, root, "libscout.yaml", "pipeline:\n  limit_targets: 1\n")

	stdout, _, err := execute(t, append([]string{"index", "-o", "json", "--config", configPath}, flags...)...)
	require.NoError(t, err)

	var stats []pipeline.Stats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	require.Len(t, stats, 1)
	require.Equal(t, 1, stats[0].Total)

	_, _, err = execute(t, append([]string{"index", "--config", filepath.Join(root, "absent.yaml")}, flags...)...)
	require.Error(t, err, "an explicit config file must exist")
}

func TestInvalidOutputMode(t *testing.T) {
	_, _, err := execute(t, "version", "-o", "xml")
	require.Error(t, err)
	require.False(t, IsReported(err))
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version", "--no-workspace")
	require.NoError(t, err)
	require.Contains(t, stdout, "Version:")

	stdout, _, err = execute(t, "version", "--no-workspace", "-o", "json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	require.Contains(t, info, "goVersion")
}
