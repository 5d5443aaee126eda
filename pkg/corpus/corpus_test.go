// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/namespace"
)

var (
	repoA = fingerprint.Repository{Host: "github.com", Path: "acme/net", URL: "https://github.com/acme/net"}
	repoB = fingerprint.Repository{Host: "github.com", Path: "other/util", URL: "https://github.com/other/util"}
)

func fp(prefix string, kind fingerprint.EvidenceKind, repo fingerprint.Repository) fingerprint.Fingerprint {
	return fingerprint.Fingerprint{Prefix: namespace.Prefix(prefix), Kind: kind, SourcePath: "src/x", Repo: repo}
}

func TestCorpus_SharedPrefixKeepsAllRepositories(t *testing.T) {
	c := New()
	assert.Equal(t, 2, c.AddAll([]fingerprint.Fingerprint{
		fp("Lcom/util/", fingerprint.KindSourcePackage, repoA),
		fp("Lcom/util/", fingerprint.KindSourcePackage, repoB),
	}))

	got := c.Lookup("Lcom/util/")
	require.Len(t, got, 2)
	assert.Equal(t, repoA.Path, got[0].Repo.Path)
	assert.Equal(t, repoB.Path, got[1].Repo.Path)
	assert.Equal(t, 1, c.PrefixCount())
	assert.Equal(t, 2, c.Len())
}

func TestCorpus_Dedup(t *testing.T) {
	c := New()
	assert.True(t, c.Add(fp("Lcom/util/", fingerprint.KindSourcePackage, repoA)))
	assert.False(t, c.Add(fp("Lcom/util/", fingerprint.KindSourcePackage, repoA)))
	assert.True(t, c.Add(fp("Lcom/util/", fingerprint.KindBuildGroup, repoA)), "different kind is distinct provenance")
	assert.False(t, c.Add(fp("com/util/", fingerprint.KindBuildGroup, repoB)), "non-canonical prefix rejected")
	assert.Equal(t, 2, c.Len())
	assert.Empty(t, c.Lookup("Lcom/missing/"))
}

func TestCorpus_FingerprintsIsACopy(t *testing.T) {
	c := New()
	c.Add(fp("Lcom/util/", fingerprint.KindSourcePackage, repoA))
	all := c.Fingerprints()
	all[0].Prefix = "Lchanged/"
	assert.Equal(t, namespace.Prefix("Lcom/util/"), c.Fingerprints()[0].Prefix)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	in := []fingerprint.Fingerprint{
		fp("Lcom/example/net/", fingerprint.KindSourcePackage, repoA),
		fp("Lnet/", fingerprint.KindBuildArtifactRoot, repoA),
		fp("Lcom/util/", fingerprint.KindLicenseBundleEntry, repoB),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	first, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, strings.Join(Header, ","), first)
	assert.Contains(t, buf.String(), "github.com,acme/net,https://github.com/acme/net,acme/net,net,Lcom/example/net/,source_package_declaration,src/x")

	c, st, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Rows)
	assert.Zero(t, st.Skipped)
	assert.Equal(t, in, c.Fingerprints())
}

func TestRead_LegacyHeaderAndKinds(t *testing.T) {
	legacy := `repo_host,repo_path,repo_url,libarary_key,library_name,smali_prefix,fingerprint_type,repo_file_path
github.com,acme/net,https://github.com/acme/net,acme/net,net,Lcom/example/,java_package,src/A.java
github.com,acme/net,https://github.com/acme/net,acme/net,net,Lcom/example/,gradle_group_prefix,build.gradle
github.com,acme/net,https://github.com/acme/net,acme/net,net,com.example,java_package,src/B.java
github.com,acme/net,https://github.com/acme/net,acme/net,net,Lorg/x/,mystery,src/C.java
`
	c, st, err := Read(strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, 2, st.Skipped)

	got := c.Lookup("Lcom/example/")
	require.Len(t, got, 2)
	assert.Equal(t, fingerprint.KindSourcePackage, got[0].Kind)
	assert.Equal(t, fingerprint.KindBuildGroup, got[1].Kind)
}

func TestRead_SkipsMalformedRecord(t *testing.T) {
	data := strings.Join(Header, ",") + "\n" +
		"github.com,acme/net,https://github.com/acme/net,acme/net,net,Lcom/example/,source_package_declaration,src/A.java\n" +
		"github.com,acme/net,https://github.com/acme/net,acme/net,net,Lcom/weird/,source_package_declaration,src/we\"ird.java\n" +
		"github.com,other/util,https://github.com/other/util,other/util,util,Lorg/util/,build_descriptor_group,build.gradle\n"

	c, st, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Rows)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.Lookup("Lcom/example/"), 1)
	assert.Len(t, c.Lookup("Lorg/util/"), 1)
	assert.Empty(t, c.Lookup("Lcom/weird/"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadFile(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte(strings.Join(Header, ",")+"\n"), 0o644))
	_, _, err = LoadFile(empty)
	require.ErrorIs(t, err, ErrEmptyCorpus)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []fingerprint.Fingerprint{fp("Lcom/util/", fingerprint.KindSourcePackage, repoA)}))
	good := filepath.Join(dir, "corpus.csv")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0o644))
	c, _, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}
