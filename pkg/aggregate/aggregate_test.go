// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package aggregate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/libscout/pkg/classindex"
	"github.com/vulntor/libscout/pkg/corpus"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/match"
	"github.com/vulntor/libscout/pkg/namespace"
)

var (
	repoA = fingerprint.Repository{Host: "github.com", Path: "acme/net", URL: "https://github.com/acme/net"}
	repoB = fingerprint.Repository{Host: "github.com", Path: "other/util", URL: "https://github.com/other/util"}
)

func rec(prefix string, kind fingerprint.EvidenceKind, repo fingerprint.Repository, desc, file string) match.Record {
	return match.Record{
		TargetID:    "app-1",
		Fingerprint: fingerprint.Fingerprint{Prefix: namespace.Prefix(prefix), Kind: kind, Repo: repo},
		Class:       classindex.Class{Descriptor: namespace.Descriptor(desc), File: file},
	}
}

func TestSummarize_EndToEnd(t *testing.T) {
	c := corpus.New()
	c.Add(fingerprint.Fingerprint{Prefix: "Lcom/example/net/", Kind: fingerprint.KindSourcePackage, Repo: repoA})

	records := match.NewEngine(c).Match("app-1", []classindex.Class{
		{Descriptor: "Lcom/example/net/http/Client;", File: "f1"},
		{Descriptor: "Lcom/example/net/http/Server;", File: "f2"},
	})
	require.Len(t, records, 2)

	got := Summarize("app-1", records)
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "app-1", s.TargetID)
	assert.Equal(t, repoA, s.Repo)
	assert.Equal(t, "acme/net", s.LibraryKey)
	assert.Equal(t, "net", s.LibraryName)
	assert.Equal(t, namespace.Prefix("Lcom/example/net/"), s.Prefix)
	assert.Equal(t, 2, s.ClassesMatched)
	assert.Equal(t, "source_package_declaration", s.KindsString())
	assert.Equal(t, classindex.Class{Descriptor: "Lcom/example/net/http/Client;", File: "f1"}, s.Sample)
	assert.Equal(t, 3, s.Depth())
}

func TestSummarize_CountsDistinctClassFilePairs(t *testing.T) {
	records := []match.Record{
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "Lcom/foo/A;", "a"),
		rec("Lcom/foo/", fingerprint.KindBuildGroup, repoA, "Lcom/foo/A;", "a"),
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "Lcom/foo/A;", "a2"),
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "Lcom/foo/B;", "b"),
	}
	got := Summarize("app-1", records)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ClassesMatched)
	assert.Equal(t, "build_descriptor_group|source_package_declaration", got[0].KindsString())
}

func TestSummarize_GroupsPerRepositoryAndPrefix(t *testing.T) {
	records := []match.Record{
		rec("Lcom/util/", fingerprint.KindSourcePackage, repoB, "Lcom/util/S;", "s"),
		rec("Lcom/util/", fingerprint.KindSourcePackage, repoA, "Lcom/util/S;", "s"),
		rec("Lcom/", fingerprint.KindBuildArtifactRoot, repoA, "Lcom/util/S;", "s"),
	}
	got := Summarize("app-1", records)
	require.Len(t, got, 3)
	assert.Equal(t, repoB.Path, got[0].Repo.Path, "groups keep first-seen order")
	assert.Equal(t, repoA.Path, got[1].Repo.Path)
	assert.Equal(t, namespace.Prefix("Lcom/"), got[2].Prefix)
	assert.Equal(t, 1, got[2].Depth())
}

func TestSummarize_SampleSkipsClasslessRecords(t *testing.T) {
	records := []match.Record{
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "", ""),
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "Lcom/foo/Z;", "z"),
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "Lcom/foo/A;", "a"),
	}
	got := Summarize("app-1", records)
	require.Len(t, got, 1)
	assert.Equal(t, namespace.Descriptor("Lcom/foo/Z;"), got[0].Sample.Descriptor)
	assert.Equal(t, 2, got[0].ClassesMatched)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize("app-1", nil))
}

func TestCodec_RoundTrip(t *testing.T) {
	in := Summarize("app-1", []match.Record{
		rec("Lcom/foo/", fingerprint.KindSourcePackage, repoA, "Lcom/foo/A;", "smali/com/foo/A.smali"),
		rec("Lcom/foo/", fingerprint.KindLicenseBundleEntry, repoA, "Lcom/foo/B;", "smali/com/foo/B.smali"),
	})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, "app-1,github.com,acme/net,https://github.com/acme/net,acme/net,net,Lcom/foo/,source_package_declaration|third_party_license_bundle_entry,2,Lcom/foo/A;,smali/com/foo/A.smali", lines[1])

	out, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRead_LegacyAndMalformedCount(t *testing.T) {
	legacy := "app_sha256,repo_host,repo_path,repo_url,libarary_key,library_name,smali_prefix,fingerprint_types,classes_matched,sample_class,sample_class_file\n" +
		"abc,github.com,a/b,,a/b,b,La/,java_package|maven_group_prefix,seven,La/X;,x\n"
	out, err := Read(strings.NewReader(legacy))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "abc", out[0].TargetID)
	assert.Equal(t, []fingerprint.EvidenceKind{fingerprint.KindSourcePackage, fingerprint.KindBuildGroup}, out[0].Kinds)
	assert.Zero(t, out[0].ClassesMatched)

	out, err = Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRead_SkipsMalformedRecord(t *testing.T) {
	data := strings.Join(Header, ",") + "\n" +
		"app-1,github.com,a/b,,a/b,b,La/,source_package_declaration,2,La/X;,x.smali\n" +
		"app-1,github.com,c/d,,c/d,d,Lc/,source_package_declaration,1,Lc/\"Y;,y.smali\n" +
		"app-1,github.com,e/f,,e/f,f,Le/,build_descriptor_group,3,Le/Z;,z.smali\n"

	out, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a/b", out[0].LibraryKey)
	assert.Equal(t, 2, out[0].ClassesMatched)
	assert.Equal(t, "e/f", out[1].LibraryKey)
	assert.Equal(t, 3, out[1].ClassesMatched)
}
