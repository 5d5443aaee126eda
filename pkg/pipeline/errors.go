// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package pipeline

import (
	"errors"
	"fmt"

	"github.com/vulntor/libscout/pkg/corpus"
	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/storage"
)

// Sentinel errors that abort a whole phase.
var (
	// ErrManifestMissing indicates the clone manifest file does not exist.
	ErrManifestMissing = errors.New("clone manifest not found")

	// ErrCorpusMissing indicates the fingerprint corpus file does not exist.
	ErrCorpusMissing = errors.New("fingerprint corpus not found")

	// ErrEmptyCorpus indicates the corpus loaded no usable prefixes.
	ErrEmptyCorpus = corpus.ErrEmptyCorpus

	// ErrTargetRootMissing indicates the decoded targets directory does not exist.
	ErrTargetRootMissing = errors.New("decoded target root not found")

	// ErrOutputExists indicates a complete output is present and --force was not given.
	ErrOutputExists = storage.ErrAlreadyExists
)

// Error codes used by the CLI suggestion system.
const (
	errorCodeManifestMissing   = "MANIFEST_MISSING"
	errorCodeCorpusMissing     = "CORPUS_MISSING"
	errorCodeCorpusEmpty       = "CORPUS_EMPTY"
	errorCodeTargetRootMissing = "TARGET_ROOT_MISSING"
	errorCodeOutputExists      = "OUTPUT_EXISTS"
	errorCodeCancelled         = "CANCELLED"
	errorCodePipelineFailure   = "PIPELINE_FAILURE"
)

// codedError wraps an error with an explicit error code.
type codedError struct {
	error
	code string
}

func (e *codedError) Unwrap() error {
	return e.error
}

func (e *codedError) Code() string {
	return e.code
}

// WithErrorCode wraps err with a specific CLI error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &codedError{error: err, code: code}
}

// ErrorCode resolves a pipeline error into a CLI error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrManifestMissing):
		return errorCodeManifestMissing
	case errors.Is(err, ErrCorpusMissing):
		return errorCodeCorpusMissing
	case errors.Is(err, ErrEmptyCorpus):
		return errorCodeCorpusEmpty
	case errors.Is(err, ErrTargetRootMissing):
		return errorCodeTargetRootMissing
	case errors.Is(err, ErrOutputExists):
		return errorCodeOutputExists
	case isCancelled(err):
		return errorCodeCancelled
	}
	return errorCodePipelineFailure
}

// ExitCode maps pipeline errors to CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ErrorCode(err) {
	case errorCodeManifestMissing,
		errorCodeCorpusMissing,
		errorCodeCorpusEmpty,
		errorCodeTargetRootMissing,
		errorCodeOutputExists:
		return 2
	case errorCodeCancelled:
		return 130
	default:
		return 1
	}
}

// Suggestions provides CLI hints for pipeline errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeManifestMissing:
		return []string{
			"Point at the clone manifest:   libscout corpus build --manifest repos/cloned_repos.csv",
		}
	case errorCodeCorpusMissing:
		return []string{
			"Build the corpus first:        libscout corpus build",
			"Or pass an existing corpus:    libscout match --corpus fingerprints.csv",
		}
	case errorCodeCorpusEmpty:
		return []string{
			"Check that namespace_prefix values look like Lcom/example/",
			"Rebuild the corpus:            libscout corpus build --force",
		}
	case errorCodeTargetRootMissing:
		return []string{
			"Point at the decoded targets:  libscout match --decoded-dir decoded",
		}
	case errorCodeOutputExists:
		return []string{
			"Overwrite the existing output: rerun with --force",
		}
	default:
		if s := fingerprint.Suggestions(err); len(s) > 0 {
			return s
		}
		return []string{
			"Retry with verbose logs:       libscout <command> -v",
		}
	}
}

func newManifestMissingError(path string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrManifestMissing, path), errorCodeManifestMissing)
}

func newCorpusMissingError(path string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrCorpusMissing, path), errorCodeCorpusMissing)
}

func newEmptyCorpusError(path string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrEmptyCorpus, path), errorCodeCorpusEmpty)
}

func newTargetRootMissingError(path string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrTargetRootMissing, path), errorCodeTargetRootMissing)
}

func newOutputExistsError(resource, path string) error {
	return WithErrorCode(storage.NewAlreadyExistsError(resource, path), errorCodeOutputExists)
}
