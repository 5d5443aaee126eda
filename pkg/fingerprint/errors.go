// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"errors"
	"fmt"
)

const (
	errorCodeRepositoryMissing = "REPOSITORY_MISSING"
	errorCodeRepositoryInvalid = "REPOSITORY_INVALID"
	errorCodeExtractFailed     = "EXTRACT_FAILED"
)

var (
	// ErrRepositoryMissing indicates the repository checkout is absent on disk.
	ErrRepositoryMissing = errors.New("repository path not found")
	// ErrRepositoryInvalid indicates the repository path is not a directory.
	ErrRepositoryInvalid = errors.New("repository path is not a directory")
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with an extraction error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// NewRepositoryMissingError formats a missing checkout error.
func NewRepositoryMissingError(path string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrRepositoryMissing, path), errorCodeRepositoryMissing)
}

// NewRepositoryInvalidError formats a non-directory checkout error.
func NewRepositoryInvalidError(path string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrRepositoryInvalid, path), errorCodeRepositoryInvalid)
}

// ErrorCode resolves an error to its extraction error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrRepositoryMissing):
		return errorCodeRepositoryMissing
	case errors.Is(err, ErrRepositoryInvalid):
		return errorCodeRepositoryInvalid
	default:
		return errorCodeExtractFailed
	}
}

// Suggestions provides CLI hints for extraction errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeRepositoryMissing:
		return []string{
			"Check the local_path column of the clone manifest",
			"Point relative paths at the clone root:  --repos-dir <path>",
		}
	case errorCodeRepositoryInvalid:
		return []string{
			"local_path must be a directory containing the cloned repository",
		}
	default:
		return nil
	}
}
