// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"missing", NewRepositoryMissingError("/x"), errorCodeRepositoryMissing},
		{"invalid", NewRepositoryInvalidError("/x"), errorCodeRepositoryInvalid},
		{"wrapped sentinel", fmt.Errorf("outer: %w", ErrRepositoryMissing), errorCodeRepositoryMissing},
		{"unknown", errors.New("boom"), errorCodeExtractFailed},
		{"explicit code", WithErrorCode(errors.New("x"), "CUSTOM"), "CUSTOM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Fatalf("ErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithErrorCode_NilPassthrough(t *testing.T) {
	if WithErrorCode(nil, "X") != nil {
		t.Fatalf("expected nil")
	}
}

func TestErrorsIsThroughCode(t *testing.T) {
	err := NewRepositoryMissingError("/repo")
	if !errors.Is(err, ErrRepositoryMissing) {
		t.Fatalf("expected errors.Is to unwrap coded error")
	}
}

func TestSuggestions(t *testing.T) {
	if Suggestions(nil) != nil {
		t.Fatalf("expected nil suggestions for nil error")
	}
	if len(Suggestions(NewRepositoryMissingError("/x"))) == 0 {
		t.Fatalf("expected suggestions for missing repository")
	}
	if Suggestions(errors.New("other")) != nil {
		t.Fatalf("expected no suggestions for generic failure")
	}
}
