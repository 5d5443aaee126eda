// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vulntor/libscout/pkg/fingerprint"
	"github.com/vulntor/libscout/pkg/storage"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		exit int
	}{
		{"nil", nil, "", 0},
		{"manifest", newManifestMissingError("m.csv"), "MANIFEST_MISSING", 2},
		{"corpus", newCorpusMissingError("c.csv"), "CORPUS_MISSING", 2},
		{"empty corpus", newEmptyCorpusError("c.csv"), "CORPUS_EMPTY", 2},
		{"target root", newTargetRootMissingError("decoded"), "TARGET_ROOT_MISSING", 2},
		{"exists", newOutputExistsError("corpus", "c.csv"), "OUTPUT_EXISTS", 2},
		{"bare sentinel", fmt.Errorf("wrap: %w", ErrCorpusMissing), "CORPUS_MISSING", 2},
		{"cancelled", context.Canceled, "CANCELLED", 130},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), "CANCELLED", 130},
		{"other", errors.New("disk full"), "PIPELINE_FAILURE", 1},
		{"explicit", WithErrorCode(errors.New("x"), "CUSTOM"), "CUSTOM", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.exit, ExitCode(tt.err))
		})
	}
}

func TestSuggestions(t *testing.T) {
	assert.Nil(t, Suggestions(nil))
	assert.NotEmpty(t, Suggestions(newOutputExistsError("corpus", "x")))
	assert.Contains(t, Suggestions(fingerprint.NewRepositoryMissingError("/r"))[0], "local_path")
	assert.Contains(t, Suggestions(errors.New("boom"))[0], "-v")
	assert.Nil(t, WithErrorCode(nil, "X"))
}

func TestOutputExistsIsStorageConflict(t *testing.T) {
	err := newOutputExistsError("corpus", "corpus/fingerprints.csv")
	assert.ErrorIs(t, err, ErrOutputExists)
	assert.True(t, storage.IsAlreadyExists(err))
	assert.Equal(t, "corpus already exists: corpus/fingerprints.csv", err.Error())
}
