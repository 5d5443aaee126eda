// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ProcessesNewTargets(t *testing.T) {
	fx := newFixture(t)
	svc := newService(t, fx.paths)
	_, err := svc.BuildCorpus(context.Background())
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		batches int
	)
	batchDone := make(chan struct{}, 8)
	w, err := NewWatcher(svc, 50*time.Millisecond, func(_ []*Stats, err error) {
		assert.NoError(t, err)
		mu.Lock()
		batches++
		mu.Unlock()
		batchDone <- struct{}{}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	select {
	case <-batchDone:
	case <-time.After(5 * time.Second):
		t.Fatal("initial batch did not run")
	}
	assert.FileExists(t, svc.ReportPath("app-1"))

	writeFile(t, fx.root, "decoded/app-4/smali/com/util/Late.smali", ".class Lcom/util/Late;\n")

	require.Eventually(t, func() bool {
		return fileExists(svc.SummaryPath("app-4"))
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, batches, 2)
}

func TestWatcher_MissingRoot(t *testing.T) {
	fx := newFixture(t)
	fx.paths.DecodedDir = filepath.Join(fx.root, "nowhere")
	w, err := NewWatcher(newService(t, fx.paths), 0, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	err = w.Start(context.Background())
	assert.ErrorIs(t, err, ErrTargetRootMissing)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
