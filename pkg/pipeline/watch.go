// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the decoded root must stay quiet before new
// targets are processed. Decoders write many files per target.
const DefaultDebounce = 2 * time.Second

// Watcher processes new targets as they appear under the decoded root.
// Each batch runs the match and summarize phases; targets that already have
// reports are skipped by those phases, so only new arrivals do real work.
type Watcher struct {
	svc      *Service
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	// mu protects the debounce timer
	mu            sync.Mutex
	debounceTimer *time.Timer

	// batches serialises processing so phases never overlap
	batches chan struct{}
	onBatch func([]*Stats, error)
}

// NewWatcher creates a watcher for svc's decoded root. A zero debounce uses
// DefaultDebounce. onBatch, if set, receives the result of every batch.
func NewWatcher(svc *Service, debounce time.Duration, onBatch func([]*Stats, error)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		svc:      svc,
		watcher:  w,
		debounce: debounce,
		logger:   svc.logger.With().Str("component", "pipeline.watcher").Logger(),
		batches:  make(chan struct{}, 1),
		onBatch:  onBatch,
	}, nil
}

// Start processes the targets already present, then blocks watching for new
// ones until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.svc.paths.DecodedDir
	if _, err := os.Stat(root); err != nil {
		return newTargetRootMissingError(root)
	}
	if err := w.watcher.Add(root); err != nil {
		w.logger.Error().Err(err).Str("dir", root).Msg("Failed to watch decoded root")
		return err
	}

	w.logger.Info().
		Str("dir", root).
		Dur("debounce", w.debounce).
		Msg("Started watching decoded root")

	defer func() {
		w.stopTimer()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching decoded root")
	}()

	w.batches <- struct{}{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.batches:
			stats, err := w.svc.processNew(ctx)
			if err != nil && !isCancelled(err) {
				w.logger.Error().Err(err).Msg("Batch failed")
			}
			if w.onBatch != nil {
				w.onBatch(stats, err)
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			// Targets arrive as creates, or as renames into the root.
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug().
				Str("op", event.Op.String()).
				Str("path", event.Name).
				Msg("Detected decoded root change")
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// schedule queues a batch after the debounce delay, resetting any pending one.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		select {
		case w.batches <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

// processNew runs match then summarize over the current targets.
func (s *Service) processNew(ctx context.Context) ([]*Stats, error) {
	matchStats, err := s.MatchTargets(ctx)
	if err != nil {
		return compact(matchStats), err
	}
	summaryStats, err := s.Summarize(ctx)
	return compact(matchStats, summaryStats), err
}
