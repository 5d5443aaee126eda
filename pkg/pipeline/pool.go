// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package pipeline

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

type unitFunc func(ctx context.Context, unit string) UnitResult

// runUnits runs fn over units with at most workers in flight. A failing unit
// never cancels its siblings. Units not yet started when ctx is cancelled are
// reported as skipped. Results are returned in unit order.
func (s *Service) runUnits(ctx context.Context, st *Stats, units []string, fn unitFunc) []UnitResult {
	results := make([]UnitResult, len(units))
	st.Total = len(units)

	workers := s.opts.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(i int, r UnitResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		st.record(r)
		done++
		if r.Status == StatusFailed {
			s.logger.Warn().
				Str("phase", st.Phase).
				Str("unit", r.Unit).
				Err(r.Err).
				Msg("unit failed")
		}
		if s.opts.LogEvery > 0 && done%s.opts.LogEvery == 0 {
			s.logger.Info().
				Str("phase", st.Phase).
				Int("done", done).
				Int("total", len(units)).
				Int("rows", st.Rows).
				Msg("progress")
		}
		s.emit(ProgressEvent{
			RunID:  st.RunID,
			Phase:  st.Phase,
			Unit:   r.Unit,
			Status: string(r.Status),
			Done:   done,
			Total:  len(units),
			Rows:   r.Rows,
		})
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, unit := range units {
		if ctx.Err() != nil {
			finish(i, UnitResult{Unit: unit, Status: StatusSkipped})
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				finish(i, UnitResult{Unit: unit, Status: StatusSkipped})
				return nil
			}
			r := fn(ctx, unit)
			r.Unit = unit
			if r.Err != nil && isCancelled(r.Err) {
				r.Status = StatusSkipped
			}
			finish(i, r)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func failed(err error) UnitResult {
	return UnitResult{Status: StatusFailed, Err: err}
}
