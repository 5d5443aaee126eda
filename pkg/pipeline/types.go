// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package pipeline

import (
	"time"

	"github.com/vulntor/libscout/pkg/fingerprint"
)

// Phase names.
const (
	PhaseCorpus    = "corpus"
	PhaseIndex     = "index"
	PhaseMatch     = "match"
	PhaseSummarize = "summarize"
)

// Status is the outcome of one unit of work.
type Status string

const (
	// StatusOK means the unit produced fresh output.
	StatusOK Status = "ok"
	// StatusExists means a complete earlier output was reused.
	StatusExists Status = "exists"
	// StatusNoClasses means the target has no matchable classes.
	StatusNoClasses Status = "no_classes"
	// StatusFailed means the unit failed; siblings were unaffected.
	StatusFailed Status = "failed"
	// StatusSkipped means the unit was not started because the run was cancelled.
	StatusSkipped Status = "skipped"
)

// Paths locates the inputs and outputs of every phase.
type Paths struct {
	Manifest      string
	ReposDir      string
	DecodedDir    string
	CorpusFile    string
	ClassIndexDir string
	ReportsDir    string
	SummariesDir  string
}

// Options tune a pipeline run.
type Options struct {
	Workers      int
	Force        bool
	Reindex      bool
	LimitRepos   int
	LimitTargets int
	LogEvery     int

	Extract fingerprint.Options

	IndexDirPatterns []string
	IndexHeadLines   int
	IndexCacheSize   int
}

// DefaultOptions mirrors the command-line defaults.
func DefaultOptions() Options {
	return Options{
		Workers:  4,
		LogEvery: 20,
		Extract:  fingerprint.DefaultOptions(),
	}
}

// UnitResult is the outcome of one repository, target or report.
type UnitResult struct {
	Unit   string `json:"unit" yaml:"unit"`
	Status Status `json:"status" yaml:"status"`
	Rows   int    `json:"rows" yaml:"rows"`
	Err    error  `json:"-" yaml:"-"`
}

// Failure is a failed unit as reported to the user.
type Failure struct {
	Unit  string `json:"unit" yaml:"unit"`
	Error string `json:"error" yaml:"error"`
}

// Stats are the final counts of one phase.
type Stats struct {
	RunID     string             `json:"run_id" yaml:"run_id"`
	Phase     string             `json:"phase" yaml:"phase"`
	Output    string             `json:"output" yaml:"output"`
	Total     int                `json:"total" yaml:"total"`
	Processed int                `json:"processed" yaml:"processed"`
	OK        int                `json:"ok" yaml:"ok"`
	Exists    int                `json:"exists" yaml:"exists"`
	NoClasses int                `json:"no_classes" yaml:"no_classes"`
	Failed    int                `json:"failed" yaml:"failed"`
	Skipped   int                `json:"skipped" yaml:"skipped"`
	Rows      int                `json:"rows" yaml:"rows"`
	Extract   *fingerprint.Stats `json:"extract,omitempty" yaml:"extract,omitempty"`
	Failures  []Failure          `json:"failures,omitempty" yaml:"failures,omitempty"`
	StartedAt time.Time          `json:"started_at" yaml:"started_at"`
	Duration  time.Duration      `json:"duration" yaml:"duration"`
}

func (s *Stats) record(r UnitResult) {
	switch r.Status {
	case StatusSkipped:
		s.Skipped++
		return
	case StatusOK:
		s.OK++
	case StatusExists:
		s.Exists++
	case StatusNoClasses:
		s.NoClasses++
	case StatusFailed:
		s.Failed++
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{Unit: r.Unit, Error: msg})
	}
	s.Processed++
	s.Rows += r.Rows
}

// ProgressSink receives progress notifications.
type ProgressSink interface {
	OnEvent(ProgressEvent)
}

// ProgressEvent reports one unit finishing, or a phase starting or ending.
type ProgressEvent struct {
	RunID     string
	Phase     string
	Unit      string
	Status    string
	Done      int
	Total     int
	Rows      int
	Message   string
	Timestamp time.Time
}
