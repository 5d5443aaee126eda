// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulntor/libscout/pkg/pipeline"
)

var (
	phaseStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")) // Green

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")) // Gray
)

// ProgressPrinter writes one line per progress event. Failed and empty
// units and phase completions are always shown; other units only when
// Verbose is set.
type ProgressPrinter struct {
	w       io.Writer
	color   bool
	verbose bool
	mu      sync.Mutex
}

// NewProgressPrinter creates a printer writing to w.
func NewProgressPrinter(w io.Writer, color, verbose bool) *ProgressPrinter {
	return &ProgressPrinter{w: w, color: color, verbose: verbose}
}

// OnEvent implements pipeline.ProgressSink.
func (p *ProgressPrinter) OnEvent(ev pipeline.ProgressEvent) {
	if ev.Unit == "" && ev.Status != "completed" {
		return
	}

	var style lipgloss.Style
	switch pipeline.Status(ev.Status) {
	case pipeline.StatusFailed:
		style = failStyle
	case pipeline.StatusNoClasses, pipeline.StatusSkipped:
		style = warnStyle
	case pipeline.StatusOK:
		if !p.verbose {
			return
		}
		style = okStyle
	case pipeline.StatusExists:
		if !p.verbose {
			return
		}
		style = dimStyle
	default:
		style = okStyle
	}

	counter := fmt.Sprintf("%d/%d", ev.Done, ev.Total)
	unit := ev.Unit
	if unit == "" {
		unit = fmt.Sprintf("%d rows", ev.Rows)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "%s %s %s %s\n",
		p.render(phaseStyle, fmt.Sprintf("[%s]", ev.Phase)),
		p.render(dimStyle, counter),
		p.render(style, ev.Status),
		unit,
	)
}

func (p *ProgressPrinter) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}
