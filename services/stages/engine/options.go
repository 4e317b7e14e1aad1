// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"log/slog"
	"runtime"
)

// Options configures an Engine.
type Options struct {
	// WorkerCount bounds how many types are analysed at once.
	// Default: runtime.NumCPU()
	WorkerCount int

	// MaxStages caps each stage collection of each type. Zero means
	// unlimited.
	MaxStages int

	// MaxSearchSteps bounds the mutex witness search of each type. Zero
	// means unlimited.
	MaxSearchSteps int

	// StrictLimits makes Analyze return ErrAnalysisIncomplete when any
	// limit was hit.
	StrictLimits bool

	// Logger receives pipeline logs. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		WorkerCount: runtime.NumCPU(),
	}
}

// Option is a functional option for configuring an Engine.
type Option func(*Options)

// WithWorkerCount sets the number of types analysed in parallel.
func WithWorkerCount(n int) Option {
	return func(o *Options) {
		o.WorkerCount = n
	}
}

// WithMaxStages caps every stage collection.
func WithMaxStages(n int) Option {
	return func(o *Options) {
		o.MaxStages = n
	}
}

// WithMaxSearchSteps bounds the mutex witness search.
func WithMaxSearchSteps(n int) Option {
	return func(o *Options) {
		o.MaxSearchSteps = n
	}
}

// WithStrictLimits turns hit limits into an error.
func WithStrictLimits(strict bool) Option {
	return func(o *Options) {
		o.StrictLimits = strict
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
