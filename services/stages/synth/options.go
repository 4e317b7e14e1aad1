// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package synth

import "log/slog"

// Options configures a Synthesizer.
type Options struct {
	// MaxStages caps every stage collection of a type. Zero means unlimited.
	MaxStages int

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Options)

// WithMaxStages caps every stage collection.
func WithMaxStages(n int) Option {
	return func(o *Options) {
		o.MaxStages = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
