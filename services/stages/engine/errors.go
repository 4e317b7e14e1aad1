// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine runs the stage analysis pipeline over a grounded task.
//
// The pipeline builds one feature registry per type, derives the transition
// rules, then runs two phases:
//
//  1. Per type, in parallel: classify features, compute mutex pairs, and
//     synthesize basic and additional stages.
//  2. Per type, in parallel, after every type finished phase 1: synthesize
//     combined stages, which read the basic stages of other types.
//
// The result is immutable and can be queried by the classify and report
// packages.
//
// # Limits
//
// Mutex witness search and stage enumeration are exponential in the worst
// case. Both can be bounded; a bounded run marks the affected types
// incomplete and logs a warning. With strict limits the engine also returns
// ErrAnalysisIncomplete alongside the partial result.
//
// # Thread Safety
//
// An Engine is safe for concurrent use. Each Analyze call owns its state.
package engine

import "errors"

// Sentinel errors for the engine.
var (
	// ErrNilTask is returned when Analyze is called without a task.
	ErrNilTask = errors.New("task must not be nil")

	// ErrAnalysisIncomplete is returned with a partial result when strict
	// limits are enabled and a limit was hit.
	ErrAnalysisIncomplete = errors.New("analysis incomplete: limit reached")

	// ErrCancelled is returned when the context is cancelled during analysis.
	ErrCancelled = errors.New("analysis cancelled")
)
