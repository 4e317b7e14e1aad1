// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package task holds the grounded planning model consumed by the stage engine.
//
// A Task is built from a Document (YAML or JSON) that already contains the
// grounded, type-specialised predicates and operators. Parsing domain
// description languages and grounding schemas happen elsewhere; this package
// only resolves names into an index-stable, immutable model.
//
// # Best-effort resolution
//
// References that cannot be resolved (an effect naming an unknown predicate,
// a literal over an object of an unknown type, a binding outside the operator
// parameters) are dropped from the relevant set and counted in Task.Dropped.
// Only structural problems with the document itself (duplicate declarations,
// missing names) are reported as errors.
//
// # Thread Safety
//
// A Task is immutable after Resolve returns and safe for concurrent reads.
package task

import "errors"

// Sentinel errors for task loading.
var (
	// ErrInvalidDocument is returned when the document fails validation or
	// declares the same type or predicate signature twice.
	ErrInvalidDocument = errors.New("invalid task document")

	// ErrNilDocument is returned when Resolve is called with a nil document.
	ErrNilDocument = errors.New("nil task document")
)
