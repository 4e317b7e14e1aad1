// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package features builds the per-type feature registries and transition
// graphs that the rest of the stage engine works on.
//
// A feature is a predicate seen from one argument position whose declared
// type owns the registry. For every operator and every parameter of a type,
// Derive records a transition rule listing the features of that parameter
// the operator requires, deletes and adds. The rules induce a directed graph
// over features plus the Unbound node, which Classify uses to assign each
// feature a Class.
//
// # Arenas
//
// Registry features are addressed by index. Rules, sets and mutex relations
// store indices, never pointers. Features produced while combining stages
// are kept in a Pool, an append-only arena that outlives every stage that
// references it.
package features
