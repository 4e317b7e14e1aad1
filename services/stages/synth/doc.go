// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package synth enumerates the stages of each type.
//
// A basic stage is a consistent combination of the dynamic features an
// object can hold at once: all permanent features, a maximal set of
// pairwise non-mutex reversible features, any non-mutex subset of
// transient features and any subset of multiple features. Additional
// stages are the subsets of static and attribute features. Combined stages
// resolve the free slots of basic stage features against the basic stages
// of the slot types, introducing a fresh letter per resolved object.
//
// Basic and additional stages only depend on their own registry and can be
// built for every type in parallel. Combined stages read the basic stages
// of other types and must wait until all of them are complete.
package synth
