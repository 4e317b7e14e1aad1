// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mutex computes which features of a type are mutually exclusive.
//
// Only transient and reversible features are considered. The result is a
// symmetric Relation over registry arena indices, queried either directly
// or by (predicate, position) through PartnersOf.
package mutex
