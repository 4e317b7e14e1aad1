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

import (
	"sort"
	"strings"

	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/task"
)

// Stage is an ordered set of features.
type Stage []*features.Feature

// Contains reports whether f itself is a member.
func (s Stage) Contains(f *features.Feature) bool {
	for _, m := range s {
		if m == f {
			return true
		}
	}
	return false
}

// Strings renders every member.
func (s Stage) Strings() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.String()
	}
	return out
}

// String renders the stage as a comma separated list.
func (s Stage) String() string {
	return strings.Join(s.Strings(), ", ")
}

// Key returns a canonical, order independent rendering of the stage.
func (s Stage) Key() string {
	parts := s.Strings()
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// Stages holds the stage collections of one type.
type Stages struct {
	Basic      []Stage
	Additional []Stage
	Combined   []Stage

	// Truncated is set when a collection stopped at the stage limit.
	Truncated bool
}

// Exclusions reports whether two registry features are mutually exclusive.
// mutex.Relation satisfies it.
type Exclusions interface {
	Has(i, j int) bool
}

// Catalog gives combined synthesis access to the registries and basic
// stages of every type.
type Catalog interface {
	Registry(t *task.Type) *features.Registry
	BasicStages(t *task.Type) []Stage
}

func fromIndices(reg *features.Registry, idx []int) Stage {
	s := make(Stage, len(idx))
	for k, i := range idx {
		s[k] = reg.Feature(i)
	}
	return s
}
