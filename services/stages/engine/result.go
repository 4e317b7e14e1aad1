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
	"time"

	"github.com/AleutianAI/planstages/services/stages/classify"
	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/mutex"
	"github.com/AleutianAI/planstages/services/stages/synth"
	"github.com/AleutianAI/planstages/services/stages/task"
)

// TypeResult holds the analysis of one type.
type TypeResult struct {
	Type     *task.Type
	Registry *features.Registry
	Mutex    *mutex.Relation
	Stages   synth.Stages

	// Incomplete is set when the mutex search budget or the stage limit
	// was hit for this type.
	Incomplete bool
}

// Result is the outcome of one Analyze call.
type Result struct {
	// RunID identifies the run in logs and reports.
	RunID string

	Task *task.Task

	// Types is indexed like Task.Types.
	Types []*TypeResult

	// Pool owns every feature created for combined stages.
	Pool *features.Pool

	Duration time.Duration

	// Incomplete is set when any type is incomplete.
	Incomplete bool
}

func (r *Result) typeResult(t *task.Type) *TypeResult {
	if t == nil || t.Index < 0 || t.Index >= len(r.Types) || r.Types[t.Index].Type != t {
		return nil
	}
	return r.Types[t.Index]
}

// Registry returns the feature registry of t, or nil.
func (r *Result) Registry(t *task.Type) *features.Registry {
	if tr := r.typeResult(t); tr != nil {
		return tr.Registry
	}
	return nil
}

// Relation returns the mutex relation of t, or nil.
func (r *Result) Relation(t *task.Type) *mutex.Relation {
	if tr := r.typeResult(t); tr != nil {
		return tr.Mutex
	}
	return nil
}

// Stages returns the stage collections of t, or nil.
func (r *Result) Stages(t *task.Type) *synth.Stages {
	if tr := r.typeResult(t); tr != nil {
		return &tr.Stages
	}
	return nil
}

// BasicStages returns the basic stages of t.
func (r *Result) BasicStages(t *task.Type) []synth.Stage {
	if tr := r.typeResult(t); tr != nil {
		return tr.Stages.Basic
	}
	return nil
}

// IncompleteTypes returns the names of types whose analysis hit a limit.
func (r *Result) IncompleteTypes() []string {
	var out []string
	for _, tr := range r.Types {
		if tr.Incomplete {
			out = append(out, tr.Type.Name)
		}
	}
	return out
}

// Classifier returns a classifier over this result.
func (r *Result) Classifier() *classify.Classifier {
	return classify.New(r, r.Task)
}
