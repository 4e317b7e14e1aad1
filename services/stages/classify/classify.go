// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify locates problem objects within the synthesized stages.
//
// Stage indices are 1-based in the order the stages were synthesized; 0
// means no stage matched.
package classify

import (
	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/mutex"
	"github.com/AleutianAI/planstages/services/stages/synth"
	"github.com/AleutianAI/planstages/services/stages/task"
)

// Catalog exposes the per-type analysis results.
type Catalog interface {
	Registry(t *task.Type) *features.Registry
	Relation(t *task.Type) *mutex.Relation
	Stages(t *task.Type) *synth.Stages
}

// ObjectReport summarises where an object stands.
type ObjectReport struct {
	Object *task.Object

	// Stage is the first combined stage matching the initial state.
	Stage int

	// AdditionalStage is the last additional stage matching the initial
	// state.
	AdditionalStage int

	// GoalStages are the combined stages consistent with the goal.
	GoalStages []int

	// AdditionalGoalStages are the additional stages consistent with the
	// initial statics and the goal attributes.
	AdditionalGoalStages []int

	// GoalAchieved is true when every goal literal naming the object holds
	// initially.
	GoalAchieved bool
}

// bindings maps stage letters to objects.
type bindings map[byte]*task.Object

// Classifier matches objects of a task against a catalog.
//
// Thread Safety: safe for concurrent use; every call keeps its own state.
type Classifier struct {
	cat  Catalog
	task *task.Task
}

// New returns a classifier over the analysed task.
func New(cat Catalog, t *task.Task) *Classifier {
	return &Classifier{cat: cat, task: t}
}

func (c *Classifier) stages(obj *task.Object) *synth.Stages {
	if obj == nil || obj.Type == nil {
		return nil
	}
	return c.cat.Stages(obj.Type)
}

// Object classifies obj against every stage collection.
func (c *Classifier) Object(obj *task.Object) ObjectReport {
	return ObjectReport{
		Object:               obj,
		Stage:                c.CombinedStage(obj),
		AdditionalStage:      c.AdditionalStage(obj),
		GoalStages:           c.GoalStages(obj),
		AdditionalGoalStages: c.AdditionalGoalStages(obj),
		GoalAchieved:         c.GoalAchieved(obj),
	}
}

// All classifies every task object in declaration order.
func (c *Classifier) All() []ObjectReport {
	out := make([]ObjectReport, len(c.task.Objects))
	for i, o := range c.task.Objects {
		out[i] = c.Object(o)
	}
	return out
}

// CombinedStage returns the first combined stage whose features can all be
// instantiated in the initial state with 'x' bound to obj.
func (c *Classifier) CombinedStage(obj *task.Object) int {
	st := c.stages(obj)
	if st == nil {
		return 0
	}
	for i, stage := range st.Combined {
		b := bindings{features.FirstLetter: obj}
		if c.matchState(0, stage, b) {
			return i + 1
		}
	}
	return 0
}

// matchState binds the letters of stage[k:] against initial literals,
// backtracking on failure.
func (c *Classifier) matchState(k int, stage synth.Stage, b bindings) bool {
	if k >= len(stage) {
		return true
	}
	f := stage[k]
	for _, l := range c.task.Init {
		if l.Predicate != f.Predicate() {
			continue
		}
		added, ok := bind(f, l, b)
		if ok && c.matchState(k+1, stage, b) {
			return true
		}
		for _, letter := range added {
			delete(b, letter)
		}
	}
	return false
}

// bind unifies the bound slots of f with the arguments of l. It returns the
// letters it introduced, which the caller must retract if it backtracks.
func bind(f *features.Feature, l task.Literal, b bindings) ([]byte, bool) {
	var added []byte
	for i, arg := range l.Args {
		if !f.Bound(i) {
			continue
		}
		letter := f.Letter(i)
		if cur, ok := b[letter]; ok {
			if cur != arg {
				return added, false
			}
			continue
		}
		b[letter] = arg
		added = append(added, letter)
	}
	return added, true
}

// AdditionalStage returns the last additional stage all of whose features
// hold initially for obj at their distinguished position.
func (c *Classifier) AdditionalStage(obj *task.Object) int {
	st := c.stages(obj)
	if st == nil {
		return 0
	}
	for i := len(st.Additional) - 1; i >= 0; i-- {
		if c.holdsAll(obj, st.Additional[i]) {
			return i + 1
		}
	}
	return 0
}

func (c *Classifier) holdsAll(obj *task.Object, stage synth.Stage) bool {
	for _, f := range stage {
		found := false
		for _, l := range c.task.Init {
			if l.Predicate == f.Predicate() && l.Args[f.Position()] == obj {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// GoalAchieved reports whether every goal literal containing obj is part of
// the initial state.
func (c *Classifier) GoalAchieved(obj *task.Object) bool {
	for _, g := range c.task.Goal {
		if !g.Contains(obj) {
			continue
		}
		held := false
		for _, l := range c.task.Init {
			if l.Equal(g) {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}
