// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/synth"
	"github.com/AleutianAI/planstages/services/stages/task"
)

// GoalStages returns every combined stage that can be instantiated against
// the goal with 'x' bound to obj without contradicting it.
//
// Description:
//
//	Features are visited in stage order. A feature none of whose bound
//	letters is mapped yet is skipped. Otherwise each goal literal of the
//	same predicate that agrees with the mapping is tried in turn, extending
//	the mapping; when no literal agrees the feature is skipped. A complete
//	instantiation is rejected if some feature with a mapped letter is not
//	found in the goal and is mutex with a goal literal naming one of its
//	mapped objects.
func (c *Classifier) GoalStages(obj *task.Object) []int {
	st := c.stages(obj)
	if st == nil {
		return nil
	}
	var out []int
	for i, stage := range st.Combined {
		b := bindings{features.FirstLetter: obj}
		if c.matchGoal(0, stage, b) {
			out = append(out, i+1)
		}
	}
	return out
}

func (c *Classifier) matchGoal(k int, stage synth.Stage, b bindings) bool {
	if k >= len(stage) {
		return c.validGoalStage(stage, b)
	}
	f := stage[k]
	matches := 0
	if mapped(f, b) {
		for _, l := range c.task.Goal {
			if l.Predicate != f.Predicate() {
				continue
			}
			added, ok := bind(f, l, b)
			if ok {
				matches++
				if c.matchGoal(k+1, stage, b) {
					return true
				}
			}
			for _, letter := range added {
				delete(b, letter)
			}
		}
	}
	if matches == 0 {
		return c.matchGoal(k+1, stage, b)
	}
	return false
}

// mapped reports whether any bound slot of f carries a mapped letter.
func mapped(f *features.Feature, b bindings) bool {
	for i := 0; i < f.Arity(); i++ {
		if !f.Bound(i) {
			continue
		}
		if _, ok := b[f.Letter(i)]; ok {
			return true
		}
	}
	return false
}

func (c *Classifier) validGoalStage(stage synth.Stage, b bindings) bool {
	for _, f := range stage {
		if !mapped(f, b) {
			continue
		}
		if !c.inGoal(f, b) && c.mutexWithGoal(f, b) {
			return false
		}
	}
	return true
}

// inGoal reports whether some goal literal agrees with every mapped letter
// of f.
func (c *Classifier) inGoal(f *features.Feature, b bindings) bool {
	for _, l := range c.task.Goal {
		if l.Predicate != f.Predicate() {
			continue
		}
		match := true
		for i, arg := range l.Args {
			if !f.Bound(i) {
				continue
			}
			if obj, ok := b[f.Letter(i)]; ok && obj != arg {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// mutexWithGoal reports whether f, observed from one of its mapped slots,
// is mutex with the feature through which some goal literal sees the same
// object.
func (c *Classifier) mutexWithGoal(f *features.Feature, b bindings) bool {
	for _, l := range c.task.Goal {
		for slot := 0; slot < f.Arity(); slot++ {
			if !f.Bound(slot) {
				continue
			}
			obj, ok := b[f.Letter(slot)]
			if !ok {
				continue
			}
			for pos, arg := range l.Args {
				if arg != obj {
					continue
				}
				t := l.Predicate.Args[pos]
				reg, rel := c.cat.Registry(t), c.cat.Relation(t)
				if reg == nil || rel == nil {
					continue
				}
				for _, m := range rel.PartnersOf(reg, l.Predicate, pos) {
					if m.Predicate() == f.Predicate() && m.Position() == slot {
						return true
					}
				}
			}
		}
	}
	return false
}

// AdditionalGoalStages returns every additional stage that contains each
// static feature of obj holding initially and each attribute feature of
// obj named in the goal.
func (c *Classifier) AdditionalGoalStages(obj *task.Object) []int {
	st := c.stages(obj)
	if st == nil {
		return nil
	}
	reg := c.cat.Registry(obj.Type)
	var out []int
	for i, stage := range st.Additional {
		if c.covers(reg, obj, stage, c.task.Init, features.Static) &&
			c.covers(reg, obj, stage, c.task.Goal, features.Attribute) {
			out = append(out, i+1)
		}
	}
	return out
}

func (c *Classifier) covers(reg *features.Registry, obj *task.Object, stage synth.Stage, lits []task.Literal, class features.Class) bool {
	for _, l := range lits {
		pos := l.Find(obj)
		if pos < 0 {
			continue
		}
		i, ok := reg.Lookup(l.Predicate, pos)
		if !ok {
			continue
		}
		f := reg.Feature(i)
		if f.Class() == class && !stage.Contains(f) {
			return false
		}
	}
	return true
}
