// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package features

import "github.com/AleutianAI/planstages/services/stages/task"

// Derive fills the transition rules of every registry from the task
// operators. regs must be indexed like t.Types; nil entries are skipped.
//
// For each operator parameter, the registry of the parameter's type receives
// one rule whose enabler, left and right sides collect the features touched
// by the operator's preconditions, deletes and adds. An effect contributes a
// feature only when the first argument bound to the parameter sits at the
// feature's distinguished position.
func Derive(t *task.Task, regs []*Registry) {
	for _, op := range t.Operators {
		for param, pt := range op.Params {
			if pt.Index >= len(regs) || regs[pt.Index] == nil {
				continue
			}
			reg := regs[pt.Index]
			enabler := reg.collect(op.Pre, param)
			left := reg.collect(op.Del, param)
			right := reg.collect(op.Add, param)
			reg.AddRule(enabler, left, right)
		}
	}
}

func (r *Registry) collect(effects []task.Effect, param int) []int {
	var out []int
	for _, e := range effects {
		slot := e.SlotOf(param)
		if slot < 0 || e.Predicate.Args[slot] != r.typ {
			continue
		}
		i, ok := r.Lookup(e.Predicate, slot)
		if ok && !containsIndex(out, i) {
			out = append(out, i)
		}
	}
	return out
}
