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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/planstages/services/stages/task"
	"github.com/AleutianAI/planstages/services/stages/task/tasktest"
)

func buildRegistries(t *testing.T, tk *task.Task) []*Registry {
	t.Helper()
	regs := NewRegistries(tk)
	Derive(tk, regs)
	for _, r := range regs {
		r.Classify()
	}
	return regs
}

func featureNames(r *Registry) []string {
	out := make([]string, r.Len())
	for i, f := range r.Features() {
		out[i] = f.String()
	}
	return out
}

func classesByName(r *Registry) map[string]Class {
	out := make(map[string]Class, r.Len())
	for _, f := range r.Features() {
		out[f.String()] = f.Class()
	}
	return out
}

func TestNewRegistry_Blocksworld(t *testing.T) {
	tk := tasktest.Blocksworld(t)
	regs := buildRegistries(t, tk)
	require.Len(t, regs, 1)
	blocks := regs[0]

	assert.Equal(t, []string{
		"on(x - block, * - block)",
		"on(* - block, x - block)",
		"ontable(x - block)",
		"clear(x - block)",
		"holding(x - block)",
	}, featureNames(blocks))

	on := tk.Predicate("on", tk.Type("block"), tk.Type("block"))
	i, ok := blocks.Lookup(on, 1)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, 1, blocks.Feature(i).Position())
	assert.Equal(t, 0, blocks.Feature(i).UnboundSlot())
	assert.Equal(t, 1, blocks.Feature(0).UnboundSlot())
	assert.Equal(t, -1, blocks.Feature(2).UnboundSlot())

	_, ok = blocks.Lookup(on, 2)
	assert.False(t, ok)
}

func TestDerive_BlocksworldRules(t *testing.T) {
	tk := tasktest.Blocksworld(t)
	blocks := buildRegistries(t, tk)[0]

	rules := blocks.Rules()
	require.Len(t, rules, 6)
	assert.Equal(t,
		"clear(x - block), ontable(x - block): ontable(x - block), clear(x - block) -> holding(x - block)",
		blocks.RuleString(rules[0]))
	assert.Equal(t,
		"clear(x - block): clear(x - block) -> on(* - block, x - block)",
		blocks.RuleString(rules[3]))

	t.Run("adjacency", func(t *testing.T) {
		assert.Equal(t, []Node{2, 3, 0}, blocks.OutAdjacent(4))
		assert.Equal(t, []Node{2, 3, 0}, blocks.InAdjacent(4))
		assert.Equal(t, []Node{4, 1}, blocks.OutAdjacent(3))
		assert.Empty(t, blocks.OutAdjacent(Unbound))
	})

	t.Run("every feature is reversible", func(t *testing.T) {
		for _, f := range blocks.Features() {
			assert.Equal(t, Reversible, f.Class(), f.String())
		}
		assert.Len(t, blocks.ByClass(Reversible), 5)
	})
}

func TestClassify_Robots(t *testing.T) {
	tk := tasktest.Robots(t)
	regs := buildRegistries(t, tk)
	robots := regs[tk.Type("robot").Index]
	rooms := regs[tk.Type("room").Index]

	assert.Equal(t, map[string]Class{
		"at(x - robot, * - room)": Permanent,
		"large(x - robot)":        Static,
		"charged(x - robot)":      Attribute,
		"fresh(x - robot)":        Transient,
		"working(x - robot)":      Transient,
		"retired(x - robot)":      Transient,
		"empty(x - robot)":        Reversible,
		"loaded(x - robot)":       Reversible,
		"tagged(x - robot)":       Multiple,
		"badge(x - robot)":        Multiple,
	}, classesByName(robots))

	assert.Equal(t, map[string]Class{
		"at(* - robot, x - room)": Attribute,
	}, classesByName(rooms))

	t.Run("reachability", func(t *testing.T) {
		assert.True(t, robots.Reachable(Unbound, 8))
		assert.True(t, robots.Reachable(Unbound, 9))
		assert.False(t, robots.Reachable(Unbound, 3))
		assert.False(t, robots.Reachable(0, 0), "a bare self-loop is not a cycle")
		assert.True(t, robots.Reachable(6, 6))
		assert.True(t, robots.Reachable(3, 5))
		assert.False(t, robots.Reachable(5, 3))
	})

	t.Run("unbound adjacency", func(t *testing.T) {
		assert.Equal(t, []Node{2, 8}, robots.OutAdjacent(Unbound))
		assert.Equal(t, []Node{2}, robots.InAdjacent(Unbound))
		assert.Equal(t, []Node{Unbound}, robots.OutAdjacent(2))
	})
}

func TestClassify_PreconditionOnlyIsStatic(t *testing.T) {
	tk := tasktest.Switches(t)
	blocks := buildRegistries(t, tk)[0]

	assert.Equal(t, map[string]Class{
		"clear(x - block)": Static,
		"up(x - block)":    Reversible,
		"down(x - block)":  Reversible,
	}, classesByName(blocks))
	assert.True(t, blocks.Used(0))
}

func TestClassify_Unused(t *testing.T) {
	tk := tasktest.Load(t, `
types: [{name: block}]
predicates:
  - {name: clear, args: [block]}
  - {name: painted, args: [block]}
operators:
  - name: look
    params: [block]
    pre: [{pred: clear, args: [0]}]
  - name: paint
    params: [block]
    add: [{pred: painted, args: [0]}]
`)
	blocks := buildRegistries(t, tk)[0]

	require.Len(t, blocks.Rules(), 1, "a rule that changes nothing is not recorded")
	assert.Equal(t, Unused, blocks.Feature(0).Class())
	assert.Equal(t, Attribute, blocks.Feature(1).Class())
}

func TestDerive_FirstBoundSlotOnly(t *testing.T) {
	tk := tasktest.Load(t, `
types: [{name: block}]
predicates: [{name: on, args: [block, block]}]
operators:
  - name: selfstack
    params: [block]
    add: [{pred: on, args: [0, 0]}]
`)
	blocks := buildRegistries(t, tk)[0]

	require.Len(t, blocks.Rules(), 1)
	assert.Equal(t, []int{0}, blocks.Rules()[0].Right)
}

func TestAddRule_SetEquality(t *testing.T) {
	tk := tasktest.Switches(t)
	reg := NewRegistry(tk.Types[0], tk.Predicates)

	assert.True(t, reg.AddRule([]int{0, 1}, []int{1}, []int{2}))
	assert.False(t, reg.AddRule([]int{1, 0}, []int{1}, []int{2}), "order is ignored")
	assert.True(t, reg.AddRule([]int{0}, []int{1}, []int{2}))
	assert.False(t, reg.AddRule([]int{0}, nil, nil), "empty rules are ignored")
	assert.Len(t, reg.Rules(), 2)

	assert.Equal(t, []Node{2}, reg.OutAdjacent(1), "uncached adjacency before Classify")
}

func TestRegistry_Equivalent(t *testing.T) {
	tk := tasktest.Blocksworld(t)
	blocks := buildRegistries(t, tk)[0]

	eq, ok := blocks.Equivalent(blocks.Feature(0), 1)
	require.True(t, ok)
	assert.Same(t, blocks.Feature(1), eq)

	_, ok = blocks.Equivalent(blocks.Feature(2), 1)
	assert.False(t, ok)
}
