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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/mutex"
	"github.com/AleutianAI/planstages/services/stages/synth"
	"github.com/AleutianAI/planstages/services/stages/task"
	"github.com/AleutianAI/planstages/services/stages/task/tasktest"
)

type catalog struct {
	regs   []*features.Registry
	rels   []*mutex.Relation
	stages []*synth.Stages
}

func (c *catalog) Registry(t *task.Type) *features.Registry { return c.regs[t.Index] }
func (c *catalog) Relation(t *task.Type) *mutex.Relation    { return c.rels[t.Index] }
func (c *catalog) Stages(t *task.Type) *synth.Stages        { return c.stages[t.Index] }
func (c *catalog) BasicStages(t *task.Type) []synth.Stage   { return c.stages[t.Index].Basic }

func analyse(t *testing.T, tk *task.Task) *Classifier {
	t.Helper()
	ctx := context.Background()
	c := &catalog{regs: features.NewRegistries(tk)}
	features.Derive(tk, c.regs)
	s := synth.New(features.NewPool())

	for _, reg := range c.regs {
		reg.Classify()
		rel, err := mutex.NewAnalyzer(reg).Analyze(ctx)
		require.NoError(t, err)
		basic, _, err := s.Basic(ctx, reg, rel)
		require.NoError(t, err)
		add, _, err := s.Additional(ctx, reg)
		require.NoError(t, err)
		c.rels = append(c.rels, rel)
		c.stages = append(c.stages, &synth.Stages{Basic: basic, Additional: add})
	}
	for i, reg := range c.regs {
		combined, _, err := s.Combined(ctx, c, reg, c.stages[i].Basic)
		require.NoError(t, err)
		c.stages[i].Combined = combined
	}
	return New(c, tk)
}

func span(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestClassifier_Blocksworld(t *testing.T) {
	tk := tasktest.Blocksworld(t)
	c := analyse(t, tk)
	a, b := tk.Object("a"), tk.Object("b")

	// a sits on b, which is on the table, and a is clear.
	assert.Equal(t, 6, c.CombinedStage(a))
	assert.Equal(t, 8, c.CombinedStage(b))
	assert.Equal(t, 1, c.AdditionalStage(a))
	assert.Equal(t, []int{1}, c.AdditionalGoalStages(a))
	assert.False(t, c.GoalAchieved(a))
	assert.False(t, c.GoalAchieved(b))
}

func TestClassifier_Robots(t *testing.T) {
	tk := tasktest.Robots(t)
	c := analyse(t, tk)
	r1, r2 := tk.Object("r1"), tk.Object("r2")
	lab, dock := tk.Object("lab"), tk.Object("dock")

	t.Run("combined stage is the first match", func(t *testing.T) {
		assert.Equal(t, 1, c.CombinedStage(r1))
		assert.Equal(t, 17, c.CombinedStage(r2))
		assert.Equal(t, 1, c.CombinedStage(lab))
	})

	t.Run("additional stage is the last match", func(t *testing.T) {
		assert.Equal(t, 4, c.AdditionalStage(r1))
		assert.Equal(t, 1, c.AdditionalStage(r2))
		assert.Equal(t, 2, c.AdditionalStage(lab))
		assert.Equal(t, 2, c.AdditionalStage(dock))
	})

	t.Run("goal stages exclude features mutex with the goal", func(t *testing.T) {
		// fresh and retired are mutex with the goal working(r1).
		want := append(append(append(span(1, 4), span(9, 12)...), span(17, 20)...), span(25, 28)...)
		assert.Equal(t, want, c.GoalStages(r1))
		assert.Equal(t, span(1, 32), c.GoalStages(r2))
		assert.Equal(t, []int{1}, c.GoalStages(lab))
	})

	t.Run("additional goal stages", func(t *testing.T) {
		assert.Equal(t, []int{3, 4}, c.AdditionalGoalStages(r1), "static large(r1) must be kept")
		assert.Equal(t, []int{2, 4}, c.AdditionalGoalStages(r2), "goal attribute charged(r2) must be present")
		assert.Equal(t, []int{1, 2}, c.AdditionalGoalStages(lab))
		assert.Equal(t, []int{2}, c.AdditionalGoalStages(dock))
	})

	t.Run("goal achieved", func(t *testing.T) {
		assert.False(t, c.GoalAchieved(r1))
		assert.False(t, c.GoalAchieved(r2))
		assert.True(t, c.GoalAchieved(lab), "no goal literal names lab")
		assert.False(t, c.GoalAchieved(dock))
	})
}

func TestClassifier_Logistics(t *testing.T) {
	tk := tasktest.Logistics(t)
	c := analyse(t, tk)

	reports := c.All()
	require.Len(t, reports, 4)

	byName := make(map[string]ObjectReport)
	for _, r := range reports {
		byName[r.Object.Name] = r
	}

	assert.Equal(t, ObjectReport{
		Object:               tk.Object("t1"),
		Stage:                1,
		AdditionalStage:      1,
		GoalStages:           []int{1},
		AdditionalGoalStages: []int{2},
	}, byName["t1"])

	p1 := byName["p1"]
	assert.Equal(t, 1, p1.Stage)
	assert.Equal(t, []int{2}, p1.GoalStages, "at(p1, *) is mutex with the goal in(p1, t1)")
	assert.Equal(t, []int{1}, p1.AdditionalGoalStages)
	assert.False(t, p1.GoalAchieved)

	home := byName["home"]
	assert.Equal(t, 4, home.AdditionalStage)
	assert.Equal(t, []int{1, 2, 3, 4}, home.AdditionalGoalStages)
	assert.True(t, home.GoalAchieved)

	assert.Equal(t, 1, byName["away"].AdditionalStage)
}

func TestClassifier_MatchStateRetractsBindings(t *testing.T) {
	// The first on(a, *) literal binds y to c, which has nothing on the
	// table; the second binds y to b and must not see the stale binding.
	src := `
types: [{name: block}]
predicates:
  - {name: on, args: [block, block]}
  - {name: ontable, args: [block]}
operators:
  - name: move
    params: [block, block, block]
    pre: [{pred: on, args: [0, 1]}]
    del: [{pred: on, args: [0, 1]}]
    add: [{pred: on, args: [0, 2]}]
objects:
  - {name: a, type: block}
  - {name: b, type: block}
  - {name: c, type: block}
init:
  - {pred: on, args: [a, c]}
  - {pred: on, args: [a, b]}
  - {pred: ontable, args: [b]}
`
	tk := tasktest.Load(t, src)
	c := &Classifier{task: tk}
	reg := features.NewRegistry(tk.Types[0], tk.Predicates)
	pool := features.NewPool()
	on := tk.Predicate("on", tk.Types[0], tk.Types[0])
	ontable := tk.Predicate("ontable", tk.Types[0])
	onIdx, _ := reg.Lookup(on, 0)
	tableIdx, _ := reg.Lookup(ontable, 0)

	stage := synth.Stage{
		pool.Instance(reg.Feature(onIdx), 1, tk.Types[0], 'y'),
		pool.Rebind(reg.Feature(tableIdx), 'y'),
	}
	b := bindings{features.FirstLetter: tk.Object("a")}
	require.True(t, c.matchState(0, stage, b))
	assert.Equal(t, tk.Object("b"), b['y'])
}

func TestClassifier_NoStages(t *testing.T) {
	tk := tasktest.Switches(t)
	c := New(&catalog{stages: []*synth.Stages{nil}}, tk)
	s1 := tk.Object("s1")

	r := c.Object(s1)
	assert.Zero(t, r.Stage)
	assert.Zero(t, r.AdditionalStage)
	assert.Empty(t, r.GoalStages)
	assert.Empty(t, r.AdditionalGoalStages)
	assert.True(t, r.GoalAchieved)
}
