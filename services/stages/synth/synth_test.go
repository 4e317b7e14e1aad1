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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/mutex"
	"github.com/AleutianAI/planstages/services/stages/task"
	"github.com/AleutianAI/planstages/services/stages/task/tasktest"
)

// fixture runs classification, mutex analysis and basic synthesis for every
// type of a task.
type fixture struct {
	task  *task.Task
	regs  []*features.Registry
	rels  []*mutex.Relation
	basic [][]Stage
}

func (f *fixture) Registry(t *task.Type) *features.Registry { return f.regs[t.Index] }
func (f *fixture) BasicStages(t *task.Type) []Stage        { return f.basic[t.Index] }

func newFixture(t *testing.T, tk *task.Task) *fixture {
	t.Helper()
	f := &fixture{task: tk, regs: features.NewRegistries(tk)}
	features.Derive(tk, f.regs)
	s := New(features.NewPool())
	for _, reg := range f.regs {
		reg.Classify()
		rel, err := mutex.NewAnalyzer(reg).Analyze(context.Background())
		require.NoError(t, err)
		f.rels = append(f.rels, rel)
		basic, truncated, err := s.Basic(context.Background(), reg, rel)
		require.NoError(t, err)
		require.False(t, truncated)
		f.basic = append(f.basic, basic)
	}
	return f
}

func (f *fixture) typeIndex(t *testing.T, name string) int {
	t.Helper()
	ty := f.task.Type(name)
	require.NotNil(t, ty)
	return ty.Index
}

func renderAll(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.String()
	}
	return out
}

func assertNoDuplicateSets(t *testing.T, stages []Stage) {
	t.Helper()
	seen := make(map[string]int)
	for i, s := range stages {
		k := s.Key()
		if j, dup := seen[k]; dup {
			t.Errorf("stage %d duplicates stage %d: %s", i+1, j+1, s)
		}
		seen[k] = i
	}
}

// plainBasic is the exhaustive permutation search without memoization.
func plainBasic(reg *features.Registry, excl Exclusions) [][]int {
	var out [][]int
	sameSet := func(a, b []int) bool {
		return features.SetOf(reg.Len(), a...).Equal(features.SetOf(reg.Len(), b...))
	}
	repeated := func(s []int) bool {
		for _, o := range out {
			if sameSet(o, s) {
				return true
			}
		}
		return false
	}
	conflicts := func(stage []int, cur int) bool {
		for _, f := range stage {
			if f == cur || excl.Has(f, cur) {
				return true
			}
		}
		return false
	}
	multiple := reg.ByClass(features.Multiple)
	var power func(stage []int, k int)
	power = func(stage []int, k int) {
		if k < len(multiple) {
			power(stage, k+1)
			power(with(stage, multiple[k]), k+1)
		} else if !repeated(stage) {
			out = append(out, stage)
		}
	}
	var trans func(stage, rem []int)
	trans = func(stage, rem []int) {
		if len(rem) == 0 {
			if !repeated(stage) {
				power(stage, 0)
			}
			return
		}
		for i, cur := range rem {
			next := without(rem, i)
			trans(stage, next)
			if !conflicts(stage, cur) {
				trans(with(stage, cur), next)
			}
		}
	}
	var rev func(stage, rem []int)
	rev = func(stage, rem []int) {
		if len(rem) == 0 {
			trans(stage, reg.ByClass(features.Transient))
			return
		}
		for i, cur := range rem {
			next := without(rem, i)
			if conflicts(stage, cur) {
				rev(stage, next)
			} else {
				rev(with(stage, cur), next)
			}
		}
	}
	rev(reg.ByClass(features.Permanent), reg.ByClass(features.Reversible))
	return out
}

func TestBasic_Blocksworld(t *testing.T) {
	f := newFixture(t, tasktest.Blocksworld(t))
	basic := f.basic[0]

	assert.Equal(t, []string{
		"on(x - block, * - block), on(* - block, x - block)",
		"on(x - block, * - block), clear(x - block)",
		"on(* - block, x - block), ontable(x - block)",
		"ontable(x - block), clear(x - block)",
		"holding(x - block)",
	}, renderAll(basic))

	t.Run("no stage holds a mutex pair", func(t *testing.T) {
		for _, s := range basic {
			for i := range s {
				for j := i + 1; j < len(s); j++ {
					assert.False(t, f.rels[0].Has(s[i].ID(), s[j].ID()), s.String())
				}
			}
		}
	})
}

func TestBasic_Robots(t *testing.T) {
	f := newFixture(t, tasktest.Robots(t))
	basic := f.basic[f.typeIndex(t, "robot")]

	// 2 reversible choices x 4 transient subsets x 4 multiple subsets.
	require.Len(t, basic, 32)
	assertNoDuplicateSets(t, basic)

	assert.Equal(t, "at(x - robot, * - room), empty(x - robot)", basic[0].String())
	assert.Equal(t, "at(x - robot, * - room), empty(x - robot), badge(x - robot)", basic[1].String())
	assert.Equal(t, "at(x - robot, * - room), empty(x - robot), tagged(x - robot)", basic[2].String())
	assert.Equal(t, "at(x - robot, * - room), empty(x - robot), tagged(x - robot), badge(x - robot)", basic[3].String())
	assert.Equal(t, "at(x - robot, * - room), empty(x - robot), retired(x - robot)", basic[4].String())
	assert.Equal(t, "at(x - robot, * - room), empty(x - robot), working(x - robot)", basic[8].String())
	assert.Equal(t, "at(x - robot, * - room), empty(x - robot), fresh(x - robot)", basic[12].String())
	assert.Equal(t, "at(x - robot, * - room), loaded(x - robot)", basic[16].String())

	for _, s := range basic {
		assert.Equal(t, features.Permanent, s[0].Class(), "permanent features lead every stage")
	}

	rooms := f.basic[f.typeIndex(t, "room")]
	require.Len(t, rooms, 1)
	assert.Empty(t, rooms[0])
}

func TestBasic_MatchesExhaustiveSearch(t *testing.T) {
	for name, tk := range map[string]*task.Task{
		"blocksworld": tasktest.Blocksworld(t),
		"robots":      tasktest.Robots(t),
		"switches":    tasktest.Switches(t),
		"logistics":   tasktest.Logistics(t),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, tk)
			for ti, reg := range f.regs {
				want := plainBasic(reg, f.rels[ti])
				got := f.basic[ti]
				require.Len(t, got, len(want))
				for i := range want {
					assert.Equal(t, fromIndices(reg, want[i]).String(), got[i].String())
				}
			}
		})
	}
}

func TestBasic_StageLimit(t *testing.T) {
	f := newFixture(t, tasktest.Robots(t))
	reg := f.regs[f.typeIndex(t, "robot")]

	s := New(features.NewPool(), WithMaxStages(5))
	basic, truncated, err := s.Basic(context.Background(), reg, f.rels[reg.Type().Index])
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, basic, 5)
}

func TestAdditional(t *testing.T) {
	t.Run("robots", func(t *testing.T) {
		f := newFixture(t, tasktest.Robots(t))
		reg := f.regs[f.typeIndex(t, "robot")]
		add, truncated, err := New(nil).Additional(context.Background(), reg)
		require.NoError(t, err)
		assert.False(t, truncated)
		assert.Equal(t, []string{
			"",
			"charged(x - robot)",
			"large(x - robot)",
			"large(x - robot), charged(x - robot)",
		}, renderAll(add))
		assertNoDuplicateSets(t, add)
	})

	t.Run("precondition-only feature", func(t *testing.T) {
		f := newFixture(t, tasktest.Switches(t))
		add, _, err := New(nil).Additional(context.Background(), f.regs[0])
		require.NoError(t, err)
		assert.Equal(t, []string{"", "clear(x - block)"}, renderAll(add))
		assert.Equal(t, []string{"up(x - block)", "down(x - block)"}, renderAll(f.basic[0]))
	})

	t.Run("no static or attribute features", func(t *testing.T) {
		f := newFixture(t, tasktest.Blocksworld(t))
		add, _, err := New(nil).Additional(context.Background(), f.regs[0])
		require.NoError(t, err)
		require.Len(t, add, 1)
		assert.Empty(t, add[0])
	})
}

func TestCombined_Blocksworld(t *testing.T) {
	f := newFixture(t, tasktest.Blocksworld(t))
	pool := features.NewPool()
	s := New(pool)

	combined, truncated, err := s.Combined(context.Background(), f, f.regs[0], f.basic[0])
	require.NoError(t, err)
	assert.False(t, truncated)

	assert.Equal(t, []string{
		"on(x - block, y - block), on(z - block, x - block), on(y - block, * - block), on(* - block, z - block)",
		"on(x - block, y - block), on(z - block, x - block), on(y - block, * - block), clear(z - block)",
		"on(x - block, y - block), on(z - block, x - block), ontable(y - block), on(* - block, z - block)",
		"on(x - block, y - block), on(z - block, x - block), ontable(y - block), clear(z - block)",
		"on(x - block, y - block), clear(x - block), on(y - block, * - block)",
		"on(x - block, y - block), clear(x - block), ontable(y - block)",
		"on(y - block, x - block), ontable(x - block), on(* - block, y - block)",
		"on(y - block, x - block), ontable(x - block), clear(y - block)",
		"ontable(x - block), clear(x - block)",
		"holding(x - block)",
	}, renderAll(combined))
	assertNoDuplicateSets(t, combined)

	assert.True(t, combined[0][3].Combined())
	assert.False(t, combined[0][1].Combined())
	require.Len(t, combined[9], 1)
	assert.Same(t, f.basic[0][4][0], combined[9][0], "stages without free slots are kept verbatim")
	assert.Equal(t, f.basic[0][4], combined[9])
	assert.Positive(t, pool.Len())
}

func TestCombined_NoMatchingPeerKeepsBasic(t *testing.T) {
	f := newFixture(t, tasktest.Robots(t))
	ri := f.typeIndex(t, "robot")

	combined, _, err := New(nil).Combined(context.Background(), f, f.regs[ri], f.basic[ri])
	require.NoError(t, err)
	assert.Equal(t, renderAll(f.basic[ri]), renderAll(combined))
}

func TestSynthesis_Cancelled(t *testing.T) {
	f := newFixture(t, tasktest.Robots(t))
	reg := f.regs[f.typeIndex(t, "robot")]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(nil).Basic(ctx, reg, f.rels[reg.Type().Index])
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = New(nil).Additional(ctx, reg)
	assert.ErrorIs(t, err, context.Canceled)
}
