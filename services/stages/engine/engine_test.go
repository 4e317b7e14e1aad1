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
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AleutianAI/planstages/services/stages/task/tasktest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// snapshot renders everything a run produced except its ID and timing.
func snapshot(res *Result) map[string][]string {
	out := make(map[string][]string)
	for _, tr := range res.Types {
		var lines []string
		for _, f := range tr.Registry.Features() {
			lines = append(lines, "F "+f.String()+" "+f.Class().String())
		}
		for _, r := range tr.Registry.Rules() {
			lines = append(lines, "R "+tr.Registry.RuleString(r))
		}
		for _, p := range tr.Mutex.Pairs() {
			lines = append(lines, "M "+tr.Registry.Feature(p[0]).String()+" | "+tr.Registry.Feature(p[1]).String())
		}
		for _, s := range tr.Stages.Basic {
			lines = append(lines, "BS "+s.String())
		}
		for _, s := range tr.Stages.Additional {
			lines = append(lines, "AS "+s.String())
		}
		for _, s := range tr.Stages.Combined {
			lines = append(lines, "CS "+s.String())
		}
		out[tr.Type.Name] = lines
	}
	return out
}

func TestAnalyze_Blocksworld(t *testing.T) {
	eng := New(WithLogger(quietLogger()))
	res, err := eng.Analyze(context.Background(), tasktest.Blocksworld(t))
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.False(t, res.Incomplete)
	assert.Positive(t, res.Duration)

	require.Len(t, res.Types, 1)
	tr := res.Types[0]
	assert.Equal(t, "block", tr.Type.Name)
	assert.Equal(t, 6, tr.Mutex.Len())
	assert.Len(t, tr.Stages.Basic, 5)
	assert.Len(t, tr.Stages.Additional, 1)
	assert.Len(t, tr.Stages.Combined, 10)
	assert.Positive(t, res.Pool.Len())

	block := res.Task.Type("block")
	assert.Same(t, tr.Registry, res.Registry(block))
	assert.Same(t, tr.Mutex, res.Relation(block))
	assert.Len(t, res.BasicStages(block), 5)
	assert.Len(t, res.Stages(block).Combined, 10)
}

func TestAnalyze_Deterministic(t *testing.T) {
	ctx := context.Background()
	for name, doc := range map[string]string{
		"blocksworld": tasktest.BlocksworldDoc,
		"robots":      tasktest.RobotsDoc,
		"logistics":   tasktest.LogisticsDoc,
	} {
		t.Run(name, func(t *testing.T) {
			serial, err := New(WithWorkerCount(1), WithLogger(quietLogger())).Analyze(ctx, tasktest.Load(t, doc))
			require.NoError(t, err)
			parallel, err := New(WithWorkerCount(8), WithLogger(quietLogger())).Analyze(ctx, tasktest.Load(t, doc))
			require.NoError(t, err)

			assert.Equal(t, snapshot(serial), snapshot(parallel))
			assert.NotEqual(t, serial.RunID, parallel.RunID)
		})
	}
}

func TestAnalyze_Limits(t *testing.T) {
	ctx := context.Background()

	t.Run("stage limit flags the type", func(t *testing.T) {
		eng := New(WithMaxStages(3), WithLogger(quietLogger()))
		res, err := eng.Analyze(ctx, tasktest.Robots(t))
		require.NoError(t, err)
		assert.True(t, res.Incomplete)
		assert.Equal(t, []string{"robot"}, res.IncompleteTypes())

		robot := res.Types[res.Task.Type("robot").Index]
		assert.Len(t, robot.Stages.Basic, 3)
		assert.True(t, robot.Stages.Truncated)
	})

	t.Run("strict limits return the partial result with an error", func(t *testing.T) {
		eng := New(WithMaxStages(3), WithStrictLimits(true), WithLogger(quietLogger()))
		res, err := eng.Analyze(ctx, tasktest.Robots(t))
		require.ErrorIs(t, err, ErrAnalysisIncomplete)
		require.NotNil(t, res)
		assert.Contains(t, err.Error(), "robot")
	})

	t.Run("search budget flags the type", func(t *testing.T) {
		eng := New(WithMaxSearchSteps(1), WithLogger(quietLogger()))
		res, err := eng.Analyze(ctx, tasktest.Blocksworld(t))
		require.NoError(t, err)
		assert.True(t, res.Incomplete)
		assert.Zero(t, res.Types[0].Mutex.Len())
	})
}

func TestAnalyze_Errors(t *testing.T) {
	eng := New(WithLogger(quietLogger()))

	_, err := eng.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilTask)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Analyze(ctx, tasktest.Blocksworld(t))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = eng.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilTask)
}

func TestNew_Defaults(t *testing.T) {
	opts := New(WithWorkerCount(-1)).Options()
	assert.Positive(t, opts.WorkerCount)
	assert.NotNil(t, opts.Logger)
	assert.Zero(t, opts.MaxStages)
}

func TestClassify_Logistics(t *testing.T) {
	eng := New(WithLogger(quietLogger()))
	ctx := context.Background()
	res, err := eng.Analyze(ctx, tasktest.Logistics(t))
	require.NoError(t, err)

	reports, err := eng.Classify(ctx, res)
	require.NoError(t, err)
	require.Len(t, reports, 4)
	assert.Equal(t, "t1", reports[0].Object.Name)
	assert.Equal(t, []int{2}, reports[0].AdditionalGoalStages)
	assert.Equal(t, []int{2}, reports[1].GoalStages)
	assert.True(t, reports[2].GoalAchieved)
}
