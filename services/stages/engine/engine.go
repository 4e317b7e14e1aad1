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
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/planstages/services/stages/classify"
	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/mutex"
	"github.com/AleutianAI/planstages/services/stages/synth"
	"github.com/AleutianAI/planstages/services/stages/task"
	"github.com/AleutianAI/planstages/services/stages/telemetry"
)

// Engine runs the stage analysis pipeline.
type Engine struct {
	options Options
}

// New creates an Engine with the given options.
//
// Example:
//
//	eng := engine.New(
//	    engine.WithWorkerCount(4),
//	    engine.WithMaxStages(10000),
//	)
func New(opts ...Option) *Engine {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Engine{options: options}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.options
}

// Analyze computes features, mutex pairs and stages for every type of t.
//
// Description:
//
//	Registries are built and rules derived up front. Phase one classifies,
//	analyses mutex pairs and synthesizes basic and additional stages for
//	each type in parallel. Phase two synthesizes combined stages once all
//	basic stages exist. The context is checked before each phase and each
//	type.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	t - The resolved task. Must not be nil.
//
// Outputs:
//
//	*Result - The analysis. Also returned alongside ErrAnalysisIncomplete.
//	error - ErrNilTask, ErrCancelled (wrapping the context error) or
//	        ErrAnalysisIncomplete.
func (e *Engine) Analyze(ctx context.Context, t *task.Task) (*Result, error) {
	if t == nil {
		return nil, ErrNilTask
	}
	start := time.Now()
	ctx, span := startAnalyzeSpan(ctx, len(t.Types), len(t.Operators))
	defer span.End()

	res := &Result{
		RunID: uuid.NewString(),
		Task:  t,
		Pool:  features.NewPool(),
	}
	logger := telemetry.LoggerWithTrace(ctx, e.options.Logger).With(slog.String("run_id", res.RunID))

	fail := func(err error) (*Result, error) {
		if ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		telemetry.RecordError(span, err)
		recordAnalysisMetrics(ctx, time.Since(start), nil, false)
		return nil, err
	}

	regs := features.NewRegistries(t)
	features.Derive(t, regs)
	res.Types = make([]*TypeResult, len(regs))
	for i, reg := range regs {
		res.Types[i] = &TypeResult{Type: t.Types[i], Registry: reg}
	}
	logger.Debug("transition rules derived",
		slog.Int("types", len(regs)),
		slog.Int("operators", len(t.Operators)),
	)

	syn := synth.New(res.Pool,
		synth.WithMaxStages(e.options.MaxStages),
		synth.WithLogger(logger),
	)

	if err := e.runPhase(ctx, "TypeStages", res.Types, func(ctx context.Context, tr *TypeResult) error {
		return e.typeStages(ctx, syn, logger, tr)
	}); err != nil {
		return fail(err)
	}
	if err := e.runPhase(ctx, "CombinedStages", res.Types, func(ctx context.Context, tr *TypeResult) error {
		combined, truncated, err := syn.Combined(ctx, res, tr.Registry, tr.Stages.Basic)
		if err != nil {
			return err
		}
		tr.Stages.Combined = combined
		tr.Stages.Truncated = tr.Stages.Truncated || truncated
		tr.Incomplete = tr.Incomplete || truncated
		return nil
	}); err != nil {
		return fail(err)
	}

	for _, tr := range res.Types {
		res.Incomplete = res.Incomplete || tr.Incomplete
	}
	res.Duration = time.Since(start)
	setAnalyzeSpanResult(span, res)
	telemetry.SetSpanOK(span)
	recordAnalysisMetrics(ctx, res.Duration, res, true)

	if res.Incomplete {
		logger.Warn("stage analysis hit a limit; results are partial",
			slog.String("types", strings.Join(res.IncompleteTypes(), ",")),
			slog.Int("max_stages", e.options.MaxStages),
			slog.Int("max_search_steps", e.options.MaxSearchSteps),
		)
		if e.options.StrictLimits {
			return res, fmt.Errorf("%w: %s", ErrAnalysisIncomplete, strings.Join(res.IncompleteTypes(), ", "))
		}
	}
	logger.Info("stage analysis complete",
		slog.Int("types", len(res.Types)),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// runPhase applies fn to every type with at most WorkerCount running at
// once. The first error cancels the remaining work.
func (e *Engine) runPhase(ctx context.Context, name string, types []*TypeResult, fn func(context.Context, *TypeResult) error) error {
	ctx, span := startPhaseSpan(ctx, name)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.WorkerCount)
	for _, tr := range types {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return fn(gCtx, tr)
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err, attribute.String("stages.phase", name))
		return err
	}
	return nil
}

// typeStages runs the per-type part of the pipeline.
func (e *Engine) typeStages(ctx context.Context, syn *synth.Synthesizer, logger *slog.Logger, tr *TypeResult) error {
	reg := tr.Registry
	reg.Classify()

	an := mutex.NewAnalyzer(reg,
		mutex.WithMaxSearchSteps(e.options.MaxSearchSteps),
		mutex.WithLogger(logger),
	)
	rel, err := an.Analyze(ctx)
	if err != nil {
		return err
	}
	tr.Mutex = rel

	basic, basicTruncated, err := syn.Basic(ctx, reg, rel)
	if err != nil {
		return err
	}
	additional, addTruncated, err := syn.Additional(ctx, reg)
	if err != nil {
		return err
	}

	tr.Stages.Basic = basic
	tr.Stages.Additional = additional
	tr.Stages.Truncated = basicTruncated || addTruncated
	tr.Incomplete = an.Exhausted() || tr.Stages.Truncated

	logger.Debug("type analysed",
		slog.String("type", tr.Type.Name),
		slog.Int("features", reg.Len()),
		slog.Int("rules", len(reg.Rules())),
		slog.Int("mutex_pairs", rel.Len()),
		slog.Int("basic_stages", len(basic)),
		slog.Int("additional_stages", len(additional)),
		slog.Bool("incomplete", tr.Incomplete),
	)
	return nil
}

// Classify returns the classification of every task object in res.
func (e *Engine) Classify(ctx context.Context, res *Result) ([]classify.ObjectReport, error) {
	if res == nil || res.Task == nil {
		return nil, ErrNilTask
	}
	_, span := startPhaseSpan(ctx, "Classify")
	defer span.End()

	c := res.Classifier()
	out := make([]classify.ObjectReport, 0, len(res.Task.Objects))
	for _, o := range res.Task.Objects {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		out = append(out, c.Object(o))
	}
	return out, nil
}
