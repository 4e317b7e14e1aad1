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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for engine operations.
var (
	tracer = otel.Tracer("planstages.engine")
	meter  = otel.Meter("planstages.engine")
)

// Metrics for analysis runs.
var (
	analysisLatency metric.Float64Histogram
	analysisTotal   metric.Int64Counter
	stagesCreated   metric.Int64Histogram
	mutexPairs      metric.Int64Histogram
	incompleteTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisLatency, err = meter.Float64Histogram(
			"stages_analysis_duration_seconds",
			metric.WithDescription("Duration of stage analysis runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisTotal, err = meter.Int64Counter(
			"stages_analysis_total",
			metric.WithDescription("Total number of stage analysis runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stagesCreated, err = meter.Int64Histogram(
			"stages_created",
			metric.WithDescription("Number of stages created per type and kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		mutexPairs, err = meter.Int64Histogram(
			"stages_mutex_pairs",
			metric.WithDescription("Number of mutex pairs per type"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		incompleteTotal, err = meter.Int64Counter(
			"stages_incomplete_total",
			metric.WithDescription("Number of types whose analysis hit a limit"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAnalysisMetrics records metrics for a finished run.
func recordAnalysisMetrics(ctx context.Context, duration time.Duration, res *Result, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	analysisLatency.Record(ctx, duration.Seconds(), attrs)
	analysisTotal.Add(ctx, 1, attrs)

	if res == nil {
		return
	}
	for _, tr := range res.Types {
		typeAttr := attribute.String("type", tr.Type.Name)
		stagesCreated.Record(ctx, int64(len(tr.Stages.Basic)),
			metric.WithAttributes(typeAttr, attribute.String("kind", "basic")))
		stagesCreated.Record(ctx, int64(len(tr.Stages.Additional)),
			metric.WithAttributes(typeAttr, attribute.String("kind", "additional")))
		stagesCreated.Record(ctx, int64(len(tr.Stages.Combined)),
			metric.WithAttributes(typeAttr, attribute.String("kind", "combined")))
		if tr.Mutex != nil {
			mutexPairs.Record(ctx, int64(tr.Mutex.Len()), metric.WithAttributes(typeAttr))
		}
		if tr.Incomplete {
			incompleteTotal.Add(ctx, 1, metric.WithAttributes(typeAttr))
		}
	}
}

// startAnalyzeSpan creates a span for an analysis run.
func startAnalyzeSpan(ctx context.Context, typeCount, operatorCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Analyze",
		trace.WithAttributes(
			attribute.Int("stages.type_count", typeCount),
			attribute.Int("stages.operator_count", operatorCount),
		),
	)
}

// startPhaseSpan creates a span for one pipeline phase.
func startPhaseSpan(ctx context.Context, phase string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine."+phase,
		trace.WithAttributes(attribute.String("stages.phase", phase)),
	)
}

// setAnalyzeSpanResult sets the result attributes on an analysis span.
func setAnalyzeSpanResult(span trace.Span, res *Result) {
	features, stages := 0, 0
	for _, tr := range res.Types {
		features += tr.Registry.Len()
		stages += len(tr.Stages.Combined)
	}
	span.SetAttributes(
		attribute.String("stages.run_id", res.RunID),
		attribute.Int("stages.feature_count", features),
		attribute.Int("stages.combined_count", stages),
		attribute.Bool("stages.incomplete", res.Incomplete),
	)
}
