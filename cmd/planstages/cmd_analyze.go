// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/planstages/cmd/planstages/config"
	"github.com/AleutianAI/planstages/services/stages/engine"
	"github.com/AleutianAI/planstages/services/stages/report"
	"github.com/AleutianAI/planstages/services/stages/storage"
	"github.com/AleutianAI/planstages/services/stages/task"
)

// ErrNoObjects is returned by classify when the task declares no objects.
var ErrNoObjects = errors.New("task declares no objects to classify")

func (c *cli) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze DOMAIN [PROBLEM]",
		Short: "Report features, mutex pairs and stages of every type",
		Long: `Analyze a grounded task and print, for every type, the classified
features, the transition rules, the mutex pairs and the basic (BS),
additional (AS) and combined (CS) stages.

When the documents declare objects, the classification of every object is
appended (see 'planstages classify').

Examples:
  planstages analyze blocks.yaml
  planstages analyze domain.yaml problem.yaml --json
  planstages analyze task.json --max-stages 5000 --strict`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache := c.openCache()
			defer closeCache()
			rep, err := c.analyse(cmd.Context(), cache, args)
			if rep != nil {
				if werr := c.render(rep); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}

func (c *cli) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify DOMAIN [PROBLEM]",
		Short: "Place every problem object in its current and goal stages",
		Long: `Classify the objects of a problem. For every object the report shows
the first combined stage matching the initial state (stage), the last
additional stage it satisfies (addStage), the combined and additional
stages consistent with the goal, and whether its goals already hold.

Examples:
  planstages classify domain.yaml problem.yaml
  planstages classify task.yaml --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache := c.openCache()
			defer closeCache()
			rep, err := c.analyse(cmd.Context(), cache, args)
			if rep == nil {
				return err
			}
			if rep.Problem == nil {
				return ErrNoObjects
			}
			if werr := c.render(&report.Report{Problem: rep.Problem}); werr != nil {
				return werr
			}
			return err
		},
	}
}

// inputs is a resolved task plus the raw documents it came from.
type inputs struct {
	task *task.Task
	raw  [][]byte
}

func (c *cli) load(paths []string) (*inputs, error) {
	in := &inputs{}
	docs := make([]*task.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read task document: %w", err)
		}
		doc, err := task.Load(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		in.raw = append(in.raw, data)
		docs = append(docs, doc)
	}
	merged := docs[0]
	if len(docs) > 1 {
		merged = task.Merge(docs[0], docs[1])
	}
	t, err := task.Resolve(merged, c.slog())
	if err != nil {
		return nil, err
	}
	in.task = t
	return in, nil
}

// analyse loads the documents and returns their report, from the cache
// when possible. With strict limits a partial report is returned together
// with engine.ErrAnalysisIncomplete.
func (c *cli) analyse(ctx context.Context, cache *storage.ReportCache, paths []string) (*report.Report, error) {
	in, err := c.load(paths)
	if err != nil {
		return nil, err
	}
	logger := c.slog()

	var key string
	if cache != nil {
		key = c.cacheKey(in)
		var rep report.Report
		ok, err := cache.Get(ctx, key, &rep)
		if err != nil {
			logger.Warn("report cache read failed", slog.String("error", err.Error()))
		}
		if ok {
			return &rep, c.strictError(&rep)
		}
	}

	eng := c.engine()
	res, err := eng.Analyze(ctx, in.task)
	if res == nil {
		return nil, err
	}
	rep := report.New(res, nil)
	if len(in.task.Objects) > 0 {
		classified, cerr := eng.Classify(ctx, res)
		if cerr != nil {
			return nil, cerr
		}
		rep = report.New(res, classified)
	}

	if cache != nil {
		if perr := cache.Put(ctx, key, rep, c.cfg.Cache.TTL); perr != nil {
			logger.Warn("report cache write failed", slog.String("error", perr.Error()))
		}
	}
	return rep, err
}

func (c *cli) strictError(rep *report.Report) error {
	if c.cfg.Analysis.Strict && rep.Domain != nil && rep.Domain.Incomplete {
		return fmt.Errorf("%w (cached report)", engine.ErrAnalysisIncomplete)
	}
	return nil
}

// cacheKey covers the documents and every setting that changes the report.
func (c *cli) cacheKey(in *inputs) string {
	a := c.cfg.Analysis
	parts := append([][]byte{}, in.raw...)
	parts = append(parts,
		[]byte("report/v1"),
		[]byte(strconv.Itoa(a.MaxStages)),
		[]byte(strconv.Itoa(a.MaxSearchSteps)),
	)
	return storage.Key(parts...)
}

// openCache opens the report cache if enabled. Failing to open it only
// disables caching.
func (c *cli) openCache() (*storage.ReportCache, func()) {
	if !c.cfg.Cache.Enabled {
		return nil, func() {}
	}
	logger := c.slog()
	cfg := storage.DefaultConfig(config.ExpandHome(c.cfg.Cache.Dir))
	cfg.Logger = logger
	db, err := storage.Open(cfg)
	if err != nil {
		logger.Warn("report cache disabled", slog.String("error", err.Error()))
		return nil, func() {}
	}
	return storage.NewReportCache(db, logger), func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing report cache", slog.String("error", err.Error()))
		}
	}
}

func (c *cli) render(rep *report.Report) error {
	if c.jsonOutput {
		if rep.Domain == nil {
			return report.WriteJSON(c.out, rep.Problem)
		}
		return report.WriteJSON(c.out, rep)
	}
	return report.WriteText(c.out, rep, report.TextOptions{Color: c.color()})
}
