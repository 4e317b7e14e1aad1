// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report turns analysis results into serialisable reports.
//
// Reports keep every collection in analysis order: features in registry
// order, stages in synthesis order. Stage identifiers are "BS", "AS" and
// "CS" followed by the 1-based stage index; objects that match no stage
// carry index 0 ("CS0", "AS0").
package report

import (
	"strconv"

	"github.com/AleutianAI/planstages/services/stages/classify"
	"github.com/AleutianAI/planstages/services/stages/engine"
	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/synth"
)

// Stage identifier prefixes.
const (
	BasicPrefix      = "BS"
	AdditionalPrefix = "AS"
	CombinedPrefix   = "CS"
)

// Report bundles a domain report with an optional problem report. It is
// the unit stored in the report cache.
type Report struct {
	Domain  *DomainReport  `json:"domain"`
	Problem *ProblemReport `json:"problem,omitempty"`
}

// DomainReport describes the analysis of every type.
type DomainReport struct {
	RunID      string       `json:"runId,omitempty"`
	Incomplete bool         `json:"incomplete,omitempty"`
	Types      []TypeReport `json:"types"`
}

// TypeReport describes one type.
type TypeReport struct {
	Type             string         `json:"type"`
	Features         []FeatureEntry `json:"features"`
	TransitionRules  []string       `json:"transitionRules"`
	Mutex            []MutexEntry   `json:"mutex"`
	BasicStages      []StageEntry   `json:"basicStages"`
	AdditionalStages []StageEntry   `json:"additionalStages"`
	CombinedStages   []StageEntry   `json:"combinedStages"`
	Incomplete       bool           `json:"incomplete,omitempty"`
}

// FeatureEntry is a used feature and its class name.
type FeatureEntry struct {
	Feature string `json:"feature"`
	Class   string `json:"class"`
}

// MutexEntry lists the features mutually exclusive with Feature.
type MutexEntry struct {
	Feature  string   `json:"feature"`
	Partners []string `json:"partners"`
}

// StageEntry is one identified stage.
type StageEntry struct {
	ID       string   `json:"id"`
	Features []string `json:"features"`
}

// ProblemReport classifies every object of the task.
type ProblemReport struct {
	Objects []ObjectEntry `json:"objects"`
}

// ObjectEntry is the classification of one object.
type ObjectEntry struct {
	Object        string   `json:"object"`
	Type          string   `json:"type"`
	Stage         string   `json:"stage"`
	AddStage      string   `json:"addStage"`
	GoalStages    []string `json:"goalStages"`
	AddGoalStages []string `json:"addGoalStages"`
	GoalAchieved  int      `json:"goalAchieved"`
}

// StageID returns prefix followed by the 1-based index.
func StageID(prefix string, index int) string {
	return prefix + strconv.Itoa(index)
}

// Domain builds the domain report of res.
func Domain(res *engine.Result) *DomainReport {
	out := &DomainReport{
		RunID:      res.RunID,
		Incomplete: res.Incomplete,
		Types:      make([]TypeReport, 0, len(res.Types)),
	}
	for _, tr := range res.Types {
		out.Types = append(out.Types, typeReport(tr))
	}
	return out
}

func typeReport(tr *engine.TypeResult) TypeReport {
	reg := tr.Registry
	rep := TypeReport{
		Type:             tr.Type.Name,
		Features:         []FeatureEntry{},
		TransitionRules:  make([]string, 0, len(reg.Rules())),
		Mutex:            []MutexEntry{},
		BasicStages:      stageEntries(BasicPrefix, tr.Stages.Basic),
		AdditionalStages: stageEntries(AdditionalPrefix, tr.Stages.Additional),
		CombinedStages:   stageEntries(CombinedPrefix, tr.Stages.Combined),
		Incomplete:       tr.Incomplete,
	}
	for _, f := range reg.Features() {
		if f.Class() == features.Unused {
			continue
		}
		rep.Features = append(rep.Features, FeatureEntry{Feature: f.String(), Class: f.Class().String()})
	}
	for _, rule := range reg.Rules() {
		rep.TransitionRules = append(rep.TransitionRules, reg.RuleString(rule))
	}
	if tr.Mutex != nil {
		for i, f := range reg.Features() {
			partners := tr.Mutex.Partners(i)
			if f.Class() == features.Unused || len(partners) == 0 {
				continue
			}
			entry := MutexEntry{Feature: f.String(), Partners: make([]string, len(partners))}
			for k, j := range partners {
				entry.Partners[k] = reg.Feature(j).String()
			}
			rep.Mutex = append(rep.Mutex, entry)
		}
	}
	return rep
}

func stageEntries(prefix string, stages []synth.Stage) []StageEntry {
	out := make([]StageEntry, len(stages))
	for i, s := range stages {
		out[i] = StageEntry{ID: StageID(prefix, i+1), Features: s.Strings()}
	}
	return out
}

// Problem builds the problem report from per-object classifications.
func Problem(reports []classify.ObjectReport) *ProblemReport {
	out := &ProblemReport{Objects: make([]ObjectEntry, 0, len(reports))}
	for _, r := range reports {
		entry := ObjectEntry{
			Object:        r.Object.Name,
			Type:          r.Object.Type.Name,
			Stage:         StageID(CombinedPrefix, r.Stage),
			AddStage:      StageID(AdditionalPrefix, r.AdditionalStage),
			GoalStages:    stageIDs(CombinedPrefix, r.GoalStages),
			AddGoalStages: stageIDs(AdditionalPrefix, r.AdditionalGoalStages),
		}
		if r.GoalAchieved {
			entry.GoalAchieved = 1
		}
		out.Objects = append(out.Objects, entry)
	}
	return out
}

func stageIDs(prefix string, idx []int) []string {
	out := make([]string, len(idx))
	for i, k := range idx {
		out[i] = StageID(prefix, k)
	}
	return out
}

// New assembles a report. A nil objects slice leaves the problem part
// empty; an empty non-nil slice yields an empty problem report.
func New(res *engine.Result, objects []classify.ObjectReport) *Report {
	rep := &Report{Domain: Domain(res)}
	if objects != nil {
		rep.Problem = Problem(objects)
	}
	return rep
}
