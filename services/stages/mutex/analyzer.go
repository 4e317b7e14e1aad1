// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mutex

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/planstages/services/stages/features"
)

// Options configures an Analyzer.
type Options struct {
	// MaxSearchSteps bounds the number of path extensions the witness search
	// may perform over the whole analysis. Zero means unlimited.
	MaxSearchSteps int

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Options)

// WithMaxSearchSteps bounds the witness search.
func WithMaxSearchSteps(n int) Option {
	return func(o *Options) {
		o.MaxSearchSteps = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Analyzer decides which pairs of transient and reversible features of one
// registry can never hold together for the same object.
//
// Two candidate features u and v are mutex when one is reachable from the
// other in the transition graph and no third feature w witnesses a split.
// A witness is a rule that deletes w and adds several features (or adds w
// and deletes several) from which two paths, disjoint apart from w, lead
// to u and v. Paths never pass through Unbound.
//
// Thread Safety: an Analyzer is single use and not safe for concurrent use.
type Analyzer struct {
	reg       *features.Registry
	opts      Options
	steps     int
	exhausted bool
	onPath    []bool
	onOther   []bool
}

// NewAnalyzer returns an analyzer over a classified registry.
func NewAnalyzer(reg *features.Registry, opts ...Option) *Analyzer {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Analyzer{
		reg:     reg,
		opts:    o,
		onPath:  make([]bool, reg.Len()),
		onOther: make([]bool, reg.Len()),
	}
}

// Analyze checks every pair of candidates in arena order and returns the
// resulting relation. When the search budget runs out, the remaining pairs
// are left out of the relation and Exhausted reports true.
func (a *Analyzer) Analyze(ctx context.Context) (*Relation, error) {
	rel := NewRelation()
	var candidates []int
	for i, f := range a.reg.Features() {
		if f.Class().MutexCandidate() {
			candidates = append(candidates, i)
		}
	}

	for ci, u := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, v := range candidates[ci+1:] {
			if a.Mutex(u, v) {
				rel.Add(u, v)
			}
		}
	}

	a.opts.Logger.Debug("mutex analysis complete",
		slog.String("type", a.reg.Type().Name),
		slog.Int("candidates", len(candidates)),
		slog.Int("pairs", rel.Len()),
		slog.Int("steps", a.steps),
		slog.Bool("exhausted", a.exhausted),
	)
	return rel, nil
}

// Exhausted reports whether the search budget ran out.
func (a *Analyzer) Exhausted() bool { return a.exhausted }

// Steps returns the number of path extensions performed so far.
func (a *Analyzer) Steps() int { return a.steps }

// Mutex decides a single pair. An exhausted budget yields false.
func (a *Analyzer) Mutex(u, v int) bool {
	if a.exhausted {
		return false
	}
	nu, nv := features.Node(u), features.Node(v)
	if !a.reg.Reachable(nu, nv) && !a.reg.Reachable(nv, nu) {
		return false
	}
	for w := 0; w < a.reg.Len(); w++ {
		if w == u || w == v {
			continue
		}
		for _, rule := range a.reg.Rules() {
			if len(rule.Right) > 1 && contains(rule.Left, w) && a.divergent(w, u, v, rule.Right, true) {
				return false
			}
			if len(rule.Left) > 1 && contains(rule.Right, w) && a.divergent(w, u, v, rule.Left, false) {
				return false
			}
			if a.exhausted {
				return false
			}
		}
	}
	return true
}

// divergent looks for two paths leaving w through distinct members of
// branch, one ending in u and the other in v, sharing no node but w. With
// forward false the paths follow edges backwards into w.
func (a *Analyzer) divergent(w, u, v int, branch []int, forward bool) bool {
	pathU := []int{w}
	a.onPath[w] = true
	defer func() { a.onPath[w] = false }()

	for _, first := range branch {
		if a.onPath[first] || !a.step() {
			continue
		}
		pathU = append(pathU, first)
		a.onPath[first] = true
		found := a.towardsU(pathU, u, v, branch, forward)
		a.onPath[first] = false
		pathU = pathU[:len(pathU)-1]
		if found {
			return true
		}
	}
	return false
}

// towardsU extends pathU until it reaches u, then tries to branch a second
// path towards v.
func (a *Analyzer) towardsU(pathU []int, u, v int, branch []int, forward bool) bool {
	last := pathU[len(pathU)-1]
	if last == u {
		return a.branchToV(v, branch, forward)
	}
	for _, n := range a.adjacent(last, forward) {
		if n.IsUnbound() {
			continue
		}
		next := int(n)
		if a.onPath[next] || !a.step() {
			continue
		}
		a.onPath[next] = true
		found := a.towardsU(append(pathU, next), u, v, branch, forward)
		a.onPath[next] = false
		if found {
			return true
		}
	}
	return false
}

func (a *Analyzer) branchToV(v int, branch []int, forward bool) bool {
	for _, first := range branch {
		if a.onPath[first] || !a.step() {
			continue
		}
		a.onOther[first] = true
		found := a.towardsV(first, v, forward)
		a.onOther[first] = false
		if found {
			return true
		}
	}
	return false
}

func (a *Analyzer) towardsV(last, v int, forward bool) bool {
	if last == v {
		return true
	}
	for _, n := range a.adjacent(last, forward) {
		if n.IsUnbound() {
			continue
		}
		next := int(n)
		if a.onPath[next] || a.onOther[next] || !a.step() {
			continue
		}
		a.onOther[next] = true
		found := a.towardsV(next, v, forward)
		a.onOther[next] = false
		if found {
			return true
		}
	}
	return false
}

func (a *Analyzer) adjacent(i int, forward bool) []features.Node {
	if forward {
		return a.reg.OutAdjacent(features.Node(i))
	}
	return a.reg.InAdjacent(features.Node(i))
}

// step charges one path extension against the budget.
func (a *Analyzer) step() bool {
	if a.exhausted {
		return false
	}
	a.steps++
	if a.opts.MaxSearchSteps > 0 && a.steps > a.opts.MaxSearchSteps {
		a.exhausted = true
		return false
	}
	return true
}

func contains(s []int, x int) bool {
	for _, v := range s {
		if v == x {
			return true
		}
	}
	return false
}
