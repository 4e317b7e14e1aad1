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
	"log/slog"

	"github.com/AleutianAI/planstages/services/stages/features"
)

// ctxCheckInterval is how many search nodes are visited between context
// checks.
const ctxCheckInterval = 1024

// Synthesizer builds stage collections.
//
// Thread Safety: safe for concurrent use on distinct registries. The shared
// Pool serialises its own appends.
type Synthesizer struct {
	opts Options
	pool *features.Pool
}

// New returns a synthesizer that places combined features in pool.
func New(pool *features.Pool, opts ...Option) *Synthesizer {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if pool == nil {
		pool = features.NewPool()
	}
	return &Synthesizer{opts: o, pool: pool}
}

// collector accumulates a duplicate-free stage list under the stage limit.
type collector struct {
	ctx       context.Context
	limit     int
	stages    []Stage
	keys      map[string]struct{}
	truncated bool
	err       error
	visits    int
}

func newCollector(ctx context.Context, limit int) *collector {
	return &collector{ctx: ctx, limit: limit, keys: make(map[string]struct{})}
}

// done reports whether enumeration must stop. The context is checked on the
// first call and then every ctxCheckInterval calls.
func (c *collector) done() bool {
	if c.truncated || c.err != nil {
		return true
	}
	c.visits++
	if c.visits%ctxCheckInterval == 1 {
		if err := c.ctx.Err(); err != nil {
			c.err = err
			return true
		}
	}
	return false
}

func (c *collector) seen(key string) bool {
	_, ok := c.keys[key]
	return ok
}

// add appends s unless a stage with the same key exists.
func (c *collector) add(key string, s Stage) bool {
	if c.seen(key) {
		return false
	}
	if c.limit > 0 && len(c.stages) >= c.limit {
		c.truncated = true
		return false
	}
	c.keys[key] = struct{}{}
	c.stages = append(c.stages, s)
	return true
}

// Basic enumerates the basic stages of a classified registry.
//
// Description:
//
//	Every stage starts with all permanent features. Reversible features are
//	then added greedily in every order, skipping any feature that is mutex
//	with one already chosen, so each stage holds a maximal consistent set.
//	Next every consistent subset of transient features is tried, and
//	finally every subset of multiple features. Stages equal as sets are
//	kept once, in first-seen order.
//
//	Search states (chosen set, remaining candidates) are memoized. A state
//	that was fully explored can only produce stages already recorded, so
//	the result is the same as the exhaustive search.
//
// Outputs:
//
//	[]Stage - The stages in discovery order.
//	bool - True when the stage limit stopped enumeration.
//	error - Non-nil only when ctx was cancelled.
func (s *Synthesizer) Basic(ctx context.Context, reg *features.Registry, excl Exclusions) ([]Stage, bool, error) {
	b := &basicSearch{
		collector: newCollector(ctx, s.opts.MaxStages),
		reg:       reg,
		excl:      excl,
		transient: reg.ByClass(features.Transient),
		multiple:  reg.ByClass(features.Multiple),
		memo:      make(map[string]struct{}),
	}
	b.reversible(reg.ByClass(features.Permanent), reg.ByClass(features.Reversible))
	if b.err != nil {
		return nil, false, b.err
	}

	s.opts.Logger.Debug("basic stages synthesized",
		slog.String("type", reg.Type().Name),
		slog.Int("stages", len(b.stages)),
		slog.Int("states", len(b.memo)),
		slog.Bool("truncated", b.truncated),
	)
	return b.stages, b.truncated, nil
}

type basicSearch struct {
	*collector
	reg       *features.Registry
	excl      Exclusions
	transient []int
	multiple  []int
	memo      map[string]struct{}
}

func (b *basicSearch) reversible(stage, rem []int) {
	if b.done() {
		return
	}
	if len(rem) == 0 {
		b.transients(stage, b.transient)
		return
	}
	if !b.firstVisit('r', stage, rem) {
		return
	}
	for i, cur := range rem {
		next := without(rem, i)
		if b.conflicts(stage, cur) {
			b.reversible(stage, next)
		} else {
			b.reversible(with(stage, cur), next)
		}
	}
}

func (b *basicSearch) transients(stage, rem []int) {
	if b.done() {
		return
	}
	if len(rem) == 0 {
		b.multiples(stage)
		return
	}
	if !b.firstVisit('t', stage, rem) {
		return
	}
	for i, cur := range rem {
		next := without(rem, i)
		b.transients(stage, next)
		if !b.conflicts(stage, cur) {
			b.transients(with(stage, cur), next)
		}
	}
}

func (b *basicSearch) multiples(stage []int) {
	if b.seen(b.setKey(stage)) {
		return
	}
	b.powerSet(stage, 0)
}

// powerSet excludes b.multiple[k] before including it.
func (b *basicSearch) powerSet(stage []int, k int) {
	if b.done() {
		return
	}
	if k < len(b.multiple) {
		b.powerSet(stage, k+1)
		b.powerSet(with(stage, b.multiple[k]), k+1)
		return
	}
	b.add(b.setKey(stage), fromIndices(b.reg, stage))
}

func (b *basicSearch) conflicts(stage []int, cur int) bool {
	for _, f := range stage {
		if f == cur || b.excl.Has(f, cur) {
			return true
		}
	}
	return false
}

func (b *basicSearch) firstVisit(phase byte, stage, rem []int) bool {
	key := string(phase) + b.setKey(stage) + "|" + b.setKey(rem)
	if _, ok := b.memo[key]; ok {
		return false
	}
	b.memo[key] = struct{}{}
	return true
}

func (b *basicSearch) setKey(idx []int) string {
	return features.SetOf(b.reg.Len(), idx...).Key()
}

// Additional enumerates every subset of the static and attribute features,
// excluding each feature before including it.
func (s *Synthesizer) Additional(ctx context.Context, reg *features.Registry) ([]Stage, bool, error) {
	var members []int
	for i, f := range reg.Features() {
		if f.Class().Additional() {
			members = append(members, i)
		}
	}
	c := newCollector(ctx, s.opts.MaxStages)
	var walk func(stage []int, k int)
	walk = func(stage []int, k int) {
		if c.done() {
			return
		}
		if k < len(members) {
			walk(stage, k+1)
			walk(with(stage, members[k]), k+1)
			return
		}
		c.add(features.SetOf(reg.Len(), stage...).Key(), fromIndices(reg, stage))
	}
	walk(nil, 0)
	if c.err != nil {
		return nil, false, c.err
	}

	s.opts.Logger.Debug("additional stages synthesized",
		slog.String("type", reg.Type().Name),
		slog.Int("stages", len(c.stages)),
		slog.Bool("truncated", c.truncated),
	)
	return c.stages, c.truncated, nil
}

// with returns a copy of s with x appended.
func with(s []int, x int) []int {
	out := make([]int, len(s), len(s)+1)
	copy(out, s)
	return append(out, x)
}

// without returns a copy of s with element i removed.
func without(s []int, i int) []int {
	out := make([]int, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
