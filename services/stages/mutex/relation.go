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
	"github.com/AleutianAI/planstages/services/stages/features"
	"github.com/AleutianAI/planstages/services/stages/task"
)

type pairKey struct{ lo, hi int }

func newPairKey(i, j int) pairKey {
	if i > j {
		i, j = j, i
	}
	return pairKey{i, j}
}

// Relation is a symmetric set of mutually exclusive feature pairs within one
// registry. Members are arena indices.
//
// Thread Safety: not safe for concurrent mutation; safe for concurrent reads
// once the analyzer that built it has returned.
type Relation struct {
	pairs    map[pairKey]struct{}
	order    []pairKey
	partners map[int][]int
}

// NewRelation returns an empty relation.
func NewRelation() *Relation {
	return &Relation{
		pairs:    make(map[pairKey]struct{}),
		partners: make(map[int][]int),
	}
}

// Add records i and j as mutually exclusive. It reports whether the pair is
// new. A feature is never mutex with itself.
func (r *Relation) Add(i, j int) bool {
	if i == j {
		return false
	}
	k := newPairKey(i, j)
	if _, ok := r.pairs[k]; ok {
		return false
	}
	r.pairs[k] = struct{}{}
	r.order = append(r.order, k)
	r.partners[i] = append(r.partners[i], j)
	r.partners[j] = append(r.partners[j], i)
	return true
}

// Has reports whether i and j are mutually exclusive, in either order.
func (r *Relation) Has(i, j int) bool {
	_, ok := r.pairs[newPairKey(i, j)]
	return ok
}

// Partners returns the features mutex with i in insertion order.
func (r *Relation) Partners(i int) []int {
	return r.partners[i]
}

// Pairs returns every pair once, lower index first, in insertion order.
func (r *Relation) Pairs() [][2]int {
	out := make([][2]int, len(r.order))
	for n, k := range r.order {
		out[n] = [2]int{k.lo, k.hi}
	}
	return out
}

// Len returns the number of pairs.
func (r *Relation) Len() int {
	return len(r.order)
}

// PartnersOf returns the features of reg mutex with the feature (pred, pos),
// or nil when reg has no such feature.
func (r *Relation) PartnersOf(reg *features.Registry, pred *task.Predicate, pos int) []*features.Feature {
	i, ok := reg.Lookup(pred, pos)
	if !ok {
		return nil
	}
	idx := r.partners[i]
	out := make([]*features.Feature, len(idx))
	for n, j := range idx {
		out[n] = reg.Feature(j)
	}
	return out
}
