// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package features

import (
	"strings"

	"github.com/AleutianAI/planstages/services/stages/task"
)

type featureKey struct {
	pred *task.Predicate
	pos  int
}

// Registry owns the features and transition rules of one type.
//
// Features live in an arena addressed by index; transition rules refer to
// them by index. A registry is filled by Derive and frozen by Classify.
//
// Thread Safety: not safe for concurrent mutation. After Classify returns the
// registry is read-only and safe for concurrent reads.
type Registry struct {
	typ      *task.Type
	features []*Feature
	byKey    map[featureKey]int
	rules    []TransitionRule

	// adjacency caches, offset by one so that Unbound maps to slot 0.
	out [][]Node
	in  [][]Node
}

// NewRegistry creates the registry of t holding one feature per predicate
// argument position declared with exactly type t.
func NewRegistry(t *task.Type, preds []*task.Predicate) *Registry {
	r := &Registry{typ: t, byKey: make(map[featureKey]int)}
	for _, p := range preds {
		for pos, a := range p.Args {
			if a == t {
				r.Add(p, pos)
			}
		}
	}
	return r
}

// NewRegistries creates one registry per task type, indexed like t.Types.
func NewRegistries(t *task.Task) []*Registry {
	regs := make([]*Registry, len(t.Types))
	for i, ty := range t.Types {
		regs[i] = NewRegistry(ty, t.Predicates)
	}
	return regs
}

// Type returns the type owning the registry.
func (r *Registry) Type() *task.Type { return r.typ }

// Add registers the feature (pred, pos) and returns its arena index. Adding
// an existing feature returns the existing index.
func (r *Registry) Add(pred *task.Predicate, pos int) int {
	k := featureKey{pred, pos}
	if i, ok := r.byKey[k]; ok {
		return i
	}
	i := len(r.features)
	r.features = append(r.features, newFeature(i, pred, pos))
	r.byKey[k] = i
	r.invalidate()
	return i
}

// Len returns the number of features.
func (r *Registry) Len() int { return len(r.features) }

// Feature returns the feature at arena index i.
func (r *Registry) Feature(i int) *Feature { return r.features[i] }

// Features returns the arena in index order. Callers must not modify it.
func (r *Registry) Features() []*Feature { return r.features }

// Lookup returns the index of the feature (pred, pos).
func (r *Registry) Lookup(pred *task.Predicate, pos int) (int, bool) {
	i, ok := r.byKey[featureKey{pred, pos}]
	return i, ok
}

// Equivalent returns the registry feature observing f's predicate from slot.
func (r *Registry) Equivalent(f *Feature, slot int) (*Feature, bool) {
	i, ok := r.Lookup(f.pred, slot)
	if !ok {
		return nil, false
	}
	return r.features[i], true
}

// AddRule appends a transition rule unless it is empty or equal to an
// existing rule. It reports whether the rule was added.
func (r *Registry) AddRule(enabler, left, right []int) bool {
	if len(left) == 0 && len(right) == 0 {
		return false
	}
	rule := TransitionRule{Enabler: enabler, Left: left, Right: right}
	for _, existing := range r.rules {
		if existing.Equal(rule) {
			return false
		}
	}
	r.rules = append(r.rules, rule)
	r.invalidate()
	return true
}

// Rules returns the transition rules in insertion order.
func (r *Registry) Rules() []TransitionRule { return r.rules }

// Used reports whether feature i occurs in any rule.
func (r *Registry) Used(i int) bool {
	for _, rule := range r.rules {
		if containsIndex(rule.Enabler, i) || containsIndex(rule.Left, i) || containsIndex(rule.Right, i) {
			return true
		}
	}
	return false
}

// OutAdjacent returns the successors of n: the right side of every rule whose
// left side holds n, or Unbound when that right side is empty. For Unbound
// the rules with an empty left side are used.
func (r *Registry) OutAdjacent(n Node) []Node {
	if r.out != nil {
		return r.out[n+1]
	}
	return r.adjacent(n, true)
}

// InAdjacent returns the predecessors of n, mirroring OutAdjacent.
func (r *Registry) InAdjacent(n Node) []Node {
	if r.in != nil {
		return r.in[n+1]
	}
	return r.adjacent(n, false)
}

func (r *Registry) adjacent(n Node, forward bool) []Node {
	var adj []Node
	for _, rule := range r.rules {
		from, to := rule.Left, rule.Right
		if !forward {
			from, to = rule.Right, rule.Left
		}
		if n.IsUnbound() {
			if len(from) != 0 {
				continue
			}
		} else if !containsIndex(from, int(n)) {
			continue
		}
		if len(to) == 0 {
			if !containsNode(adj, Unbound) {
				adj = append(adj, Unbound)
			}
			continue
		}
		for _, i := range to {
			if !containsNode(adj, Node(i)) {
				adj = append(adj, Node(i))
			}
		}
	}
	return adj
}

// Reachable reports whether a non-empty path leads from one node to another.
// A path of length zero from a node to itself does not count; an explicit
// self-loop edge does not count either when from == to, so a feature reaches
// itself only through a longer cycle.
func (r *Registry) Reachable(from, to Node) bool {
	visited := make([]bool, len(r.features)+1)
	visited[from+1] = true
	return r.reach(from, from, to, visited)
}

func (r *Registry) reach(cur, orig, dst Node, visited []bool) bool {
	for _, next := range r.OutAdjacent(cur) {
		if next == dst {
			if cur != orig || dst != orig {
				return true
			}
			continue
		}
		if visited[next+1] {
			continue
		}
		visited[next+1] = true
		if r.reach(next, orig, dst, visited) {
			return true
		}
	}
	return false
}

// Classify assigns a class to every feature and freezes the adjacency
// caches. Classes are decided in precedence order: unused, static,
// attribute, permanent, multiple, reversible, transient.
func (r *Registry) Classify() {
	r.freeze()
	for i, f := range r.features {
		f.class = r.classOf(i)
	}
}

func (r *Registry) classOf(i int) Class {
	if !r.Used(i) {
		return Unused
	}
	n := Node(i)
	adj := append([]Node(nil), r.OutAdjacent(n)...)
	for _, p := range r.InAdjacent(n) {
		if !containsNode(adj, p) {
			adj = append(adj, p)
		}
	}
	switch {
	case len(adj) == 0:
		return Static
	case len(adj) == 1 && adj[0] == Unbound:
		return Attribute
	case len(adj) == 1 && adj[0] == n:
		return Permanent
	case r.Reachable(Unbound, n):
		return Multiple
	case r.Reachable(n, n):
		return Reversible
	default:
		return Transient
	}
}

// ByClass returns the indices of features of class c in arena order.
func (r *Registry) ByClass(c Class) []int {
	var out []int
	for i, f := range r.features {
		if f.class == c {
			out = append(out, i)
		}
	}
	return out
}

// RuleString renders a rule as "enablers: left -> right" with "null" for an
// empty side.
func (r *Registry) RuleString(rule TransitionRule) string {
	return r.joinFeatures(rule.Enabler) + ": " + r.joinFeatures(rule.Left) + " -> " + r.joinFeatures(rule.Right)
}

func (r *Registry) joinFeatures(idx []int) string {
	if len(idx) == 0 {
		return "null"
	}
	parts := make([]string, len(idx))
	for k, i := range idx {
		parts[k] = r.features[i].String()
	}
	return strings.Join(parts, ", ")
}

func (r *Registry) freeze() {
	n := len(r.features) + 1
	out := make([][]Node, n)
	in := make([][]Node, n)
	for k := 0; k < n; k++ {
		out[k] = r.adjacent(Node(k-1), true)
		in[k] = r.adjacent(Node(k-1), false)
	}
	r.out, r.in = out, in
}

func (r *Registry) invalidate() {
	r.out, r.in = nil, nil
}
