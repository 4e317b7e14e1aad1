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

// Node is a vertex of a registry transition graph: either the arena index of
// a feature or Unbound.
type Node int

// Unbound stands for "no feature" on the empty side of a transition rule.
const Unbound Node = -1

// IsUnbound reports whether n is the Unbound sentinel.
func (n Node) IsUnbound() bool { return n == Unbound }

// TransitionRule records how one operator, seen from one of its parameters,
// changes the features of that parameter. Members are arena indices.
type TransitionRule struct {
	// Enabler holds features required by the operator preconditions.
	Enabler []int

	// Left holds features deleted by the operator.
	Left []int

	// Right holds features added by the operator.
	Right []int
}

// Equal reports whether both rules hold the same three sets, ignoring order.
func (r TransitionRule) Equal(other TransitionRule) bool {
	return sameMembers(r.Enabler, other.Enabler) &&
		sameMembers(r.Left, other.Left) &&
		sameMembers(r.Right, other.Right)
}

func sameMembers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !containsIndex(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !containsIndex(a, x) {
			return false
		}
	}
	return true
}

func containsIndex(s []int, x int) bool {
	for _, v := range s {
		if v == x {
			return true
		}
	}
	return false
}

func containsNode(s []Node, n Node) bool {
	for _, v := range s {
		if v == n {
			return true
		}
	}
	return false
}
