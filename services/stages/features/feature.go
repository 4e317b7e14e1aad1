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

// FirstLetter is the letter bound to the distinguished slot of a registry
// feature.
const FirstLetter byte = 'x'

// NextLetter returns the letter following l, wrapping from 'z' to 'a'.
func NextLetter(l byte) byte {
	l++
	if l > 'z' {
		l = 'a'
	}
	return l
}

// Feature is a predicate observed from one of its argument positions.
//
// A registry feature has exactly one resolved slot, the distinguished
// position, bound to FirstLetter. Instances produced by a Pool resolve
// further slots to other types and letters while keeping the predicate and
// distinguished position of the feature they were derived from.
//
// Features are immutable once published.
type Feature struct {
	id       int
	pred     *task.Predicate
	pos      int
	args     []*task.Type
	letters  []byte
	class    Class
	combined bool
	origin   *Feature
}

func newFeature(id int, pred *task.Predicate, pos int) *Feature {
	f := &Feature{
		id:      id,
		pred:    pred,
		pos:     pos,
		args:    make([]*task.Type, pred.Arity()),
		letters: make([]byte, pred.Arity()),
	}
	f.args[pos] = pred.Args[pos]
	f.letters[pos] = FirstLetter
	f.origin = f
	return f
}

// ID returns the arena index of the feature in its registry, or -1 for a
// pooled instance.
func (f *Feature) ID() int { return f.id }

// Predicate returns the underlying predicate.
func (f *Feature) Predicate() *task.Predicate { return f.pred }

// Position returns the distinguished argument position.
func (f *Feature) Position() int { return f.pos }

// Arity returns the predicate arity.
func (f *Feature) Arity() int { return len(f.args) }

// Arg returns the resolved type of slot i, or nil if unresolved.
func (f *Feature) Arg(i int) *task.Type { return f.args[i] }

// Letter returns the letter bound to slot i, or 0 if unresolved.
func (f *Feature) Letter(i int) byte { return f.letters[i] }

// Bound reports whether slot i is resolved.
func (f *Feature) Bound(i int) bool { return f.args[i] != nil }

// Class returns the feature class. Pooled instances carry the class of the
// registry feature they derive from.
func (f *Feature) Class() Class { return f.class }

// Combined reports whether the feature was rebound while building a
// combined stage.
func (f *Feature) Combined() bool { return f.combined }

// Origin returns the registry feature this feature derives from.
func (f *Feature) Origin() *Feature { return f.origin }

// UnboundSlot returns the first unresolved slot, or -1.
func (f *Feature) UnboundSlot() int {
	for i, a := range f.args {
		if a == nil {
			return i
		}
	}
	return -1
}

// SameAs reports whether both features have the same predicate and
// distinguished position.
func (f *Feature) SameAs(other *Feature) bool {
	return f.pred == other.pred && f.pos == other.pos
}

// String renders the feature as "on(x - block, * - block)". Unresolved slots
// show "*" and the declared argument type.
func (f *Feature) String() string {
	var sb strings.Builder
	sb.WriteString(f.pred.Name)
	sb.WriteByte('(')
	for i, a := range f.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a == nil {
			sb.WriteString("* - ")
			sb.WriteString(f.pred.Args[i].Name)
			continue
		}
		sb.WriteByte(f.letters[i])
		sb.WriteString(" - ")
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

func (f *Feature) clone() *Feature {
	return &Feature{
		id:       -1,
		pred:     f.pred,
		pos:      f.pos,
		args:     append([]*task.Type(nil), f.args...),
		letters:  append([]byte(nil), f.letters...),
		class:    f.class,
		combined: f.combined,
		origin:   f.origin,
	}
}
