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
	"math/bits"
	"strconv"
	"strings"
)

// Set is a bitset over registry arena indices.
type Set []uint64

// NewSet returns an empty set able to hold indices below n.
func NewSet(n int) Set {
	return make(Set, (n+63)/64)
}

// SetOf returns a set holding the given indices.
func SetOf(n int, idx ...int) Set {
	s := NewSet(n)
	for _, i := range idx {
		s.Add(i)
	}
	return s
}

// Add inserts i.
func (s Set) Add(i int) { s[i/64] |= 1 << (uint(i) % 64) }

// Remove deletes i.
func (s Set) Remove(i int) { s[i/64] &^= 1 << (uint(i) % 64) }

// Has reports whether i is present.
func (s Set) Has(i int) bool {
	if i < 0 || i/64 >= len(s) {
		return false
	}
	return s[i/64]&(1<<(uint(i)%64)) != 0
}

// Len returns the number of members.
func (s Set) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	return append(Set(nil), s...)
}

// Key returns a string usable as a map key.
func (s Set) Key() string {
	var sb strings.Builder
	for i, w := range s {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(w, 36))
	}
	return sb.String()
}
