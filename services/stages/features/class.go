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
	"fmt"
	"strings"
)

// Class is the dynamic behaviour of a feature across all reachable states.
type Class int

const (
	// Unused features never appear in any transition rule.
	Unused Class = iota

	// Static features occur only as enablers and never change.
	Static

	// Attribute features are only added from or deleted to nothing.
	Attribute

	// Permanent features only transition into themselves.
	Permanent

	// Multiple features are reachable from nothing, so an object may hold
	// any number of them.
	Multiple

	// Transient features are changed by rules but never come back.
	Transient

	// Reversible features lie on a cycle of the transition graph.
	Reversible
)

var classNames = [...]string{
	Unused:     "unused",
	Static:     "static",
	Attribute:  "attribute",
	Permanent:  "permanent",
	Multiple:   "multiple",
	Transient:  "transient",
	Reversible: "reversible",
}

// String returns the lower-case class name.
func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// ParseClass parses a class name as produced by String.
func ParseClass(s string) (Class, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range classNames {
		if name == s {
			return Class(c), nil
		}
	}
	return Unused, fmt.Errorf("unknown feature class %q", s)
}

// Dynamic reports whether features of the class take part in basic stages.
func (c Class) Dynamic() bool {
	switch c {
	case Permanent, Multiple, Transient, Reversible:
		return true
	default:
		return false
	}
}

// MutexCandidate reports whether features of the class are checked for
// pairwise mutual exclusion.
func (c Class) MutexCandidate() bool {
	return c == Transient || c == Reversible
}

// Additional reports whether features of the class make up additional stages.
func (c Class) Additional() bool {
	return c == Static || c == Attribute
}
