// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package task

import "strings"

// Constant marks an effect argument that is not bound to any operator parameter.
const Constant = -1

// Type is a domain sort.
type Type struct {
	// Index is the position of the type in Task.Types.
	Index int

	// Name is the declared type name.
	Name string

	// Compatible is the reflexive-transitive closure of the supertype
	// relation. It always contains the type itself first.
	Compatible []*Type
}

// CompatibleWith reports whether t can stand in for other.
func (t *Type) CompatibleWith(other *Type) bool {
	for _, c := range t.Compatible {
		if c == other {
			return true
		}
	}
	return false
}

// Predicate is a boolean relation with typed argument positions.
//
// Grounded models may contain several predicates with the same name, one
// per combination of argument types.
type Predicate struct {
	Index int
	Name  string
	Args  []*Type
}

// Arity returns the number of argument positions.
func (p *Predicate) Arity() int {
	return len(p.Args)
}

// String returns "name(type1, type2)".
func (p *Predicate) String() string {
	var sb strings.Builder
	sb.WriteString(p.Name)
	sb.WriteByte('(')
	for i, a := range p.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Effect is a predicate applied to operator parameters.
//
// Params[i] is the operator parameter bound to predicate argument i, or
// Constant when the argument is not a parameter.
type Effect struct {
	Predicate *Predicate
	Params    []int
}

// SlotOf returns the first predicate argument bound to the given operator
// parameter, or -1 if the parameter does not occur in the effect.
func (e Effect) SlotOf(param int) int {
	for i, p := range e.Params {
		if p == param {
			return i
		}
	}
	return -1
}

func (e Effect) equal(other Effect) bool {
	if e.Predicate != other.Predicate || len(e.Params) != len(other.Params) {
		return false
	}
	for i := range e.Params {
		if e.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// Operator is a grounded action schema.
type Operator struct {
	Index  int
	Name   string
	Params []*Type

	// Pre, Add and Del are the preconditions, added and deleted literals.
	Pre []Effect
	Add []Effect
	Del []Effect
}

// String returns "name(type1, type2)".
func (o *Operator) String() string {
	var sb strings.Builder
	sb.WriteString(o.Name)
	sb.WriteByte('(')
	for i, p := range o.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Object is a problem constant.
type Object struct {
	Index int
	Name  string
	Type  *Type
}

// Literal is a ground fact.
type Literal struct {
	Predicate *Predicate
	Args      []*Object
}

// Contains reports whether obj is one of the literal arguments.
func (l Literal) Contains(obj *Object) bool {
	return l.Find(obj) >= 0
}

// Find returns the first argument position holding obj, or -1.
func (l Literal) Find(obj *Object) int {
	for i, a := range l.Args {
		if a == obj {
			return i
		}
	}
	return -1
}

// Equal reports whether both literals have the same predicate and arguments.
func (l Literal) Equal(other Literal) bool {
	if l.Predicate != other.Predicate || len(l.Args) != len(other.Args) {
		return false
	}
	for i := range l.Args {
		if l.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// String returns "name(obj1, obj2)".
func (l Literal) String() string {
	var sb strings.Builder
	sb.WriteString(l.Predicate.Name)
	sb.WriteByte('(')
	for i, a := range l.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Task is the resolved, immutable planning model.
type Task struct {
	Types      []*Type
	Predicates []*Predicate
	Operators  []*Operator
	Objects    []*Object

	// Init is the initial (current) state.
	Init []Literal

	// Goal is the set of goal literals.
	Goal []Literal

	// Dropped counts references excluded during resolution.
	Dropped int
}

// Type returns the type with the given name, or nil.
func (t *Task) Type(name string) *Type {
	for _, ty := range t.Types {
		if ty.Name == name {
			return ty
		}
	}
	return nil
}

// Object returns the object with the given name, or nil.
func (t *Task) Object(name string) *Object {
	for _, o := range t.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Predicate returns the first predicate with the given name whose argument
// types match args exactly, or nil.
func (t *Task) Predicate(name string, args ...*Type) *Predicate {
	for _, p := range t.Predicates {
		if p.Name != name || len(p.Args) != len(args) {
			continue
		}
		match := true
		for i, a := range args {
			if p.Args[i] != a {
				match = false
				break
			}
		}
		if match {
			return p
		}
	}
	return nil
}
