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

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// documentValidate is shared by all Load calls; validator caches struct metadata.
var documentValidate = validator.New()

// Document is the serialised form of a grounded task.
//
// YAML is the native format; since YAML is a superset of JSON, JSON
// documents load unchanged.
type Document struct {
	Types      []TypeDoc      `yaml:"types" json:"types" validate:"dive"`
	Predicates []PredicateDoc `yaml:"predicates" json:"predicates" validate:"dive"`
	Operators  []OperatorDoc  `yaml:"operators" json:"operators" validate:"dive"`
	Objects    []ObjectDoc    `yaml:"objects" json:"objects" validate:"dive"`
	Init       []LiteralDoc   `yaml:"init" json:"init" validate:"dive"`
	Goal       []LiteralDoc   `yaml:"goal" json:"goal" validate:"dive"`
}

// TypeDoc declares a type and its direct supertypes.
type TypeDoc struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Supertypes []string `yaml:"supertypes,omitempty" json:"supertypes,omitempty" validate:"dive,required"`
}

// PredicateDoc declares a predicate signature.
type PredicateDoc struct {
	Name string   `yaml:"name" json:"name" validate:"required"`
	Args []string `yaml:"args" json:"args" validate:"dive,required"`
}

// OperatorDoc declares a grounded operator.
type OperatorDoc struct {
	Name   string      `yaml:"name" json:"name" validate:"required"`
	Params []string    `yaml:"params" json:"params" validate:"dive,required"`
	Pre    []EffectDoc `yaml:"pre,omitempty" json:"pre,omitempty" validate:"dive"`
	Add    []EffectDoc `yaml:"add,omitempty" json:"add,omitempty" validate:"dive"`
	Del    []EffectDoc `yaml:"del,omitempty" json:"del,omitempty" validate:"dive"`
}

// EffectDoc names a predicate and the operator parameter bound to each of
// its arguments (-1 for a constant).
type EffectDoc struct {
	Pred string `yaml:"pred" json:"pred" validate:"required"`
	Args []int  `yaml:"args" json:"args" validate:"dive,min=-1"`
}

// ObjectDoc declares a problem object.
type ObjectDoc struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Type string `yaml:"type" json:"type" validate:"required"`
}

// LiteralDoc is a ground fact over object names.
type LiteralDoc struct {
	Pred string   `yaml:"pred" json:"pred" validate:"required"`
	Args []string `yaml:"args" json:"args" validate:"dive,required"`
}

// Load decodes and validates a document.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidDocument, err)
	}
	if err := documentValidate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// LoadFile reads and validates a document from disk.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task document: %w", err)
	}
	defer f.Close()

	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Merge returns a new document holding the domain declarations plus the
// objects, initial state and goal of problem. Either argument may be nil.
func Merge(domain, problem *Document) *Document {
	out := &Document{}
	for _, d := range []*Document{domain, problem} {
		if d == nil {
			continue
		}
		out.Types = append(out.Types, d.Types...)
		out.Predicates = append(out.Predicates, d.Predicates...)
		out.Operators = append(out.Operators, d.Operators...)
		out.Objects = append(out.Objects, d.Objects...)
		out.Init = append(out.Init, d.Init...)
		out.Goal = append(out.Goal, d.Goal...)
	}
	return out
}

// Resolve turns a document into a Task.
//
// Unresolvable references are dropped and counted rather than reported;
// duplicate declarations are errors.
func Resolve(doc *Document, logger *slog.Logger) (*Task, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &resolver{task: &Task{}, logger: logger}

	if err := r.types(doc.Types); err != nil {
		return nil, err
	}
	if err := r.predicates(doc.Predicates); err != nil {
		return nil, err
	}
	r.operators(doc.Operators)
	if err := r.objects(doc.Objects); err != nil {
		return nil, err
	}
	r.task.Init = r.literals(doc.Init, "init")
	r.task.Goal = r.literals(doc.Goal, "goal")

	if r.task.Dropped > 0 {
		logger.Debug("task references dropped during resolution",
			slog.Int("dropped", r.task.Dropped),
		)
	}
	return r.task, nil
}

type resolver struct {
	task   *Task
	logger *slog.Logger
}

func (r *resolver) drop(kind, name, reason string) {
	r.task.Dropped++
	r.logger.Debug("dropping unresolved reference",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.String("reason", reason),
	)
}

func (r *resolver) types(docs []TypeDoc) error {
	byName := make(map[string]*Type, len(docs))
	for i, d := range docs {
		if _, dup := byName[d.Name]; dup {
			return fmt.Errorf("%w: duplicate type %q", ErrInvalidDocument, d.Name)
		}
		t := &Type{Index: i, Name: d.Name}
		byName[d.Name] = t
		r.task.Types = append(r.task.Types, t)
	}

	parents := make(map[string][]string, len(docs))
	for _, d := range docs {
		parents[d.Name] = d.Supertypes
	}
	for _, t := range r.task.Types {
		seen := map[*Type]bool{t: true}
		t.Compatible = []*Type{t}
		stack := append([]string(nil), parents[t.Name]...)
		for len(stack) > 0 {
			name := stack[0]
			stack = stack[1:]
			p, ok := byName[name]
			if !ok || seen[p] {
				continue
			}
			seen[p] = true
			t.Compatible = append(t.Compatible, p)
			stack = append(stack, parents[name]...)
		}
	}
	return nil
}

func (r *resolver) predicates(docs []PredicateDoc) error {
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if len(d.Args) == 0 {
			r.drop("predicate", d.Name, "no arguments")
			continue
		}
		args := make([]*Type, 0, len(d.Args))
		for _, a := range d.Args {
			t := r.task.Type(a)
			if t == nil {
				break
			}
			args = append(args, t)
		}
		if len(args) != len(d.Args) {
			r.drop("predicate", d.Name, "unknown argument type")
			continue
		}
		sig := d.Name + "(" + strings.Join(d.Args, ",") + ")"
		if seen[sig] {
			return fmt.Errorf("%w: duplicate predicate %s", ErrInvalidDocument, sig)
		}
		seen[sig] = true
		r.task.Predicates = append(r.task.Predicates, &Predicate{
			Index: len(r.task.Predicates),
			Name:  d.Name,
			Args:  args,
		})
	}
	return nil
}

func (r *resolver) operators(docs []OperatorDoc) {
	for _, d := range docs {
		params := make([]*Type, 0, len(d.Params))
		for _, p := range d.Params {
			t := r.task.Type(p)
			if t == nil {
				break
			}
			params = append(params, t)
		}
		if len(params) != len(d.Params) {
			r.drop("operator", d.Name, "unknown parameter type")
			continue
		}
		op := &Operator{Index: len(r.task.Operators), Name: d.Name, Params: params}
		op.Pre = r.effects(op, d.Pre)
		op.Add = r.effects(op, d.Add)
		op.Del = r.effects(op, d.Del)
		r.task.Operators = append(r.task.Operators, op)
	}
}

func (r *resolver) effects(op *Operator, docs []EffectDoc) []Effect {
	var out []Effect
	for _, d := range docs {
		pred := r.matchEffect(op, d)
		if pred == nil {
			r.drop("effect", op.Name+"/"+d.Pred, "no matching predicate")
			continue
		}
		eff := Effect{Predicate: pred, Params: append([]int(nil), d.Args...)}
		dup := false
		for _, e := range out {
			if e.equal(eff) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, eff)
		}
	}
	return out
}

// matchEffect finds the first predicate whose argument types agree with the
// operator parameters bound to it. Constant arguments match any type.
func (r *resolver) matchEffect(op *Operator, d EffectDoc) *Predicate {
	for _, p := range r.task.Predicates {
		if p.Name != d.Pred || len(p.Args) != len(d.Args) {
			continue
		}
		match := true
		for i, param := range d.Args {
			if param == Constant {
				continue
			}
			if param < 0 || param >= len(op.Params) || op.Params[param] != p.Args[i] {
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

func (r *resolver) objects(docs []ObjectDoc) error {
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate object %q", ErrInvalidDocument, d.Name)
		}
		seen[d.Name] = true
		t := r.task.Type(d.Type)
		if t == nil {
			r.drop("object", d.Name, "unknown type")
			continue
		}
		r.task.Objects = append(r.task.Objects, &Object{
			Index: len(r.task.Objects),
			Name:  d.Name,
			Type:  t,
		})
	}
	return nil
}

func (r *resolver) literals(docs []LiteralDoc, kind string) []Literal {
	var out []Literal
	for _, d := range docs {
		args := make([]*Object, 0, len(d.Args))
		types := make([]*Type, 0, len(d.Args))
		for _, a := range d.Args {
			o := r.task.Object(a)
			if o == nil {
				break
			}
			args = append(args, o)
			types = append(types, o.Type)
		}
		if len(args) != len(d.Args) {
			r.drop(kind, d.Pred, "unknown object")
			continue
		}
		pred := r.task.Predicate(d.Pred, types...)
		if pred == nil {
			pred = r.compatiblePredicate(d.Pred, types)
		}
		if pred == nil {
			r.drop(kind, d.Pred, "no matching predicate")
			continue
		}
		out = append(out, Literal{Predicate: pred, Args: args})
	}
	return out
}

// compatiblePredicate accepts a predicate declared over supertypes of the
// literal's object types when no exact specialisation exists.
func (r *resolver) compatiblePredicate(name string, types []*Type) *Predicate {
	for _, p := range r.task.Predicates {
		if p.Name != name || len(p.Args) != len(types) {
			continue
		}
		match := true
		for i, t := range types {
			if !t.CompatibleWith(p.Args[i]) {
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
