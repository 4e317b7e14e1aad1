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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logisticsDoc = `
types:
  - name: locatable
  - name: truck
    supertypes: [locatable]
  - name: package
    supertypes: [locatable]
  - name: place
predicates:
  - {name: at, args: [truck, place]}
  - {name: at, args: [package, place]}
  - {name: in, args: [package, truck]}
operators:
  - name: drive
    params: [truck, place, place]
    pre: [{pred: at, args: [0, 1]}]
    del: [{pred: at, args: [0, 1]}]
    add: [{pred: at, args: [0, 2]}]
  - name: load
    params: [package, truck, place]
    pre: [{pred: at, args: [0, 2]}, {pred: at, args: [1, 2]}]
    del: [{pred: at, args: [0, 2]}]
    add: [{pred: in, args: [0, 1]}]
objects:
  - {name: t1, type: truck}
  - {name: p1, type: package}
  - {name: home, type: place}
init:
  - {pred: at, args: [t1, home]}
  - {pred: at, args: [p1, home]}
goal:
  - {pred: in, args: [p1, t1]}
`

func mustResolve(t *testing.T, src string) *Task {
	t.Helper()
	doc, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	tk, err := Resolve(doc, nil)
	require.NoError(t, err)
	return tk
}

func TestResolve_Logistics(t *testing.T) {
	tk := mustResolve(t, logisticsDoc)

	require.Len(t, tk.Types, 4)
	require.Len(t, tk.Predicates, 3)
	require.Len(t, tk.Operators, 2)
	assert.Zero(t, tk.Dropped)

	truck := tk.Type("truck")
	require.NotNil(t, truck)
	assert.Equal(t, []*Type{truck, tk.Type("locatable")}, truck.Compatible)
	assert.True(t, truck.CompatibleWith(tk.Type("locatable")))
	assert.False(t, truck.CompatibleWith(tk.Type("package")))

	t.Run("effects resolve to the type-specialised predicate", func(t *testing.T) {
		drive := tk.Operators[0]
		require.Len(t, drive.Pre, 1)
		assert.Equal(t, "at(truck, place)", drive.Pre[0].Predicate.String())

		load := tk.Operators[1]
		require.Len(t, load.Pre, 2)
		assert.Equal(t, "at(package, place)", load.Pre[0].Predicate.String())
		assert.Equal(t, "at(truck, place)", load.Pre[1].Predicate.String())
		assert.Equal(t, 0, load.Pre[0].SlotOf(0))
		assert.Equal(t, 1, load.Pre[0].SlotOf(2))
		assert.Equal(t, -1, load.Pre[0].SlotOf(1))
	})

	t.Run("literals resolve by object types", func(t *testing.T) {
		require.Len(t, tk.Init, 2)
		assert.Equal(t, "at(t1, home)", tk.Init[0].String())
		assert.Equal(t, tk.Predicate("at", tk.Type("package"), tk.Type("place")), tk.Init[1].Predicate)
		require.Len(t, tk.Goal, 1)
		assert.True(t, tk.Goal[0].Contains(tk.Object("t1")))
		assert.Equal(t, 1, tk.Goal[0].Find(tk.Object("t1")))
		assert.Equal(t, -1, tk.Goal[0].Find(tk.Object("home")))
	})
}

func TestResolve_DropsUnresolvedReferences(t *testing.T) {
	src := `
types:
  - name: block
predicates:
  - {name: clear, args: [block]}
  - {name: handempty, args: []}
  - {name: weird, args: [ghost]}
operators:
  - name: touch
    params: [block]
    pre: [{pred: clear, args: [0]}, {pred: missing, args: [0]}]
    add: [{pred: clear, args: [3]}]
  - name: bad
    params: [ghost]
objects:
  - {name: a, type: block}
  - {name: g, type: ghost}
init:
  - {pred: clear, args: [a]}
  - {pred: clear, args: [g]}
  - {pred: clear, args: [a, a]}
`
	tk := mustResolve(t, src)

	assert.Len(t, tk.Predicates, 1)
	require.Len(t, tk.Operators, 1)
	assert.Len(t, tk.Operators[0].Pre, 1)
	assert.Empty(t, tk.Operators[0].Add)
	assert.Len(t, tk.Objects, 1)
	assert.Len(t, tk.Init, 1)
	// handempty, weird, missing, clear[3], bad, g, clear(g), clear(a,a)
	assert.Equal(t, 8, tk.Dropped)
}

func TestResolve_DuplicateEffectsCollapse(t *testing.T) {
	src := `
types: [{name: block}]
predicates: [{name: clear, args: [block]}]
operators:
  - name: swap
    params: [block, block]
    pre: [{pred: clear, args: [0]}, {pred: clear, args: [1]}, {pred: clear, args: [0]}]
`
	tk := mustResolve(t, src)
	require.Len(t, tk.Operators, 1)
	assert.Len(t, tk.Operators[0].Pre, 2)
}

func TestResolve_CompatiblePredicateFallback(t *testing.T) {
	src := `
types:
  - {name: thing}
  - {name: box, supertypes: [thing]}
predicates: [{name: heavy, args: [thing]}]
objects: [{name: b1, type: box}]
init: [{pred: heavy, args: [b1]}]
`
	tk := mustResolve(t, src)
	require.Len(t, tk.Init, 1)
	assert.Equal(t, "heavy(thing)", tk.Init[0].Predicate.String())
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"duplicate type", "types: [{name: a}, {name: a}]"},
		{"duplicate predicate", "types: [{name: a}]\npredicates: [{name: p, args: [a]}, {name: p, args: [a]}]"},
		{"duplicate object", "types: [{name: a}]\nobjects: [{name: o, type: a}, {name: o, type: a}]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Load(strings.NewReader(tc.src))
			require.NoError(t, err)
			_, err = Resolve(doc, nil)
			assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)
		})
	}

	_, err := Resolve(nil, nil)
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing type name", "types: [{supertypes: [a]}]"},
		{"binding below constant", "types: [{name: a}]\noperators: [{name: o, params: [a], pre: [{pred: p, args: [-2]}]}]"},
		{"unknown field", "typez: []"},
		{"empty literal argument", "init: [{pred: p, args: ['']}]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.src))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}

	t.Run("empty input is an empty document", func(t *testing.T) {
		doc, err := Load(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, doc.Types)
	})
}

func TestLoadFile_JSONAndMerge(t *testing.T) {
	dir := t.TempDir()
	domain := filepath.Join(dir, "domain.json")
	problem := filepath.Join(dir, "problem.yaml")
	require.NoError(t, os.WriteFile(domain, []byte(`{
  "types": [{"name": "block"}],
  "predicates": [{"name": "clear", "args": ["block"]}]
}`), 0o600))
	require.NoError(t, os.WriteFile(problem, []byte(`
objects: [{name: a, type: block}]
init: [{pred: clear, args: [a]}]
goal: [{pred: clear, args: [a]}]
`), 0o600))

	d, err := LoadFile(domain)
	require.NoError(t, err)
	p, err := LoadFile(problem)
	require.NoError(t, err)

	tk, err := Resolve(Merge(d, p), nil)
	require.NoError(t, err)
	assert.Len(t, tk.Objects, 1)
	assert.Len(t, tk.Init, 1)
	assert.True(t, tk.Init[0].Equal(tk.Goal[0]))

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
