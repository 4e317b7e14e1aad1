// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tasktest provides grounded task fixtures shared by the stage
// engine tests.
package tasktest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/planstages/services/stages/task"
)

// BlocksworldDoc is the four-operator blocksworld with two blocks, a on b.
const BlocksworldDoc = `
types:
  - name: block
predicates:
  - {name: on, args: [block, block]}
  - {name: ontable, args: [block]}
  - {name: clear, args: [block]}
  - {name: holding, args: [block]}
  - {name: handempty, args: []}
operators:
  - name: pickup
    params: [block]
    pre: [{pred: clear, args: [0]}, {pred: ontable, args: [0]}]
    del: [{pred: ontable, args: [0]}, {pred: clear, args: [0]}]
    add: [{pred: holding, args: [0]}]
  - name: putdown
    params: [block]
    pre: [{pred: holding, args: [0]}]
    del: [{pred: holding, args: [0]}]
    add: [{pred: ontable, args: [0]}, {pred: clear, args: [0]}]
  - name: stack
    params: [block, block]
    pre: [{pred: holding, args: [0]}, {pred: clear, args: [1]}]
    del: [{pred: holding, args: [0]}, {pred: clear, args: [1]}]
    add: [{pred: on, args: [0, 1]}, {pred: clear, args: [0]}]
  - name: unstack
    params: [block, block]
    pre: [{pred: on, args: [0, 1]}, {pred: clear, args: [0]}]
    del: [{pred: on, args: [0, 1]}, {pred: clear, args: [0]}]
    add: [{pred: holding, args: [0]}, {pred: clear, args: [1]}]
objects:
  - {name: a, type: block}
  - {name: b, type: block}
init:
  - {pred: on, args: [a, b]}
  - {pred: ontable, args: [b]}
  - {pred: clear, args: [a]}
  - {pred: handempty, args: []}
goal:
  - {pred: on, args: [b, a]}
`

// RobotsDoc exercises every feature class on a single robot type:
// at(robot, room) is permanent, large static, charged an attribute,
// fresh/working/retired transient, empty/loaded reversible and
// tagged/badge multiple.
const RobotsDoc = `
types:
  - name: robot
  - name: room
predicates:
  - {name: at, args: [robot, room]}
  - {name: large, args: [robot]}
  - {name: charged, args: [robot]}
  - {name: fresh, args: [robot]}
  - {name: working, args: [robot]}
  - {name: retired, args: [robot]}
  - {name: empty, args: [robot]}
  - {name: loaded, args: [robot]}
  - {name: tagged, args: [robot]}
  - {name: badge, args: [robot]}
operators:
  - name: move
    params: [robot, room, room]
    pre: [{pred: at, args: [0, 1]}]
    del: [{pred: at, args: [0, 1]}]
    add: [{pred: at, args: [0, 2]}]
  - name: charge
    params: [robot]
    pre: [{pred: large, args: [0]}]
    add: [{pred: charged, args: [0]}]
  - name: discharge
    params: [robot]
    del: [{pred: charged, args: [0]}]
  - name: start
    params: [robot]
    pre: [{pred: fresh, args: [0]}]
    del: [{pred: fresh, args: [0]}]
    add: [{pred: working, args: [0]}]
  - name: retire
    params: [robot]
    pre: [{pred: working, args: [0]}]
    del: [{pred: working, args: [0]}]
    add: [{pred: retired, args: [0]}]
  - name: load
    params: [robot]
    pre: [{pred: empty, args: [0]}]
    del: [{pred: empty, args: [0]}]
    add: [{pred: loaded, args: [0]}]
  - name: unload
    params: [robot]
    pre: [{pred: loaded, args: [0]}]
    del: [{pred: loaded, args: [0]}]
    add: [{pred: empty, args: [0]}]
  - name: tag
    params: [robot]
    add: [{pred: tagged, args: [0]}]
  - name: promote
    params: [robot]
    pre: [{pred: tagged, args: [0]}]
    del: [{pred: tagged, args: [0]}]
    add: [{pred: badge, args: [0]}]
objects:
  - {name: r1, type: robot}
  - {name: r2, type: robot}
  - {name: lab, type: room}
  - {name: dock, type: room}
init:
  - {pred: at, args: [r1, lab]}
  - {pred: large, args: [r1]}
  - {pred: charged, args: [r1]}
  - {pred: empty, args: [r1]}
  - {pred: fresh, args: [r1]}
  - {pred: at, args: [r2, dock]}
  - {pred: loaded, args: [r2]}
goal:
  - {pred: working, args: [r1]}
  - {pred: at, args: [r1, dock]}
  - {pred: charged, args: [r2]}
`

// SwitchesDoc has a clear(block) predicate that only ever appears as a
// precondition, next to a reversible up/down toggle.
const SwitchesDoc = `
types:
  - name: block
predicates:
  - {name: clear, args: [block]}
  - {name: up, args: [block]}
  - {name: down, args: [block]}
operators:
  - name: flip
    params: [block]
    pre: [{pred: clear, args: [0]}, {pred: up, args: [0]}]
    del: [{pred: up, args: [0]}]
    add: [{pred: down, args: [0]}]
  - name: flop
    params: [block]
    pre: [{pred: clear, args: [0]}, {pred: down, args: [0]}]
    del: [{pred: down, args: [0]}]
    add: [{pred: up, args: [0]}]
objects:
  - {name: s1, type: block}
init:
  - {pred: clear, args: [s1]}
  - {pred: up, args: [s1]}
goal:
  - {pred: up, args: [s1]}
`

// LogisticsDoc moves one package with one truck between two places.
const LogisticsDoc = `
types:
  - name: truck
  - name: package
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
  - name: unload
    params: [package, truck, place]
    pre: [{pred: in, args: [0, 1]}, {pred: at, args: [1, 2]}]
    del: [{pred: in, args: [0, 1]}]
    add: [{pred: at, args: [0, 2]}]
objects:
  - {name: t1, type: truck}
  - {name: p1, type: package}
  - {name: home, type: place}
  - {name: away, type: place}
init:
  - {pred: at, args: [t1, home]}
  - {pred: at, args: [p1, home]}
goal:
  - {pred: in, args: [p1, t1]}
`

// Load resolves a task document, failing the test on error.
func Load(tb testing.TB, src string) *task.Task {
	tb.Helper()
	doc, err := task.Load(strings.NewReader(src))
	require.NoError(tb, err)
	tk, err := task.Resolve(doc, nil)
	require.NoError(tb, err)
	return tk
}

// Blocksworld returns the resolved BlocksworldDoc.
func Blocksworld(tb testing.TB) *task.Task { return Load(tb, BlocksworldDoc) }

// Robots returns the resolved RobotsDoc.
func Robots(tb testing.TB) *task.Task { return Load(tb, RobotsDoc) }

// Switches returns the resolved SwitchesDoc.
func Switches(tb testing.TB) *task.Task { return Load(tb, SwitchesDoc) }

// Logistics returns the resolved LogisticsDoc.
func Logistics(tb testing.TB) *task.Task { return Load(tb, LogisticsDoc) }
