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
	"sync"

	"github.com/AleutianAI/planstages/services/stages/task"
)

// Pool is an append-only arena for features derived during combined stage
// synthesis. Entries are never freed while the pool is alive, so stages may
// keep plain pointers to them.
//
// Thread Safety: safe for concurrent use.
type Pool struct {
	mu    sync.Mutex
	items []*Feature
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Instance returns a copy of f with slot resolved to t and bound to letter.
// The copy is not marked combined.
func (p *Pool) Instance(f *Feature, slot int, t *task.Type, letter byte) *Feature {
	c := f.clone()
	c.args[slot] = t
	c.letters[slot] = letter
	c.combined = false
	return p.put(c)
}

// Rebind returns a copy of f whose distinguished slot is bound to letter.
// The copy is marked combined.
func (p *Pool) Rebind(f *Feature, letter byte) *Feature {
	c := f.clone()
	c.letters[c.pos] = letter
	c.combined = true
	return p.put(c)
}

// Len returns the number of pooled features.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Pool) put(f *Feature) *Feature {
	p.mu.Lock()
	p.items = append(p.items, f)
	p.mu.Unlock()
	return f
}
