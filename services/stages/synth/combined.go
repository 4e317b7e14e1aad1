// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package synth

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/planstages/services/stages/features"
)

// Combined builds the combined stages of reg from its basic stages.
//
// Description:
//
//	For each basic stage, the first feature with an unresolved slot is
//	instantiated with a fresh letter for the slot object. Every basic stage
//	of the slot type that contains the equivalent feature contributes a
//	candidate: the instantiated feature replaces the original and the other
//	features of that stage are appended, rebound to the fresh letter. The
//	process repeats on each candidate until no unresolved slot precedes the
//	first rebound feature. Candidates ending in a rebound feature become
//	combined stages; when a basic stage yields none, it is kept verbatim.
//
//	Letters start at 'x' and continue 'y', 'z', 'a', ... wrapping after 'z'.
//
// Inputs:
//
//	cat - Registries and complete basic stages of every type.
//	reg - The registry whose combined stages are built.
//	basic - The basic stages of reg.
//
// Outputs:
//
//	[]Stage - The combined stages in discovery order.
//	bool - True when the stage limit stopped enumeration.
//	error - Non-nil only when ctx was cancelled.
//
// Thread Safety: safe to call concurrently for different registries once
// every basic stage collection in cat is final.
func (s *Synthesizer) Combined(ctx context.Context, cat Catalog, reg *features.Registry, basic []Stage) ([]Stage, bool, error) {
	c := newCollector(ctx, s.opts.MaxStages)
	for _, bs := range basic {
		if c.done() {
			break
		}
		var candidates []Stage
		s.combine(c, cat, bs, features.FirstLetter, &candidates)

		inserted := 0
		for _, cand := range candidates {
			if len(cand) > 0 && cand[len(cand)-1].Combined() {
				c.add(cand.Key(), cand)
				inserted++
			}
		}
		if inserted == 0 {
			c.add(bs.Key(), bs)
		}
	}
	if c.err != nil {
		return nil, false, c.err
	}

	s.opts.Logger.Debug("combined stages synthesized",
		slog.String("type", reg.Type().Name),
		slog.Int("basic", len(basic)),
		slog.Int("stages", len(c.stages)),
		slog.Bool("truncated", c.truncated),
	)
	return c.stages, c.truncated, nil
}

func (s *Synthesizer) combine(c *collector, cat Catalog, stage Stage, letter byte, out *[]Stage) {
	if c.done() {
		return
	}
	for i, f := range stage {
		if f.Combined() {
			break
		}
		slot := f.UnboundSlot()
		if slot < 0 {
			continue
		}

		next := features.NextLetter(letter)
		slotType := f.Predicate().Args[slot]
		other := cat.Registry(slotType)
		if other == nil {
			return
		}
		eq, ok := other.Equivalent(f, slot)
		if !ok {
			return
		}
		inst := s.pool.Instance(f, slot, slotType, next)
		for _, peer := range cat.BasicStages(slotType) {
			if !peer.Contains(eq) {
				continue
			}
			cand := make(Stage, len(stage), len(stage)+len(peer))
			copy(cand, stage)
			cand[i] = inst
			for _, cf := range peer {
				if cf != eq {
					cand = append(cand, s.pool.Rebind(cf, next))
				}
			}
			s.combine(c, cat, cand, next, out)
		}
		return
	}
	*out = append(*out, stage)
}
