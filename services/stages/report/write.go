// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

var (
	colorTitle   = lipgloss.Color("#2CD7C7")
	colorSection = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#2C4A54")
	colorWarning = lipgloss.Color("#F4D03F")
)

// styles holds the styles bound to one output renderer.
type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	id      lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	class   map[string]lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	muted := r.NewStyle().Foreground(colorMuted)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(colorTitle),
		section: r.NewStyle().Foreground(colorSection),
		id:      r.NewStyle().Bold(true),
		muted:   muted,
		warning: r.NewStyle().Foreground(colorWarning),
		class: map[string]lipgloss.Style{
			"static":     muted,
			"attribute":  r.NewStyle().Foreground(lipgloss.Color("#1D9DA0")),
			"permanent":  r.NewStyle().Foreground(lipgloss.Color("#157483")),
			"multiple":   r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
			"transient":  r.NewStyle().Foreground(lipgloss.Color("#E74C3C")),
			"reversible": r.NewStyle().Foreground(colorTitle),
		},
	}
}

// TextOptions controls text rendering.
type TextOptions struct {
	// Color enables ANSI styling. Callers usually set it from isatty.
	Color bool
}

// WriteText renders rep for a terminal.
func WriteText(w io.Writer, rep *Report, opts TextOptions) error {
	st := newStyles(w, opts.Color)
	var b strings.Builder

	if rep.Domain != nil {
		writeDomain(&b, st, rep.Domain)
	}
	if rep.Problem != nil {
		if rep.Domain != nil {
			b.WriteByte('\n')
		}
		writeProblem(&b, st, rep.Problem)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDomain(b *strings.Builder, st styles, d *DomainReport) {
	header := "planstages"
	if d.RunID != "" {
		header += " run " + d.RunID
	}
	b.WriteString(st.title.Render(header))
	b.WriteByte('\n')
	if d.Incomplete {
		b.WriteString(st.warning.Render("warning: limits were hit; stage lists are partial"))
		b.WriteByte('\n')
	}

	for _, t := range d.Types {
		b.WriteByte('\n')
		line := "type " + t.Type
		if t.Incomplete {
			line += " (incomplete)"
		}
		b.WriteString(st.title.Render(line))
		b.WriteByte('\n')

		section(b, st, "features", len(t.Features))
		width := 0
		for _, f := range t.Features {
			width = max(width, len(f.Feature))
		}
		for _, f := range t.Features {
			cls := f.Class
			if s, ok := st.class[f.Class]; ok {
				cls = s.Render(f.Class)
			}
			fmt.Fprintf(b, "    %-*s  %s\n", width, f.Feature, cls)
		}

		section(b, st, "transition rules", len(t.TransitionRules))
		for _, r := range t.TransitionRules {
			fmt.Fprintf(b, "    %s\n", r)
		}

		section(b, st, "mutex", len(t.Mutex))
		for _, m := range t.Mutex {
			fmt.Fprintf(b, "    %s %s %s\n", m.Feature, st.muted.Render("<->"), strings.Join(m.Partners, ", "))
		}

		writeStages(b, st, "basic stages", t.BasicStages)
		writeStages(b, st, "additional stages", t.AdditionalStages)
		writeStages(b, st, "combined stages", t.CombinedStages)
	}
}

func section(b *strings.Builder, st styles, name string, n int) {
	fmt.Fprintf(b, "  %s %s\n", st.section.Render(name), st.muted.Render(fmt.Sprintf("(%d)", n)))
}

func writeStages(b *strings.Builder, st styles, name string, stages []StageEntry) {
	section(b, st, name, len(stages))
	for _, s := range stages {
		body := strings.Join(s.Features, ", ")
		if body == "" {
			body = st.muted.Render("(empty)")
		}
		fmt.Fprintf(b, "    %s  %s\n", st.id.Render(fmt.Sprintf("%-5s", s.ID)), body)
	}
}

func writeProblem(b *strings.Builder, st styles, p *ProblemReport) {
	b.WriteString(st.title.Render("objects"))
	b.WriteByte('\n')
	for _, o := range p.Objects {
		achieved := st.muted.Render("open")
		if o.GoalAchieved == 1 {
			achieved = st.section.Render("achieved")
		}
		fmt.Fprintf(b, "  %s %s  %s %s  %s\n",
			st.id.Render(o.Object),
			st.muted.Render("("+o.Type+")"),
			o.Stage, o.AddStage, achieved)
		fmt.Fprintf(b, "    goal stages: %s\n", orNone(st, o.GoalStages))
		fmt.Fprintf(b, "    additional goal stages: %s\n", orNone(st, o.AddGoalStages))
	}
}

func orNone(st styles, ids []string) string {
	if len(ids) == 0 {
		return st.muted.Render("none")
	}
	return strings.Join(ids, " ")
}
