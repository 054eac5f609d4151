// Package report renders and serializes the outcome of one
// elaboration session. It is not part of the core (spec.md §1 scopes
// the core at the Coordinator's assembled design and accumulated
// diagnostics); it exists because a driver that "collects... but does
// not short-circuit" (spec.md §4.1) needs somewhere to put what it
// collected.
//
// The pass/fail banner is adapted from the teacher's pkg/ui.BuildOutput
// (github.com/charmbracelet/lipgloss styles, the same step/summary
// shape), dropping the per-file build pipeline framing (parse/
// transform/generate steps) in favor of a per-module elaboration
// summary. The per-module table itself does not reuse the teacher's
// own pkg/ui.Table, which hand-rolls column alignment with
// fmt.Sprintf; it uses github.com/jedib0t/go-pretty/v6/table instead,
// grounded on sarchlab-zeonica/core's register/buffer dump tables
// (pkg/core/util.go), the pack's own user of that library.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/ir"
)

var (
	colorSuccess = lipgloss.Color("#5AF78E")
	colorError   = lipgloss.Color("#FF6B9D")
	colorMuted   = lipgloss.Color("#6C7086")
	colorHeader  = lipgloss.Color("#56C3F4")

	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
)

// ModuleSummary is one row of the per-module elaboration table.
type ModuleSummary struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Top        bool   `yaml:"top"`
	Cells      int    `yaml:"cells"`
	Unresolved int    `yaml:"unresolved"`
}

// Diagnostic is the YAML-serializable projection of one diag.Diagnostic.
type Diagnostic struct {
	Kind     string `yaml:"kind"`
	Message  string `yaml:"message"`
	Module   string `yaml:"module,omitempty"`
	Cell     string `yaml:"cell,omitempty"`
	Frontend string `yaml:"frontend,omitempty"`
}

// Report is the full session report: target, outcome, every module in
// the assembled design, and every accumulated diagnostic.
type Report struct {
	Target      string          `yaml:"target"`
	Success     bool            `yaml:"success"`
	Elapsed     time.Duration   `yaml:"elapsed"`
	Tops        []string        `yaml:"tops"`
	Modules     []ModuleSummary `yaml:"modules"`
	Diagnostics []Diagnostic    `yaml:"diagnostics,omitempty"`
}

// Build assembles a Report from a completed elaboration session.
func Build(target string, design *ir.Design, tops []ir.ModuleHandle, accum *diag.Accumulator, elapsed time.Duration) Report {
	r := Report{Target: target, Success: !accum.Failed(), Elapsed: elapsed}

	for _, h := range tops {
		if m := design.Module(h); m != nil {
			r.Tops = append(r.Tops, m.Name().Text)
		}
	}

	for _, m := range design.Modules() {
		unresolved := 0
		for _, c := range m.Cells() {
			if c.CellKind() == ir.CellUnresolvedInstance {
				unresolved++
			}
		}
		r.Modules = append(r.Modules, ModuleSummary{
			Name:       m.Name().Text,
			Kind:       m.Kind().String(),
			Top:        m.Top(),
			Cells:      m.CellCount(),
			Unresolved: unresolved,
		})
	}

	for _, err := range accum.Errors() {
		d, ok := err.(*diag.Diagnostic)
		if !ok {
			r.Diagnostics = append(r.Diagnostics, Diagnostic{Kind: "elaboration-error", Message: err.Error()})
			continue
		}
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			Kind: string(d.Kind), Message: d.Message, Module: d.Module, Cell: d.Cell, Frontend: d.Frontend,
		})
	}

	return r
}

// WriteYAML serializes the report for downstream tooling to consume.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(r)
}

// Print renders the human-facing banner and per-module table to w.
func (r Report) Print(w io.Writer) {
	banner := styleHeader.Render("elabdriver") + " " + styleMuted.Render("target="+r.Target)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"module", "kind", "top", "cells", "unresolved"})
	for _, m := range r.Modules {
		tbl.AppendRow(table.Row{m.Name, m.Kind, m.Top, m.Cells, m.Unresolved})
	}
	tbl.Render()
	fmt.Fprintln(w)

	for _, d := range r.Diagnostics {
		loc := ""
		if d.Module != "" {
			loc = fmt.Sprintf(" [%s]", d.Module)
		}
		fmt.Fprintln(w, styleError.Render(fmt.Sprintf("✗ %s%s: %s", d.Kind, loc, d.Message)))
	}

	if r.Success {
		fmt.Fprintln(w, styleSuccess.Render(fmt.Sprintf("✓ elaboration succeeded in %s", r.Elapsed)))
	} else {
		fmt.Fprintln(w, styleError.Render(fmt.Sprintf("✗ elaboration failed in %s (%d diagnostic(s))", r.Elapsed, len(r.Diagnostics))))
	}
}
