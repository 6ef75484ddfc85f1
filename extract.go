// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

// The page-level entry point: ExtractTables(contentStreamBytes,
// pageResources, options) → Table[]. It strings together the four
// components in strictly downstream order — Lexer+Interpreter (interp.go),
// Fragment Merger (merger.go), Table Reconstructor (tables package).

import (
	"fmt"

	"github.com/pdftables/tablext/logger"
	"github.com/pdftables/tablext/tables"
)

// ExtractTables runs the full extraction pipeline over a single page's
// decoded content-stream bytes and returns the tables reconstructed from
// it. resources may be nil, in which case every glyph uses the Interpreter's
// default 0.6×font_size advance approximation.
//
// A MalformedStreamError from the lexer does not discard fragments and
// lines already emitted before the failure: ExtractTables still runs the
// Merger and Reconstructor over that partial prefix and returns both the
// tables it found and the error — partial success is the norm, not the
// exception.
func ExtractTables(contentStreamBytes []byte, resources PageResources, opts ExtractOptions) ([]tables.Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extract options: %w", err)
	}

	fragments, segments, err := ExtractContentElements(contentStreamBytes, resources)

	elements := MergeFragments(fragments)
	lines := CoalesceLines(segments)

	detector := tables.GetDetector("geometric")
	if detector == nil {
		detector = tables.NewGeometricDetector()
	}
	if cfgErr := detector.Configure(extractConfig(opts)); cfgErr != nil {
		logger.Error(fmt.Sprintf("ExtractTables: detector configuration rejected: %v", cfgErr))
		return nil, cfgErr
	}

	result, detectErr := detector.Detect(toTableElements(elements), toTableLines(lines))
	if detectErr != nil {
		logger.Error(fmt.Sprintf("ExtractTables: reconstruction failed: %v", detectErr))
		return nil, detectErr
	}

	if err != nil {
		logger.Debug(fmt.Sprintf("ExtractTables: partial result after stream error: %v", err), true)
		return result, err
	}
	return result, nil
}

// extractConfig maps the public ExtractOptions onto the Reconstructor's
// internal Config, filling in the fixed defaults not exposed as options.
func extractConfig(opts ExtractOptions) tables.Config {
	cfg := tables.DefaultConfig()
	cfg.ConfidenceThreshold = opts.ConfidenceThreshold
	cfg.MinRows = opts.MinRows
	cfg.MinCols = opts.MinCols
	cfg.CellMerging = opts.CellMerging
	cfg.RowTolerance = opts.RowTolerance
	cfg.ColTolerance = opts.ColTolerance
	return cfg
}

func toTableElements(elements []TextElement) []tables.TextElement {
	out := make([]tables.TextElement, len(elements))
	for i, e := range elements {
		out[i] = tables.TextElement{
			Text:     e.Text,
			X:        e.Origin.X,
			Y:        e.Origin.Y,
			Width:    e.Width,
			FontSize: e.FontSize,
		}
	}
	return out
}

func toTableLines(lines []RuledLine) []tables.RuledLine {
	out := make([]tables.RuledLine, len(lines))
	for i, l := range lines {
		out[i] = tables.RuledLine{
			Horizontal:  l.Horizontal,
			Axis:        l.Axis,
			Lo:          l.Lo,
			Hi:          l.Hi,
			StrokeWidth: l.StrokeWidth,
		}
	}
	return out
}
