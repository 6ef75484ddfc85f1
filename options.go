// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import "github.com/go-playground/validator/v10"

// ProcessingMode selects a bundled preset for the Reconstructor's
// tolerances, trading recall for precision.
type ProcessingMode string

const (
	// ModeFast loosens tolerances for speed on large batches, at the cost
	// of more false-positive tables.
	ModeFast ProcessingMode = "fast"
	// ModeBalanced is the default: the tolerances given directly in the
	// table-reconstruction design.
	ModeBalanced ProcessingMode = "balanced"
	// ModeAccurate tightens the confidence threshold and narrows the row
	// and column bucketing tolerances, favoring precision over recall.
	ModeAccurate ProcessingMode = "accurate"
)

// ExtractOptions configures the Reconstructor (tables.Config) and,
// indirectly through ApplyMode, the processing-mode presets.
type ExtractOptions struct {
	ConfidenceThreshold float64        `validate:"gte=0,lte=1"`
	MinRows             int            `validate:"gte=2"`
	MinCols             int            `validate:"gte=2"`
	CellMerging         bool           `validate:"-"`
	RowTolerance        float64        `validate:"gt=0"`
	ColTolerance        float64        `validate:"gt=0"`
	ProcessingMode      ProcessingMode `validate:"oneof=fast balanced accurate"`
}

// DefaultExtractOptions returns the option defaults (processing_mode=balanced).
func DefaultExtractOptions() ExtractOptions {
	o := ExtractOptions{
		ConfidenceThreshold: 0.7,
		MinRows:             3,
		MinCols:             2,
		CellMerging:         true,
		RowTolerance:        2.0,
		ColTolerance:        3.0,
		ProcessingMode:      ModeBalanced,
	}
	o.ApplyMode()
	return o
}

// ApplyMode overwrites the tolerance/threshold fields with the preset for
// o.ProcessingMode, leaving MinRows/MinCols/CellMerging untouched. It runs
// once, at construction time inside DefaultExtractOptions; callers who set
// ConfidenceThreshold/RowTolerance/ColTolerance directly afterward are not
// overridden again — ExtractTables runs the pipeline with whatever values
// are on opts at call time, preset or custom.
func (o *ExtractOptions) ApplyMode() {
	switch o.ProcessingMode {
	case ModeFast:
		o.ConfidenceThreshold = 0.6
		o.RowTolerance = 3.0
		o.ColTolerance = 4.0
	case ModeAccurate:
		o.ConfidenceThreshold = 0.8
		o.RowTolerance = 1.5
		o.ColTolerance = 2.0
	default:
		o.ConfidenceThreshold = 0.7
		o.RowTolerance = 2.0
		o.ColTolerance = 3.0
	}
}

// SetProcessingMode switches o to mode and immediately reapplies its preset
// tolerances, the way the fast/balanced/accurate CLI flag does. Use this
// instead of assigning o.ProcessingMode directly when the caller wants the
// mode's tolerances, not just its label.
func (o *ExtractOptions) SetProcessingMode(mode ProcessingMode) {
	o.ProcessingMode = mode
	o.ApplyMode()
}

var optionsValidator = validator.New()

// Validate checks o against its field tags, the same way Config.Validate
// does for the per-document processor options.
func (o ExtractOptions) Validate() error {
	return optionsValidator.Struct(o)
}
