// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package tables implements the geometric Table Reconstructor: it turns a
// page's merged text elements and ruled lines into a sequence of Tables,
// the last stage of the extraction pipeline.
package tables

// Rect is an axis-aligned bounding box in PDF user-space coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// Union returns the smallest Rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	left := min(r.X, o.X)
	bottom := min(r.Y, o.Y)
	right := max(r.X+r.Width, o.X+o.Width)
	top := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: left, Y: bottom, Width: right - left, Height: top - bottom}
}

// TableCell is a single cell of a reconstructed Table.
type TableCell struct {
	Text    string
	Bounds  Rect
	RowSpan int
	ColSpan int
}

// Table is a reconstructed table on one page.
type Table struct {
	PageNumber int
	Rows       [][]TableCell
	Confidence float64
	BBox       Rect
}

// ColCount returns the number of columns in the table, or 0 if it has no rows.
func (t Table) ColCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}
