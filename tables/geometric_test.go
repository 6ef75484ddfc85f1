// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// elem is a small constructor to keep the scenario tables below readable.
func elem(text string, x, y, width, fontSize float64) TextElement {
	return TextElement{Text: text, X: x, Y: y, Width: width, FontSize: fontSize}
}

// employeeInfoElements builds an "Employee Information" table: a header
// row at baseline 700 and three data rows at 680, 660, 640, three
// columns at x=50,200,280.
func employeeInfoElements() []TextElement {
	header := []string{"Name", "Age", "City"}
	rows := [][]string{
		{"John Smith", "35", "New York"},
		{"Jane Doe", "28", "Los Angeles"},
		{"Bob Johnson", "42", "Chicago"},
	}
	xs := []float64{50, 200, 280}
	var out []TextElement
	for i, t := range header {
		out = append(out, elem(t, xs[i], 700, 40, 12))
	}
	baselines := []float64{680, 660, 640}
	for _, y := range baselines {
		for i := 0; i < 3; i++ {
			out = append(out, elem(rows[baselineIndex(baselines, y)][i], xs[i], y, 40, 10))
		}
	}
	return out
}

func baselineIndex(baselines []float64, y float64) int {
	for i, b := range baselines {
		if b == y {
			return i
		}
	}
	return 0
}

func newDetector() *GeometricDetector {
	return NewGeometricDetector()
}

func TestGeometricDetector_EmployeeInformation(t *testing.T) {
	d := newDetector()
	got, err := d.Detect(employeeInfoElements(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	table := got[0]
	assert.Len(t, table.Rows, 4)
	assert.Equal(t, 3, table.ColCount())
	assert.Greater(t, table.Confidence, 0.8)
	assert.Equal(t, "Name", table.Rows[0][0].Text)
	assert.Equal(t, "Age", table.Rows[0][1].Text)
	assert.Equal(t, "City", table.Rows[0][2].Text)
	assert.Equal(t, "Chicago", table.Rows[3][2].Text)
}

func TestGeometricDetector_ZeroFragmentsYieldsZeroTables(t *testing.T) {
	d := newDetector()
	got, err := d.Detect(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGeometricDetector_SingleRowDoesNotProduceTable(t *testing.T) {
	d := newDetector()
	var row []TextElement
	for i := 0; i < 10; i++ {
		row = append(row, elem("cell", float64(i*60), 700, 40, 10))
	}
	got, err := d.Detect(row, nil)
	require.NoError(t, err)
	assert.Empty(t, got, "a single qualifying row must fail the min_rows=3 check")
}

func TestGeometricDetector_RowsFartherThanMaxRowGapYieldZeroTables(t *testing.T) {
	d := newDetector()
	var elems []TextElement
	y := 700.0
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			elems = append(elems, elem("x", float64(c*100), y, 40, 10))
		}
		y -= 40 // default MaxRowGap is 20.0; 40 always breaks the run
	}
	got, err := d.Detect(elems, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// projectInventoryElements builds a "Product Inventory" table: five
// columns, a header plus three data rows.
func projectInventoryElements() []TextElement {
	header := []string{"SKU", "Name", "Qty", "Price", "Status"}
	data := [][]string{
		{"A100", "Widget", "12", "$9.99", "In Stock"},
		{"A200", "Gadget", "0", "$50.00", "Out of Stock"},
		{"A300", "Gizmo", "5", "$19.99", "In Stock"},
	}
	xs := []float64{50, 140, 280, 340, 420}
	var out []TextElement
	for i, t := range header {
		out = append(out, elem(t, xs[i], 700, 50, 12))
	}
	for r, row := range data {
		y := 700 - float64(r+1)*20
		for i, t := range row {
			out = append(out, elem(t, xs[i], y, 50, 10))
		}
	}
	return out
}

func TestGeometricDetector_ProductInventory(t *testing.T) {
	d := newDetector()
	got, err := d.Detect(projectInventoryElements(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	table := got[0]
	require.Len(t, table.Rows, 4)
	require.Equal(t, 5, table.ColCount())
	assert.Equal(t, "$50.00", table.Rows[2][3].Text)
	assert.Equal(t, "Out of Stock", table.Rows[2][4].Text)
}

// projectTimelineElements builds a four-row grid where row 2 has two
// adjacent identical entries ("Phase 2", "Phase 2").
func projectTimelineElements() []TextElement {
	xs := []float64{50, 150, 250, 350, 450}
	rows := [][]string{
		{"Task", "Owner", "Q1", "Q2", "Status"},
		{"Development", "", "Phase 2", "Phase 2", ""},
		{"Testing", "QA", "Phase 1", "Phase 3", "Open"},
		{"Launch", "Ops", "Phase 1", "Phase 4", "Open"},
	}
	var out []TextElement
	for r, row := range rows {
		y := 700 - float64(r)*20
		for i, t := range row {
			if t == "" {
				continue
			}
			out = append(out, elem(t, xs[i], y, 50, 10))
		}
	}
	return out
}

func TestGeometricDetector_HorizontalMergeAbsorbsDuplicateWhenEnabled(t *testing.T) {
	d := newDetector()
	got, err := d.Detect(projectTimelineElements(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	table := got[0]
	devRow := table.Rows[1]
	found := false
	for _, c := range devRow {
		if c.Text == "Phase 2" {
			found = true
			assert.Equal(t, 2, c.ColSpan, "adjacent duplicate cells should be absorbed into one col_span=2 cell")
		}
	}
	assert.True(t, found)
}

func TestGeometricDetector_NoMergeKeepsCellsSeparateWhenDisabled(t *testing.T) {
	d := newDetector()
	cfg := DefaultConfig()
	cfg.CellMerging = false
	require.NoError(t, d.Configure(cfg))

	got, err := d.Detect(projectTimelineElements(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	table := got[0]
	phaseTwoCount := 0
	for _, c := range table.Rows[1] {
		if c.Text == "Phase 2" {
			phaseTwoCount++
			assert.Equal(t, 1, c.ColSpan)
		}
	}
	assert.Equal(t, 2, phaseTwoCount, "with cell_merging=false both Phase 2 cells remain distinct")
}

// TestGeometricDetector_DualTablesTopToBottom builds two disjoint tables
// separated vertically by more than max_row_gap.
func TestGeometricDetector_DualTablesTopToBottom(t *testing.T) {
	d := newDetector()
	var elems []TextElement
	xs := []float64{50, 150, 250}

	addBlock := func(topY float64) {
		for r := 0; r < 4; r++ {
			y := topY - float64(r)*18
			for c := 0; c < 3; c++ {
				elems = append(elems, elem("v", xs[c], y, 40, 10))
			}
		}
	}
	addBlock(700)
	addBlock(500) // gap from the first block's last row (700-3*18=646) is well over max_row_gap=20

	got, err := d.Detect(elems, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Greater(t, got[0].Rows[0][0].Bounds.Y, got[1].Rows[0][0].Bounds.Y, "tables must be emitted top to bottom")
}

// TestGeometricDetector_HighThresholdRejectsMisalignedTable checks that a
// deliberately misaligned variant is accepted at a low confidence
// threshold and rejected at a high one.
func TestGeometricDetector_HighThresholdRejectsMisalignedTable(t *testing.T) {
	elems := employeeInfoElements()
	// Shift one data cell by 15 units so it no longer lands on the shared
	// column anchor, denting the alignment/column-distinctness scores.
	for i := range elems {
		if elems[i].Text == "Chicago" {
			elems[i].X += 15
		}
	}

	strict := newDetector()
	cfgStrict := DefaultConfig()
	cfgStrict.ConfidenceThreshold = 0.99
	require.NoError(t, strict.Configure(cfgStrict))
	gotStrict, err := strict.Detect(elems, nil)
	require.NoError(t, err)
	assert.Empty(t, gotStrict)

	lenient := newDetector()
	cfgLenient := DefaultConfig()
	cfgLenient.ConfidenceThreshold = 0.3
	require.NoError(t, lenient.Configure(cfgLenient))
	gotLenient, err := lenient.Detect(elems, nil)
	require.NoError(t, err)
	assert.Len(t, gotLenient, 1)
}

func TestGeometricDetector_RuledLineGridBonusRaisesConfidence(t *testing.T) {
	// projectTimelineElements (unlike the perfectly-filled employee table)
	// has empty cells. With cell merging off they stay in the grid, so its
	// base confidence sits below 1.0 and the ruled-line grid bonus has room
	// to move it (with merging on they are absorbed and the table scores 1.0).
	elems := projectTimelineElements()
	cfg := DefaultConfig()
	cfg.CellMerging = false
	withoutLines := newDetector()
	require.NoError(t, withoutLines.Configure(cfg))
	base, err := withoutLines.Detect(elems, nil)
	require.NoError(t, err)
	require.Len(t, base, 1)
	require.Less(t, base[0].Confidence, 1.0)

	grid := []RuledLine{
		{Horizontal: true, Axis: 705, Lo: 40, Hi: 460},
		{Horizontal: true, Axis: 685, Lo: 40, Hi: 460},
		{Horizontal: true, Axis: 665, Lo: 40, Hi: 460},
		{Horizontal: true, Axis: 645, Lo: 40, Hi: 460},
		{Horizontal: true, Axis: 630, Lo: 40, Hi: 460},
		{Horizontal: false, Axis: 50, Lo: 625, Hi: 710},
		{Horizontal: false, Axis: 150, Lo: 625, Hi: 710},
		{Horizontal: false, Axis: 250, Lo: 625, Hi: 710},
		{Horizontal: false, Axis: 350, Lo: 625, Hi: 710},
		{Horizontal: false, Axis: 450, Lo: 625, Hi: 710},
	}
	withLines := newDetector()
	require.NoError(t, withLines.Configure(cfg))
	got, err := withLines.Detect(elems, grid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Greater(t, got[0].Confidence, base[0].Confidence)
}

func TestGeometricDetector_RectangularThroughSpans(t *testing.T) {
	got, err := newDetector().Detect(projectTimelineElements(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := 0
	for _, c := range got[0].Rows[0] {
		want += effectiveSpan(c)
	}
	for _, row := range got[0].Rows {
		sum := 0
		for _, c := range row {
			sum += effectiveSpan(c)
		}
		assert.Equal(t, want, sum)
	}
}

func effectiveSpan(c TableCell) int {
	if c.ColSpan <= 0 {
		return 1
	}
	return c.ColSpan
}

func TestGeometricDetector_Idempotent(t *testing.T) {
	elems := employeeInfoElements()
	d1, d2 := newDetector(), newDetector()
	got1, err1 := d1.Detect(elems, nil)
	got2, err2 := d2.Detect(elems, nil)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, got1, got2)
}

func TestRegistry_GeometricDetectorIsRegisteredByDefault(t *testing.T) {
	d := GetDetector("geometric")
	require.NotNil(t, d)
	assert.Equal(t, "geometric", d.Name())
}
