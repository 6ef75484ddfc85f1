// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tables

import (
	"math"
	"sort"
	"strings"
)

// rowQualifyThreshold is the fixed per-row composite-confidence cutoff a
// bucketed row must clear to participate in run accumulation. It is not
// configurable: Config.ConfidenceThreshold gates the final table score in
// Phase 6, a separate decision from whether a row looks tabular at all.
const rowQualifyThreshold = 0.7

// boundsTolerance bounds a RuledLine to a table's bbox when checking for
// the Phase 6 ruled-line bonus.
const boundsTolerance = 2.0

// GeometricDetector reconstructs tables from merged text elements and
// coalesced ruled lines using six phases: row bucketing, column frequency
// analysis, per-row scoring, run accumulation, grid formation with span
// detection, and table scoring/validation.
type GeometricDetector struct {
	config Config
}

// NewGeometricDetector creates a detector with the package's default
// tolerances. Callers that need different tolerances call Configure.
func NewGeometricDetector() *GeometricDetector {
	return &GeometricDetector{config: DefaultConfig()}
}

// Name returns the detector's registered name, "geometric".
func (d *GeometricDetector) Name() string { return "geometric" }

// Configure replaces the detector's tuning parameters.
func (d *GeometricDetector) Configure(cfg Config) error {
	d.config = cfg
	return nil
}

// Detect runs the six-phase pipeline over a single page's elements and
// lines. It never returns an error: reconstruction is a pure function of
// its inputs, and an input that yields no tables simply yields an empty
// slice.
func (d *GeometricDetector) Detect(elements []TextElement, lines []RuledLine) ([]Table, error) {
	if len(elements) == 0 {
		return nil, nil
	}
	cfg := d.config

	rows := bucketRows(elements, cfg.RowTolerance)
	columns := candidateColumns(elements, cfg.ColTolerance, cfg.MinColFrequency)

	scored := make([]scoredRow, len(rows))
	for i, r := range rows {
		scored[i] = scoreRow(r, columns)
	}

	runs := accumulateRuns(scored, cfg.MaxRowGap, cfg.MinRows, cfg.MinCols)
	runs = append(runs, seedFromRuledRegions(rows, scored, lines, cfg)...)
	runs = dedupeRuns(runs)

	var out []Table
	for _, r := range runs {
		t, ok := buildTable(r, columns, lines, cfg)
		if !ok {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return tableTop(out[i]) > tableTop(out[j])
	})
	return out, nil
}

func tableTop(t Table) float64 {
	return t.BBox.Y + t.BBox.Height
}

// ---- Phase 1: row bucketing ----

// row is one baseline's worth of elements, sorted left to right.
type row struct {
	y     float64
	elems []TextElement
}

// bucketRows rounds each element's y to the nearest multiple of tol,
// groups by the rounded value, and returns the groups sorted top to
// bottom with each group's elements sorted left to right.
func bucketRows(elements []TextElement, tol float64) []row {
	buckets := make(map[float64][]TextElement)
	for _, e := range elements {
		ry := roundTo(e.Y, tol)
		buckets[ry] = append(buckets[ry], e)
	}
	ys := make([]float64, 0, len(buckets))
	for y := range buckets {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	rows := make([]row, len(ys))
	for i, y := range ys {
		es := buckets[y]
		sort.Slice(es, func(a, b int) bool { return es[a].X < es[b].X })
		rows[i] = row{y: y, elems: es}
	}
	return rows
}

func roundTo(v, tol float64) float64 {
	if tol <= 0 {
		return v
	}
	return math.Round(v/tol) * tol
}

// ---- Phase 2: column frequency analysis ----

// candidateColumns rounds every element's left and right edge to tol and
// keeps the anchors seen at least minFreq times, sorted ascending.
func candidateColumns(elements []TextElement, tol float64, minFreq int) []float64 {
	counts := make(map[float64]int)
	for _, e := range elements {
		counts[roundTo(e.X, tol)]++
		counts[roundTo(e.X+e.Width, tol)]++
	}
	var cols []float64
	for x, c := range counts {
		if c >= minFreq {
			cols = append(cols, x)
		}
	}
	sort.Float64s(cols)
	return cols
}

// ---- Phase 3: per-row scoring ----

type scoredRow struct {
	row
	confidence float64
	qualifies  bool
}

func scoreRow(r row, columns []float64) scoredRow {
	alignment := alignmentScore(r.elems, columns)
	spacing := spacingScore(r.elems)
	density := densityScore(r.elems, columns)
	confidence := 0.5*alignment + 0.3*spacing + 0.2*density
	qualifies := confidence > rowQualifyThreshold && len(r.elems) >= 2
	return scoredRow{row: r, confidence: confidence, qualifies: qualifies}
}

func alignmentScore(elems []TextElement, columns []float64) float64 {
	if len(elems) == 0 {
		return 0
	}
	matched := 0
	for _, e := range elems {
		if nearAny(e.X, columns, 5.0) || nearAny(e.X+e.Width, columns, 5.0) {
			matched++
		}
	}
	return float64(matched) / float64(len(elems))
}

func nearAny(v float64, candidates []float64, tol float64) bool {
	for _, c := range candidates {
		if math.Abs(v-c) <= tol {
			return true
		}
	}
	return false
}

func spacingScore(elems []TextElement) float64 {
	if len(elems) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(elems)-1)
	for i := 1; i < len(elems); i++ {
		gaps = append(gaps, elems[i].X-(elems[i-1].X+elems[i-1].Width))
	}
	m := mean(gaps)
	if m == 0 {
		return 0
	}
	score := 1 - variance(gaps)/(m*m)
	if score < 0 {
		return 0
	}
	return score
}

func densityScore(elems []TextElement, columns []float64) float64 {
	if len(columns) == 0 {
		return 0
	}
	d := float64(len(elems)) / float64(len(columns))
	if d > 1 {
		return 1
	}
	return d
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// ---- Phase 4: run accumulation ----

// run is a maximal vertical sequence of qualifying rows, in top-to-bottom
// order, forming one table candidate.
type run []scoredRow

// accumulateRuns implements an IDLE/COLLECTING state machine: a qualifying
// row extends the run if the gap to the previous row is at most maxGap; a
// non-qualifying row or an out-of-range gap closes it.
func accumulateRuns(rows []scoredRow, maxGap float64, minRows, minCols int) []run {
	var runs []run
	var current run
	for _, r := range rows {
		if !r.qualifies {
			runs = append(runs, closeRun(current, minRows, minCols)...)
			current = nil
			continue
		}
		if len(current) > 0 {
			gap := current[len(current)-1].y - r.y
			if gap < 0 || gap > maxGap {
				runs = append(runs, closeRun(current, minRows, minCols)...)
				current = nil
			}
		}
		current = append(current, r)
	}
	runs = append(runs, closeRun(current, minRows, minCols)...)
	return runs
}

func closeRun(r run, minRows, minCols int) []run {
	if len(r) < minRows {
		return nil
	}
	for _, sr := range r {
		if len(sr.elems) < minCols {
			return nil
		}
	}
	cp := make(run, len(r))
	copy(cp, r)
	return []run{cp}
}

// seedFromRuledRegions lets a run be seeded by a ruled-line-bordered
// rectangular region, not only by vertically-adjacent qualifying rows.
// It approximates the bordered region as the bounding box of all
// horizontal/vertical ruled lines on the page (at least two of each) and
// treats every bucketed row whose elements fall inside it as part of one
// run, bypassing the per-row qualification score.
func seedFromRuledRegions(rows []row, scored []scoredRow, lines []RuledLine, cfg Config) []run {
	var horiz, vert []RuledLine
	for _, l := range lines {
		if l.Horizontal {
			horiz = append(horiz, l)
		} else {
			vert = append(vert, l)
		}
	}
	if len(horiz) < 2 || len(vert) < 2 {
		return nil
	}
	top, bottom := horiz[0].Axis, horiz[0].Axis
	for _, h := range horiz {
		top = math.Max(top, h.Axis)
		bottom = math.Min(bottom, h.Axis)
	}
	left, right := vert[0].Axis, vert[0].Axis
	for _, v := range vert {
		left = math.Min(left, v.Axis)
		right = math.Max(right, v.Axis)
	}

	var seeded run
	for i, r := range rows {
		if r.y < bottom-cfg.RowTolerance || r.y > top+cfg.RowTolerance {
			continue
		}
		inBounds := 0
		for _, e := range r.elems {
			if e.X >= left-cfg.ColTolerance && e.X <= right+cfg.ColTolerance {
				inBounds++
			}
		}
		if inBounds < cfg.MinCols {
			continue
		}
		seeded = append(seeded, scored[i])
	}
	if len(seeded) < cfg.MinRows {
		return nil
	}
	return []run{seeded}
}

// dedupeRuns drops runs whose y-span overlaps one already kept, so a
// ruled-region seed does not double-emit a table a score-based run already
// covers.
func dedupeRuns(runs []run) []run {
	var out []run
	for _, r := range runs {
		if len(r) == 0 {
			continue
		}
		dup := false
		for _, o := range out {
			if runsOverlap(r, o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

func runsOverlap(a, b run) bool {
	aTop, aBot := a[0].y, a[len(a)-1].y
	bTop, bBot := b[0].y, b[len(b)-1].y
	lo := math.Max(aBot, bBot)
	hi := math.Min(aTop, bTop)
	return hi >= lo
}

// ---- Phase 5: grid formation and span detection ----

// projectRow assigns each element to the candidate column nearest its
// horizontal center, producing a row exactly len(columns) wide. Every
// cell starts with RowSpan=ColSpan=1 whether or not it ends up occupied,
// so Phase 5 can absorb spans uniformly.
func projectRow(elems []TextElement, columns []float64, y float64) []TableCell {
	cells := make([]TableCell, len(columns))
	for i, cx := range columns {
		cells[i] = TableCell{Bounds: Rect{X: cx, Y: y}, RowSpan: 1, ColSpan: 1}
	}
	for _, e := range elems {
		center := e.X + e.Width/2
		idx := nearestColumn(center, columns)
		cell := &cells[idx]
		eb := Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.FontSize}
		if cell.Text == "" {
			cell.Bounds = eb
		} else {
			cell.Text += " "
			cell.Bounds = cell.Bounds.Union(eb)
		}
		cell.Text += e.Text
	}
	return cells
}

func nearestColumn(x float64, columns []float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range columns {
		if d := math.Abs(x - c); d < bestDist {
			bestDist, best = d, i
		}
	}
	return best
}

// absorbVerticalSpans walks each column position top to bottom and, when
// a non-empty cell is followed by one or more whitespace-only cells at
// the same column index, sets the upper cell's RowSpan to cover them.
// It runs on the uniform (pre-horizontal-merge) grid, where "same column
// position" is simply "same index" — it must run before
// absorbHorizontalSpans, which is free to reshape row lengths.
func absorbVerticalSpans(grid [][]TableCell) {
	if len(grid) == 0 {
		return
	}
	cols := len(grid[0])
	for j := 0; j < cols; j++ {
		for i := 0; i < len(grid); i++ {
			if strings.TrimSpace(grid[i][j].Text) == "" {
				continue
			}
			span := 1
			k := i + 1
			for k < len(grid) && strings.TrimSpace(grid[k][j].Text) == "" {
				span++
				k++
			}
			grid[i][j].RowSpan = span
			i = k - 1
		}
	}
}

// absorbHorizontalSpans absorbs, left to right within one row, any run of
// whitespace-only cells following a non-empty cell: the non-empty cell's
// ColSpan becomes the run length and the absorbed cells are removed,
// shortening the row. Σ(ColSpan) over the result equals len(row).
func absorbHorizontalSpans(row []TableCell) []TableCell {
	out := make([]TableCell, 0, len(row))
	i := 0
	for i < len(row) {
		cell := row[i]
		if strings.TrimSpace(cell.Text) == "" {
			out = append(out, cell)
			i++
			continue
		}
		span := 1
		bounds := cell.Bounds
		j := i + 1
		for j < len(row) && strings.TrimSpace(row[j].Text) == "" {
			span++
			bounds = bounds.Union(row[j].Bounds)
			j++
		}
		cell.ColSpan = span
		cell.Bounds = bounds
		out = append(out, cell)
		i = j
	}
	return out
}

func sumColSpans(row []TableCell) int {
	sum := 0
	for _, c := range row {
		if c.ColSpan <= 0 {
			sum++
		} else {
			sum += c.ColSpan
		}
	}
	return sum
}

func rectangularThroughSpans(grid [][]TableCell) bool {
	if len(grid) == 0 {
		return false
	}
	want := sumColSpans(grid[0])
	for _, row := range grid[1:] {
		if sumColSpans(row) != want {
			return false
		}
	}
	return true
}

func meetsNonEmptyRatio(grid [][]TableCell, minRatio float64) bool {
	total, nonEmpty := 0, 0
	for _, row := range grid {
		for _, c := range row {
			total++
			if strings.TrimSpace(c.Text) != "" {
				nonEmpty++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(nonEmpty)/float64(total) >= minRatio
}

func tableBBox(grid [][]TableCell) Rect {
	var bbox Rect
	for _, row := range grid {
		for _, c := range row {
			bbox = bbox.Union(c.Bounds)
		}
	}
	return bbox
}

// buildTable runs Phase 5 (grid formation, span detection) and Phase 6
// (scoring and validation) over one run, returning ok=false if the
// candidate fails any structural or confidence check.
func buildTable(r run, columns []float64, lines []RuledLine, cfg Config) (Table, bool) {
	if len(columns) < cfg.MinCols || len(r) == 0 {
		return Table{}, false
	}

	rawGrid := make([][]TableCell, len(r))
	for i, sr := range r {
		rawGrid[i] = projectRow(sr.elems, columns, sr.y)
	}

	merged := make([][]TableCell, len(rawGrid))
	for i, row := range rawGrid {
		cp := make([]TableCell, len(row))
		copy(cp, row)
		merged[i] = cp
	}

	if cfg.CellMerging {
		absorbVerticalSpans(merged)
		for i := range merged {
			merged[i] = absorbHorizontalSpans(merged[i])
		}
	}

	if !rectangularThroughSpans(merged) {
		return Table{}, false
	}
	if len(merged) < 2 || sumColSpans(merged[0]) < 2 {
		return Table{}, false
	}
	if !meetsNonEmptyRatio(merged, 0.3) {
		return Table{}, false
	}

	bbox := tableBBox(merged)
	confidence := scoreTable(merged, rawGrid, lines, bbox, cfg)
	if confidence < cfg.ConfidenceThreshold {
		return Table{}, false
	}

	return Table{Rows: merged, Confidence: confidence, BBox: bbox}, true
}

// ---- Phase 6: table scoring & validation ----

func scoreTable(merged, rawGrid [][]TableCell, lines []RuledLine, bbox Rect, cfg Config) float64 {
	confidence := 1.0

	lens := make(map[int]bool)
	total, empty := 0, 0
	for _, row := range merged {
		lens[sumColSpans(row)] = true
		for _, c := range row {
			total++
			if strings.TrimSpace(c.Text) == "" {
				empty++
			}
		}
	}
	if len(lens) > 1 {
		confidence *= 0.8
	}
	if total > 0 {
		emptyRatio := float64(empty) / float64(total)
		confidence *= 1 - 0.5*emptyRatio
	}

	confidence *= 0.8 + 0.2*columnDistinctness(rawGrid, cfg.ColTolerance)
	confidence *= ruledLineBonus(lines, bbox)

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// columnDistinctness averages, over every raw (pre-merge) column index
// that has at least one non-empty cell, 1/distinct-rounded-x-count: a
// column whose non-empty cells all sit at the same x contributes 1.0; one
// scattered across several x values contributes less.
func columnDistinctness(rawGrid [][]TableCell, colTol float64) float64 {
	if len(rawGrid) == 0 {
		return 0
	}
	cols := len(rawGrid[0])
	var total float64
	counted := 0
	for j := 0; j < cols; j++ {
		seen := make(map[float64]bool)
		for _, row := range rawGrid {
			c := row[j]
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			seen[roundTo(c.Bounds.X, colTol)] = true
		}
		if len(seen) == 0 {
			continue
		}
		total += 1.0 / float64(len(seen))
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// ruledLineBonus multiplies confidence by 1.1 when ruled lines inside
// bbox form a grid (≥2 horizontal and ≥2 vertical lines with nearly-equal
// gaps), by 0.9 when lines are present but irregular, and leaves it
// unchanged when no lines fall inside bbox.
func ruledLineBonus(lines []RuledLine, bbox Rect) float64 {
	var h, v []RuledLine
	for _, l := range lines {
		if !withinBounds(l, bbox) {
			continue
		}
		if l.Horizontal {
			h = append(h, l)
		} else {
			v = append(v, l)
		}
	}
	if len(h) == 0 && len(v) == 0 {
		return 1.0
	}
	if len(h) >= 2 && len(v) >= 2 && formsGrid(h) && formsGrid(v) {
		return 1.1
	}
	return 0.9
}

func withinBounds(l RuledLine, bbox Rect) bool {
	if l.Horizontal {
		return l.Axis >= bbox.Y-boundsTolerance && l.Axis <= bbox.Y+bbox.Height+boundsTolerance
	}
	return l.Axis >= bbox.X-boundsTolerance && l.Axis <= bbox.X+bbox.Width+boundsTolerance
}

func formsGrid(lines []RuledLine) bool {
	axes := make([]float64, len(lines))
	for i, l := range lines {
		axes[i] = l.Axis
	}
	sort.Float64s(axes)
	if len(axes) < 2 {
		return false
	}
	gaps := make([]float64, 0, len(axes)-1)
	for i := 1; i < len(axes); i++ {
		gaps = append(gaps, axes[i]-axes[i-1])
	}
	m := mean(gaps)
	if m == 0 {
		return false
	}
	return variance(gaps) < 0.3*m*m
}
