// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

// The Fragment Merger: collapses adjacent TextFragments on the same
// baseline into logical TextElements, and coalesces collinear stroke
// segments into logical RuledLines.

import (
	"math"
	"sort"
)

const epsilonBaseline = 2.0

// TextElement is a TextFragment after adjacent same-baseline, same-font
// fragments have been concatenated.
type TextElement struct {
	Text     string
	Origin   Point
	Width    float64
	FontSize float64
	FontName string
}

// MergeFragments sorts fragments by descending y then ascending x and
// concatenates runs that share a baseline, font, and size, and sit close
// enough horizontally to plausibly be the same run of text split across
// separate show-text operators.
func MergeFragments(fragments []TextFragment) []TextElement {
	if len(fragments) == 0 {
		return nil
	}
	sorted := make([]TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Origin.Y-sorted[j].Origin.Y) >= epsilonBaseline {
			return sorted[i].Origin.Y > sorted[j].Origin.Y
		}
		return sorted[i].Origin.X < sorted[j].Origin.X
	})

	var out []TextElement
	cur := TextElement{
		Text: sorted[0].Text, Origin: sorted[0].Origin, Width: sorted[0].AdvanceWidth,
		FontSize: sorted[0].FontSize, FontName: sorted[0].FontResourceName,
	}
	for _, f := range sorted[1:] {
		sameBaseline := math.Abs(f.Origin.Y-cur.Origin.Y) < epsilonBaseline
		sameFont := f.FontResourceName == cur.FontName && f.FontSize == cur.FontSize
		gap := f.Origin.X - (cur.Origin.X + cur.Width)
		adjacent := gap >= 0 && gap < 0.3*cur.FontSize
		if sameBaseline && sameFont && adjacent {
			cur.Text += f.Text
			cur.Width = (f.Origin.X + f.AdvanceWidth) - cur.Origin.X
			continue
		}
		out = append(out, cur)
		cur = TextElement{
			Text: f.Text, Origin: f.Origin, Width: f.AdvanceWidth,
			FontSize: f.FontSize, FontName: f.FontResourceName,
		}
	}
	out = append(out, cur)
	return out
}

// RuledLine is a LineSegment after coalescing collinear, overlapping runs.
type RuledLine struct {
	Horizontal  bool
	Axis        float64 // y for horizontal lines, x for vertical lines
	Lo, Hi      float64 // span along the orthogonal axis
	StrokeWidth float64
}

// CoalesceLines partitions segments into horizontal and vertical sets,
// groups each set by axis coordinate within epsilonLine, and merges
// touching or overlapping spans within a group into a single RuledLine.
func CoalesceLines(segments []LineSegment) []RuledLine {
	var horiz, vert []LineSegment
	for _, s := range segments {
		switch {
		case s.IsHorizontal():
			horiz = append(horiz, s)
		case s.IsVertical():
			vert = append(vert, s)
		}
	}
	var out []RuledLine
	out = append(out, coalesceAxis(horiz, true)...)
	out = append(out, coalesceAxis(vert, false)...)
	return out
}

// lineSpan is a LineSegment reduced to its axis coordinate and span along
// the orthogonal direction, used only while coalescing one orientation.
type lineSpan struct {
	axis, lo, hi, width float64
}

func coalesceAxis(segments []LineSegment, horizontal bool) []RuledLine {
	if len(segments) == 0 {
		return nil
	}
	spans := make([]lineSpan, len(segments))
	for i, s := range segments {
		var axis, lo, hi float64
		if horizontal {
			axis = s.Start.Y
			lo, hi = s.Start.X, s.End.X
		} else {
			axis = s.Start.X
			lo, hi = s.Start.Y, s.End.Y
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		spans[i] = lineSpan{axis, lo, hi, s.StrokeWidth}
	}
	sort.Slice(spans, func(i, j int) bool {
		if math.Abs(spans[i].axis-spans[j].axis) >= epsilonLine {
			return spans[i].axis < spans[j].axis
		}
		return spans[i].lo < spans[j].lo
	})

	var out []RuledLine
	groupStart := 0
	for i := 1; i <= len(spans); i++ {
		if i < len(spans) && math.Abs(spans[i].axis-spans[groupStart].axis) < epsilonLine {
			continue
		}
		out = append(out, mergeSpanGroup(spans[groupStart:i], horizontal)...)
		groupStart = i
	}
	return out
}

// mergeSpanGroup merges touching/overlapping spans (within epsilonLine)
// inside a single axis-aligned group into maximal RuledLines. group is
// already sorted by lo.
func mergeSpanGroup(group []lineSpan, horizontal bool) []RuledLine {
	var out []RuledLine
	axis := group[0].axis
	lo, hi, width := group[0].lo, group[0].hi, group[0].width
	for _, s := range group[1:] {
		if s.lo <= hi+epsilonLine {
			if s.hi > hi {
				hi = s.hi
			}
			continue
		}
		out = append(out, RuledLine{Horizontal: horizontal, Axis: axis, Lo: lo, Hi: hi, StrokeWidth: width})
		lo, hi, width = s.lo, s.hi, s.width
	}
	out = append(out, RuledLine{Horizontal: horizontal, Axis: axis, Lo: lo, Hi: hi, StrokeWidth: width})
	return out
}
