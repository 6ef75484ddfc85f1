// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

// The table-extraction Interpreter: consumes a raw content-stream token
// sequence (via InterpretBytes, lexer.go) and emits the two parallel
// streams the Reconstructor needs — positioned TextFragments and stroked
// LineSegments — tracking only the subset of graphics/text state those
// two emissions depend on. This is deliberately separate from Page.Content
// (page.go), which is the whole-page Text/Rect extraction used by
// GetPlainText and friends.

import (
	"math"
	"strings"

	"github.com/pdftables/tablext/logger"
)

const (
	epsilonLine   = 2.0
	minLineLength = 10.0
	defaultCharAdvanceFactor = 0.6
)

// TextFragment is a single positioned run of text as emitted directly by
// the Interpreter, before any merging.
type TextFragment struct {
	Text             string
	Origin           Point
	AdvanceWidth     float64
	FontSize         float64
	FontResourceName string
}

// LineSegment is a single stroked segment, classified horizontal or
// vertical at emission time; segments at other angles are discarded.
type LineSegment struct {
	Start, End  Point
	StrokeWidth float64
}

// IsHorizontal reports whether the segment is within epsilonLine of flat.
func (l LineSegment) IsHorizontal() bool {
	return math.Abs(l.End.Y-l.Start.Y) < epsilonLine
}

// IsVertical reports whether the segment is within epsilonLine of plumb.
func (l LineSegment) IsVertical() bool {
	return math.Abs(l.End.X-l.Start.X) < epsilonLine
}

// PageResources resolves a font resource name and byte code to a glyph
// width in the PDF /Widths convention (thousandths of an em). It is the
// only way the Interpreter learns anything about a page beyond its raw
// content-stream bytes. A Page satisfies this interface directly via
// Page.CharWidth.
type PageResources interface {
	CharWidth(fontName string, code byte) (width float64, ok bool)
}

// istate is the graphics/text state the Interpreter tracks. It mirrors
// gstate (used by Page.Content) but additionally carries the current path
// and stroke width needed for line-segment emission.
type istate struct {
	CTM         matrix
	Tm, Tlm     matrix
	Tc, Tw, Th  float64
	Tl          float64
	Tfs         float64
	fontName    string
	strokeWidth float64
	path        []Point
	subpath     Point
}

func newIState() istate {
	return istate{CTM: ident, Tm: ident, Tlm: ident, Th: 1, strokeWidth: 1}
}

func transformPoint(p Point, m matrix) Point {
	return Point{
		X: p.X*m[0][0] + p.Y*m[1][0] + m[2][0],
		Y: p.X*m[0][1] + p.Y*m[1][1] + m[2][1],
	}
}

// ExtractContentElements runs the Interpreter over a page's content-stream
// bytes, returning the fragments and line segments it emitted. resources
// may be nil, in which case every character uses the default
// 0.6×font_size advance approximation.
func ExtractContentElements(data []byte, resources PageResources) ([]TextFragment, []LineSegment, error) {
	var fragments []TextFragment
	var lines []LineSegment
	g := newIState()
	var gstack []istate

	arity := func(op string, args []Value, n int) bool {
		if len(args) < n {
			logger.Error((&InvalidOperandError{Operator: op, Got: len(args), Want: n}).Error())
			return false
		}
		return true
	}

	flushPath := func() {
		g.path = nil
	}

	strokePath := func(closeFirst bool) {
		path := g.path
		if closeFirst && len(path) > 0 {
			path = append(append([]Point{}, path...), g.subpath)
		}
		for i := 0; i+1 < len(path); i++ {
			start := transformPoint(path[i], g.CTM)
			end := transformPoint(path[i+1], g.CTM)
			seg := LineSegment{Start: start, End: end, StrokeWidth: g.strokeWidth}
			length := dist(start, end)
			if length < minLineLength {
				continue
			}
			if seg.IsHorizontal() || seg.IsVertical() {
				lines = append(lines, seg)
			}
		}
		flushPath()
	}

	emitString := func(raw string) {
		width := measureAdvance(g.fontName, raw, g.Tfs, resources)
		origin := transformPoint(Point{}, g.Tm.mul(g.CTM))
		fragments = append(fragments, TextFragment{
			Text:             decodeRawBytes(raw),
			Origin:           origin,
			AdvanceWidth:     width,
			FontSize:         g.Tfs,
			FontResourceName: g.fontName,
		})
		tx := width
		g.Tm = matrix{{1, 0, 0}, {0, 1, 0}, {tx, 0, 1}}.mul(g.Tm)
	}

	err := InterpretBytes(data, func(stk *Stack, op string) {
		n := stk.Len()
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			gstack = append(gstack, g)
		case "Q":
			if len(gstack) > 0 {
				n := len(gstack) - 1
				g = gstack[n]
				gstack = gstack[:n]
			}
		case "cm":
			if !arity(op, args, 6) {
				return
			}
			var m matrix
			for i := 0; i < 6; i++ {
				m[i/2][i%2] = args[i].Float64()
			}
			m[2][2] = 1
			g.CTM = m.mul(g.CTM)
		case "w":
			if !arity(op, args, 1) {
				return
			}
			g.strokeWidth = args[0].Float64()
		case "BT":
			g.Tm = ident
			g.Tlm = ident
		case "ET":
			// no state to restore
		case "Tf":
			if !arity(op, args, 2) {
				return
			}
			g.fontName = args[0].Name()
			g.Tfs = args[1].Float64()
		case "Tm":
			if !arity(op, args, 6) {
				return
			}
			var m matrix
			for i := 0; i < 6; i++ {
				m[i/2][i%2] = args[i].Float64()
			}
			m[2][2] = 1
			g.Tm = m
			g.Tlm = m
		case "Td":
			if !arity(op, args, 2) {
				return
			}
			m := matrix{{1, 0, 0}, {0, 1, 0}, {args[0].Float64(), args[1].Float64(), 1}}
			g.Tlm = m.mul(g.Tlm)
			g.Tm = g.Tlm
		case "TD":
			if !arity(op, args, 2) {
				return
			}
			g.Tl = -args[1].Float64()
			m := matrix{{1, 0, 0}, {0, 1, 0}, {args[0].Float64(), args[1].Float64(), 1}}
			g.Tlm = m.mul(g.Tlm)
			g.Tm = g.Tlm
		case "T*":
			m := matrix{{1, 0, 0}, {0, 1, 0}, {0, -g.Tl, 1}}
			g.Tlm = m.mul(g.Tlm)
			g.Tm = g.Tlm
		case "Tc":
			if !arity(op, args, 1) {
				return
			}
			g.Tc = args[0].Float64()
		case "Tw":
			if !arity(op, args, 1) {
				return
			}
			g.Tw = args[0].Float64()
		case "Tz":
			if !arity(op, args, 1) {
				return
			}
			g.Th = args[0].Float64() / 100
		case "Tj":
			if !arity(op, args, 1) {
				return
			}
			emitString(args[0].RawString())
		case "'":
			if !arity(op, args, 1) {
				return
			}
			m := matrix{{1, 0, 0}, {0, 1, 0}, {0, -g.Tl, 1}}
			g.Tlm = m.mul(g.Tlm)
			g.Tm = g.Tlm
			emitString(args[0].RawString())
		case "\"":
			if !arity(op, args, 3) {
				return
			}
			g.Tw = args[0].Float64()
			g.Tc = args[1].Float64()
			m := matrix{{1, 0, 0}, {0, 1, 0}, {0, -g.Tl, 1}}
			g.Tlm = m.mul(g.Tlm)
			g.Tm = g.Tlm
			emitString(args[2].RawString())
		case "TJ":
			if !arity(op, args, 1) {
				return
			}
			v := args[0]
			for i := 0; i < v.Len(); i++ {
				x := v.Index(i)
				if x.Kind() == String {
					emitString(x.RawString())
					continue
				}
				tx := -x.Float64() / 1000 * g.Tfs
				g.Tm = matrix{{1, 0, 0}, {0, 1, 0}, {tx, 0, 1}}.mul(g.Tm)
			}
		case "m":
			if !arity(op, args, 2) {
				return
			}
			p := Point{args[0].Float64(), args[1].Float64()}
			g.path = append(g.path, p)
			g.subpath = p
		case "l":
			if !arity(op, args, 2) {
				return
			}
			g.path = append(g.path, Point{args[0].Float64(), args[1].Float64()})
		case "h":
			g.path = append(g.path, g.subpath)
		case "S":
			strokePath(false)
		case "s":
			strokePath(true)
		case "n", "f", "F", "f*", "B", "B*", "b", "b*":
			flushPath()
		default:
			// color, clipping, image and marked-content operators are
			// recognized structurally (arguments are already discarded by
			// the stack reset) and otherwise ignored.
		}
	})
	return fragments, lines, err
}

func dist(a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func measureAdvance(fontName, raw string, fontSize float64, resources PageResources) float64 {
	var total float64
	for i := 0; i < len(raw); i++ {
		if resources != nil {
			if w, ok := resources.CharWidth(fontName, raw[i]); ok {
				total += w / 1000 * fontSize
				continue
			}
		}
		total += defaultCharAdvanceFactor * fontSize
	}
	return total
}

// decodeRawBytes renders raw content-stream string bytes as UTF-8 without
// consulting font encoding tables (the Interpreter has no font program
// access): each byte is treated as its Latin-1 code point. Callers that
// need WinAnsi/CMap-accurate text should decode via Page.Font(...).Encoder
// instead, as Page.Content already does.
func decodeRawBytes(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		b.WriteRune(rune(raw[i]))
	}
	return b.String()
}
