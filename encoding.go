// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

// Byte-to-rune tables and string-classification helpers used by Font
// encoders (page.go) and by sentence reconstruction (GetStyledTexts).

import (
	"fmt"
	"math"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// pdfDocEncoding implements PDFDocEncoding (PDF32000-1:2008 Annex D.2):
// printable ASCII maps to itself; a handful of reserved control codes and
// one high-byte gap are unassigned; the 0x18-0x1F and 0x80-0x9F ranges
// carry typographic punctuation not present in Latin-1.
var pdfDocEncoding = buildPDFDocEncoding()

func buildPDFDocEncoding() [256]rune {
	var t [256]rune
	for i := range t {
		t[i] = rune(i)
	}
	for i := 0; i < 0x18; i++ {
		switch i {
		case '\t', '\n', '\r':
		default:
			t[i] = unicode.ReplacementChar
		}
	}
	t[0x7F] = unicode.ReplacementChar
	t[0xAD] = unicode.ReplacementChar
	overrides := map[int]rune{
		0x18: 0x02D8, 0x19: 0x02C7, 0x1A: 0x02C6, 0x1B: 0x02D9,
		0x1C: 0x02DD, 0x1D: 0x02DB, 0x1E: 0x02DA, 0x1F: 0x02DC,
		0x80: 0x2022, 0x81: 0x2020, 0x82: 0x2021, 0x83: 0x2026,
		0x84: 0x2014, 0x85: 0x2013, 0x86: 0x0192, 0x87: 0x2044,
		0x88: 0x2039, 0x89: 0x203A, 0x8A: 0x2212, 0x8B: 0x2030,
		0x8C: 0x201E, 0x8D: 0x201C, 0x8E: 0x201D, 0x8F: 0x2018,
		0x90: 0x2019, 0x91: 0x201A, 0x92: 0x2122, 0x93: 0xFB01,
		0x94: 0xFB02, 0x95: 0x0141, 0x96: 0x0152, 0x97: 0x0160,
		0x98: 0x0178, 0x99: 0x017D, 0x9A: 0x0131, 0x9B: 0x0142,
		0x9C: 0x0153, 0x9D: 0x0161, 0x9E: 0x017E, 0xA0: 0x20AC,
	}
	for b, r := range overrides {
		t[b] = r
	}
	return t
}

// winAnsiEncoding approximates CP1252: ASCII plus Latin-1 in the upper
// range, with the Windows-specific punctuation block at 0x80-0x9F.
var winAnsiEncoding = buildWinAnsiEncoding()

func buildWinAnsiEncoding() [256]rune {
	var t [256]rune
	for i := range t {
		t[i] = rune(i)
	}
	overrides := map[int]rune{
		0x80: 0x20AC, 0x82: 0x201A, 0x83: 0x0192, 0x84: 0x201E,
		0x85: 0x2026, 0x86: 0x2020, 0x87: 0x2021, 0x88: 0x02C6,
		0x89: 0x2030, 0x8A: 0x0160, 0x8B: 0x2039, 0x8C: 0x0152,
		0x8E: 0x017D, 0x91: 0x2018, 0x92: 0x2019, 0x93: 0x201C,
		0x94: 0x201D, 0x95: 0x2022, 0x96: 0x2013, 0x97: 0x2014,
		0x98: 0x02DC, 0x99: 0x2122, 0x9A: 0x0161, 0x9B: 0x203A,
		0x9C: 0x0153, 0x9E: 0x017E, 0x9F: 0x0178,
	}
	for b, r := range overrides {
		t[b] = r
	}
	return t
}

// macRomanEncoding approximates the classic Mac OS Roman script, which
// diverges from Latin-1 throughout the upper half of the byte range.
var macRomanEncoding = buildMacRomanEncoding()

func buildMacRomanEncoding() [256]rune {
	var t [256]rune
	for i := 0; i < 0x80; i++ {
		t[i] = rune(i)
	}
	upper := []rune{
		0x00C4, 0x00C5, 0x00C7, 0x00C9, 0x00D1, 0x00D6, 0x00DC, 0x00E1,
		0x00E0, 0x00E2, 0x00E4, 0x00E3, 0x00E5, 0x00E7, 0x00E9, 0x00E8,
		0x00EA, 0x00EB, 0x00ED, 0x00EC, 0x00EE, 0x00EF, 0x00F1, 0x00F3,
		0x00F2, 0x00F4, 0x00F6, 0x00F5, 0x00FA, 0x00F9, 0x00FB, 0x00FC,
		0x2020, 0x00B0, 0x00A2, 0x00A3, 0x00A7, 0x2022, 0x00B6, 0x00DF,
		0x00AE, 0x00A9, 0x2122, 0x00B4, 0x00A8, 0x2260, 0x00C6, 0x00D8,
		0x221E, 0x00B1, 0x2264, 0x2265, 0x00A5, 0x00B5, 0x2202, 0x2211,
		0x220F, 0x03C0, 0x222B, 0x00AA, 0x00BA, 0x03A9, 0x00E6, 0x00F8,
		0x00BF, 0x00A1, 0x00AC, 0x221A, 0x0192, 0x2248, 0x2206, 0x00AB,
		0x00BB, 0x2026, 0x00A0, 0x00C0, 0x00C3, 0x00D5, 0x0152, 0x0153,
		0x2013, 0x2014, 0x201C, 0x201D, 0x2018, 0x2019, 0x00F7, 0x25CA,
		0x00FF, 0x0178, 0x2044, 0x20AC, 0x2039, 0x203A, 0xFB01, 0xFB02,
		0x2021, 0x00B7, 0x201A, 0x201E, 0x2030, 0x00C2, 0x00CA, 0x00C1,
		0x00CB, 0x00C8, 0x00CD, 0x00CE, 0x00CF, 0x00CC, 0x00D3, 0x00D4,
		0xF8FF, 0x00D2, 0x00DA, 0x00DB, 0x00D9, 0x0131, 0x02C6, 0x02DC,
		0x00AF, 0x02D8, 0x02D9, 0x02DA, 0x00B8, 0x02DD, 0x02DB, 0x02C7,
	}
	for i, r := range upper {
		t[0x80+i] = r
	}
	return t
}

// nameToRune maps Adobe Glyph List glyph names to Unicode code points. It
// covers the common ASCII-range named glyphs plus the full "uniXXXX"
// convention for the Basic Latin / Latin-1 Supplement blocks; an entry
// not found here is simply left unmapped by the caller.
var nameToRune = buildNameToRune()

func buildNameToRune() map[string]rune {
	m := map[string]rune{
		"space": 0x0020, "exclam": 0x0021, "quotedbl": 0x0022, "numbersign": 0x0023,
		"dollar": 0x0024, "percent": 0x0025, "ampersand": 0x0026, "quotesingle": 0x0027,
		"parenleft": 0x0028, "parenright": 0x0029, "asterisk": 0x002A, "plus": 0x002B,
		"comma": 0x002C, "hyphen": 0x002D, "period": 0x002E, "slash": 0x002F,
		"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
		"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
		"colon": 0x003A, "semicolon": 0x003B, "less": 0x003C, "equal": 0x003D,
		"greater": 0x003E, "question": 0x003F, "at": 0x0040,
		"bracketleft": 0x005B, "backslash": 0x005C, "bracketright": 0x005D,
		"asciicircum": 0x005E, "underscore": 0x005F, "grave": 0x0060,
		"braceleft": 0x007B, "bar": 0x007C, "braceright": 0x007D, "asciitilde": 0x007E,
		"bullet": 0x2022, "endash": 0x2013, "emdash": 0x2014,
		"quoteleft": 0x2018, "quoteright": 0x2019,
		"quotedblleft": 0x201C, "quotedblright": 0x201D,
		"ellipsis": 0x2026, "trademark": 0x2122, "fi": 0xFB01, "fl": 0xFB02,
	}
	for c := 'A'; c <= 'Z'; c++ {
		m[string(c)] = c
	}
	for c := 'a'; c <= 'z'; c++ {
		m[string(c)] = c
	}
	for r := rune(0x00); r <= 0x00FF; r++ {
		m[fmt.Sprintf("uni%04X", r)] = r
	}
	return m
}

// isUTF16 reports whether s begins with a UTF-16BE byte-order mark and has
// an even length, the convention PDF uses for UTF-16 text strings.
func isUTF16(s string) bool {
	if len(s) < 2 || len(s)%2 != 0 {
		return false
	}
	return s[0] == 0xFE && s[1] == 0xFF
}

// utf16Decode decodes a UTF-16BE string, stripping a leading BOM if present.
func utf16Decode(s string) string {
	b := []byte(s)
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
	}
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(u16))
}

// isPDFDocEncoded reports whether s can be interpreted as PDFDocEncoding:
// not a UTF-16 string, and with no byte mapping to an unassigned code point.
func isPDFDocEncoded(s string) bool {
	if isUTF16(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if pdfDocEncoding[s[i]] == unicode.ReplacementChar {
			return false
		}
	}
	return true
}

// pdfDocDecode decodes a PDFDocEncoding string to UTF-8.
func pdfDocDecode(s string) string {
	r := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		r[i] = pdfDocEncoding[s[i]]
	}
	return string(r)
}

// DecodeUTF8OrPreserve decodes s as UTF-8 when valid; otherwise it
// preserves each raw byte as its own rune rather than dropping or
// replacing the data, since the byte's meaning is usually font-specific
// rather than truly invalid text.
func DecodeUTF8OrPreserve(s string) []rune {
	if utf8.ValidString(s) {
		return []rune(s)
	}
	out := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = rune(s[i])
	}
	return out
}

// IsSameSentence reports whether current continues the same run of styled
// text as last: same font and size (within rounding tolerance) and close
// enough vertically to be the same baseline or a wrapped continuation.
func IsSameSentence(last, current Text) bool {
	if last.S == "" {
		return false
	}
	if last.Font != current.Font {
		return false
	}
	if math.Abs(last.FontSize-current.FontSize) > 0.1 {
		return false
	}
	if math.Abs(last.Y-current.Y) > 3 {
		return false
	}
	return true
}
