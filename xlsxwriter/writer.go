// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package xlsxwriter renders reconstructed tables to a minimal XLSX
// workbook: one sheet per table, a bold header row, merged ranges for
// row/col spans, and naive column auto-width. It builds the same
// OOXML zip-of-XML-parts shape an xlsx reader would parse, run the
// opposite direction (the part names below — [Content_Types].xml,
// xl/workbook.xml, xl/_rels/workbook.xml.rels, xl/worksheets/sheetN.xml,
// xl/styles.xml — are exactly what such a reader consumes). The header
// row's s="1" cell attribute resolves against xl/styles.xml's second
// cellXfs entry, the only style the writer defines.
package xlsxwriter

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pdftables/tablext/tables"
)

// Write renders tables to an XLSX workbook, one sheet per table, and
// writes the archive to w.
func Write(w io.Writer, tbls []tables.Table) error {
	zw := zip.NewWriter(w)

	if err := writePart(zw, "[Content_Types].xml", contentTypesXML(len(tbls))); err != nil {
		return err
	}
	if err := writePart(zw, "_rels/.rels", rootRelsXML); err != nil {
		return err
	}
	if err := writePart(zw, "xl/workbook.xml", workbookXML(tbls)); err != nil {
		return err
	}
	if err := writePart(zw, "xl/_rels/workbook.xml.rels", workbookRelsXML(len(tbls))); err != nil {
		return err
	}
	if err := writePart(zw, "xl/styles.xml", stylesXML); err != nil {
		return err
	}
	for i, t := range tbls {
		name := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		if err := writePart(zw, name, sheetXML(t)); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writePart(zw *zip.Writer, name, content string) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(f, content)
	return err
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const rootRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

func contentTypesXML(numSheets int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>`)
	b.WriteString(`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>`)
	for i := 1; i <= numSheets; i++ {
		fmt.Fprintf(&b, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

func workbookXML(tbls []tables.Table) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`)
	b.WriteString(`<sheets>`)
	for i, t := range tbls {
		fmt.Fprintf(&b, `<sheet name="Page%d_Table%d" sheetId="%d" r:id="rId%d"/>`, t.PageNumber, i+1, i+1, i+1)
	}
	b.WriteString(`</sheets></workbook>`)
	return b.String()
}

func workbookRelsXML(numSheets int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i := 1; i <= numSheets; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet%d.xml"/>`, i, i)
	}
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`, numSheets+1)
	b.WriteString(`</Relationships>`)
	return b.String()
}

// stylesXML is the minimal xl/styles.xml a consumer needs to resolve the
// s="1" cell attribute sheetXML emits for header rows: cellXfs index 1
// applies fontId 1, a bold variant of the default font.
const stylesXML = xmlHeader + `<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<fonts count="2">
<font><sz val="11"/><name val="Calibri"/></font>
<font><b/><sz val="11"/><name val="Calibri"/></font>
</fonts>
<fills count="1"><fill><patternFill patternType="none"/></fill></fills>
<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>
<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>
<cellXfs count="2">
<xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/>
<xf numFmtId="0" fontId="1" fillId="0" borderId="0" xfId="0" applyFont="1"/>
</cellXfs>
</styleSheet>`

// sheetXML renders one table as a worksheet: a bold header row (row 0),
// mergeCells for every cell whose row_span/col_span exceeds 1, and column
// widths auto-sized from the longest cell text in that column.
func sheetXML(t tables.Table) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)

	b.WriteString(`<cols>`)
	for i, w := range columnWidths(t) {
		fmt.Fprintf(&b, `<col min="%d" max="%d" width="%g" customWidth="1"/>`, i+1, i+1, w)
	}
	b.WriteString(`</cols>`)

	b.WriteString(`<sheetData>`)
	var merges []string
	for rowIdx, row := range t.Rows {
		fmt.Fprintf(&b, `<row r="%d">`, rowIdx+1)
		col := 0
		for _, cell := range row {
			ref := cellRef(col, rowIdx)
			colSpan, rowSpan := effectiveSpan(cell.ColSpan), effectiveSpan(cell.RowSpan)
			if cell.Text != "" {
				fmt.Fprintf(&b, `<c r="%s" t="inlineStr"%s><is><t>%s</t></is></c>`,
					ref, boldAttr(rowIdx), escapeText(cell.Text))
			} else {
				fmt.Fprintf(&b, `<c r="%s"/>`, ref)
			}
			if colSpan > 1 || rowSpan > 1 {
				endRef := cellRef(col+colSpan-1, rowIdx+rowSpan-1)
				merges = append(merges, fmt.Sprintf("%s:%s", ref, endRef))
			}
			col += colSpan
		}
		b.WriteString(`</row>`)
	}
	b.WriteString(`</sheetData>`)

	if len(merges) > 0 {
		fmt.Fprintf(&b, `<mergeCells count="%d">`, len(merges))
		for _, m := range merges {
			fmt.Fprintf(&b, `<mergeCell ref="%s"/>`, m)
		}
		b.WriteString(`</mergeCells>`)
	}

	b.WriteString(`</worksheet>`)
	return b.String()
}

func boldAttr(rowIdx int) string {
	if rowIdx == 0 {
		return ` s="1"`
	}
	return ""
}

func effectiveSpan(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// columnWidths estimates a character-count width per column from the
// longest cell text seen there, the way a spreadsheet auto-width pass
// would, without laying out glyphs.
func columnWidths(t tables.Table) []float64 {
	if len(t.Rows) == 0 {
		return nil
	}
	widths := make([]float64, t.ColCount())
	for _, row := range t.Rows {
		col := 0
		for _, cell := range row {
			if col < len(widths) {
				if w := float64(len(cell.Text)) + 2; w > widths[col] {
					widths[col] = w
				}
			}
			col += effectiveSpan(cell.ColSpan)
		}
	}
	for i, w := range widths {
		if w < 8 {
			widths[i] = 8
		}
	}
	return widths
}

// cellRef renders a zero-based (col, row) pair as an A1-style reference.
func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetters(col), row+1)
}

func columnLetters(col int) string {
	var s string
	for col >= 0 {
		s = string(rune('A'+col%26)) + s
		col = col/26 - 1
	}
	return s
}

// escapeText renders s safe for inclusion inside an XML text node. The
// shared-strings/inline-string tables encoding/xml's Marshal would produce
// are overkill for a handful of cells per sheet, so sheetXML builds its
// XML by hand and only needs the text-node escaping piece.
func escapeText(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
