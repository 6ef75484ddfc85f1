// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xlsxwriter

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftables/tablext/tables"
)

func sampleTable() tables.Table {
	return tables.Table{
		PageNumber: 1,
		Confidence: 0.95,
		BBox:       tables.Rect{X: 50, Y: 640, Width: 270, Height: 60},
		Rows: [][]tables.TableCell{
			{
				{Text: "Name", RowSpan: 1, ColSpan: 1},
				{Text: "Age", RowSpan: 1, ColSpan: 1},
				{Text: "City", RowSpan: 1, ColSpan: 1},
			},
			{
				{Text: "John Smith", RowSpan: 1, ColSpan: 1},
				{Text: "35", RowSpan: 1, ColSpan: 1},
				{Text: "New York", RowSpan: 1, ColSpan: 1},
			},
			{
				{Text: "Q1 Summary", RowSpan: 1, ColSpan: 2},
				{Text: "", RowSpan: 1, ColSpan: 1},
			},
		},
	}
}

func TestWrite_ProducesValidZipWithExpectedParts(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []tables.Table{sampleTable()})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/worksheets/sheet1.xml",
	} {
		assert.True(t, names[want], "missing part %s", want)
	}
}

// TestWrite_HeaderStyleReferenceResolves checks that the s="1" attribute
// sheetXML emits on header cells actually resolves against a cellXfs entry
// in xl/styles.xml, and that xl/styles.xml is wired into the zip's
// content-types and workbook relationships — not just present as an
// unreferenced part.
func TestWrite_HeaderStyleReferenceResolves(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []tables.Table{sampleTable()})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		files[f.Name] = f
	}
	require.Contains(t, files, "xl/styles.xml")

	read := func(name string) string {
		rc, err := files[name].Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}

	contentTypes := read("[Content_Types].xml")
	assert.Contains(t, contentTypes, `PartName="/xl/styles.xml"`)

	workbookRels := read("xl/_rels/workbook.xml.rels")
	assert.Contains(t, workbookRels, `Target="styles.xml"`)
	assert.Contains(t, workbookRels, "relationships/styles")

	sheet := read("xl/worksheets/sheet1.xml")
	require.Contains(t, sheet, `s="1"`)

	styles := read("xl/styles.xml")
	assert.Contains(t, styles, "<cellXfs")
	assert.Contains(t, styles, "<b/>", "a bold font must back the header style index")

	var parsed struct {
		CellXfs struct {
			Count int `xml:"count,attr"`
			Xf    []struct {
				FontID int `xml:"fontId,attr"`
			} `xml:"xf"`
		} `xml:"cellXfs"`
	}
	require.NoError(t, xml.Unmarshal([]byte(styles), &parsed))
	require.GreaterOrEqual(t, len(parsed.CellXfs.Xf), 2, "cellXfs must have an entry for s=\"1\"")
	assert.Equal(t, 1, parsed.CellXfs.Xf[1].FontID, "cellXfs[1] must point at the bold font")
}

func TestWrite_MultipleTablesProduceOneSheetEach(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []tables.Table{sampleTable(), sampleTable()})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["xl/worksheets/sheet1.xml"])
	assert.True(t, names["xl/worksheets/sheet2.xml"])
}

func TestSheetXML_MergesSpannedCell(t *testing.T) {
	xml := sheetXML(sampleTable())
	assert.Contains(t, xml, `<mergeCell ref="A3:B3"/>`)
}

func TestSheetXML_EscapesReservedCharacters(t *testing.T) {
	tbl := tables.Table{
		Rows: [][]tables.TableCell{
			{{Text: "A & B <tag>", RowSpan: 1, ColSpan: 1}},
		},
	}
	xml := sheetXML(tbl)
	assert.Contains(t, xml, "A &amp; B &lt;tag&gt;")
}

func TestCellRef_WrapsPastZ(t *testing.T) {
	assert.Equal(t, "A1", cellRef(0, 0))
	assert.Equal(t, "Z1", cellRef(25, 0))
	assert.Equal(t, "AA1", cellRef(26, 0))
}

func TestColumnWidths_AccountsForSpannedCells(t *testing.T) {
	widths := columnWidths(sampleTable())
	require.Len(t, widths, 3)
	for _, w := range widths {
		assert.GreaterOrEqual(t, w, 8.0)
	}
}
