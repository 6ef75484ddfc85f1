// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTablePDF assembles a minimal multi-page PDF, one content stream per
// page, using the same hand-tracked-offset xref construction
// TestGetTextByColumn uses in page_test.go.
func buildTablePDF(streams []string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := map[int]int{}

	n := len(streams)
	pageObjStart := 3
	contentObjStart := pageObjStart + n
	fontObj := contentObjStart + n

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", pageObjStart+i)
	}
	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), n)

	for i := 0; i < n; i++ {
		pageObj := pageObjStart + i
		contentObj := contentObjStart + i
		offsets[pageObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 400 400] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>\nendobj\n",
			pageObj, contentObj, fontObj)
	}

	for i := 0; i < n; i++ {
		contentObj := contentObjStart + i
		stream := streams[i]
		offsets[contentObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n", contentObj, len(stream))
		b.WriteString(stream)
		if !strings.HasSuffix(stream, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("endstream\nendobj\n")
	}

	offsets[fontObj] = b.Len()
	fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n", fontObj)

	maxObj := fontObj
	xrefStart := b.Len()
	b.WriteString("xref\n")
	fmt.Fprintf(&b, "0 %d\n", maxObj+1)
	b.WriteString(pad10(0) + " 65535 f \n")
	for i := 1; i <= maxObj; i++ {
		b.WriteString(pad10(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n")
	fmt.Fprintf(&b, "<< /Root 1 0 R /Size %d >>\n", maxObj+1)
	b.WriteString("startxref\n")
	b.WriteString(strconv.Itoa(xrefStart))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}

// writeTempPDF writes data to a fresh *.pdf file under t.TempDir() and
// returns its path, since TableProcessor.ExtractFile takes a path, not a
// reader.
func writeTempPDF(t *testing.T, data []byte) string {
	t.Helper()
	path := t.TempDir() + "/doc.pdf"
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestTableProcessor_ExtractFile_OnPageCompleteReportsPerPageStats(t *testing.T) {
	soloLine := "BT /F1 12 Tf 1 0 0 1 50 50 Tm (Solo) Tj ET\n"
	pdf := buildTablePDF([]string{string(buildEmployeeTableStream()), soloLine})
	path := writeTempPDF(t, pdf)

	var mu sync.Mutex
	var stats []TableStats

	cfg := NewDefaultTableProcessorConfig()
	cfg.MaxWorkersPerPDF = 1
	cfg.OnPageComplete = func(s TableStats) {
		mu.Lock()
		stats = append(stats, s)
		mu.Unlock()
	}
	proc := NewTableProcessor(cfg)

	got, err := proc.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1, "only the employee-information page yields a table")

	require.Len(t, stats, 2, "OnPageComplete must fire once per page")
	byPage := map[int]TableStats{}
	for _, s := range stats {
		byPage[s.PageNumber] = s
		assert.True(t, s.Duration >= 0, "Duration must be a measured, non-negative value")
		assert.False(t, s.Truncated, "neither page hits a malformed-stream tail")
	}
	assert.Equal(t, 1, byPage[1].TableCount)
	assert.Equal(t, 0, byPage[2].TableCount)
}

func TestTableProcessor_ExtractFile_OnPageCompleteMarksTruncatedOnMalformedStream(t *testing.T) {
	stream := string(buildEmployeeTableStream()) + "BT /F1 10 Tf (unterminated"
	pdf := buildTablePDF([]string{stream})
	path := writeTempPDF(t, pdf)

	var mu sync.Mutex
	var stats []TableStats

	cfg := NewDefaultTableProcessorConfig()
	cfg.ParsingMode = BestEffort
	cfg.OnPageComplete = func(s TableStats) {
		mu.Lock()
		stats = append(stats, s)
		mu.Unlock()
	}
	proc := NewTableProcessor(cfg)

	got, err := proc.ExtractFile(context.Background(), path)
	require.NoError(t, err, "best-effort parsing mode swallows the page-level malformed-stream error")
	require.Len(t, got, 1, "fragments emitted before the malformed tail still produce a table")

	require.Len(t, stats, 1)
	assert.True(t, stats[0].Truncated, "a malformed-stream partial result must be reported as truncated")
}
