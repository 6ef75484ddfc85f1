// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEmployeeTableStream synthesizes a content stream for an "Employee
// Information" table directly in PDF operator syntax: a header row at
// baseline 700 and three data rows at 680, 660, 640, three columns at
// x=50, 200, 280.
func buildEmployeeTableStream() []byte {
	var b strings.Builder
	row := func(y float64, cells []string) {
		xs := []float64{50, 200, 280}
		for i, c := range cells {
			fmt.Fprintf(&b, "BT /F1 12 Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", xs[i], y, c)
		}
	}
	row(700, []string{"Name", "Age", "City"})
	row(680, []string{"John Smith", "35", "New York"})
	row(660, []string{"Jane Doe", "28", "Los Angeles"})
	row(640, []string{"Bob Johnson", "42", "Chicago"})
	return []byte(b.String())
}

func TestExtractTables_EmployeeInformationEndToEnd(t *testing.T) {
	got, err := ExtractTables(buildEmployeeTableStream(), nil, DefaultExtractOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)

	table := got[0]
	require.Len(t, table.Rows, 4)
	assert.Equal(t, 3, table.ColCount())
	assert.Greater(t, table.Confidence, 0.8)
	assert.Equal(t, "Chicago", table.Rows[3][2].Text)
}

func TestExtractTables_Idempotent(t *testing.T) {
	data := buildEmployeeTableStream()
	got1, err1 := ExtractTables(data, nil, DefaultExtractOptions())
	got2, err2 := ExtractTables(data, nil, DefaultExtractOptions())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, got1, got2)
}

func TestExtractTables_MalformedTailStillReturnsPrefixTables(t *testing.T) {
	data := buildEmployeeTableStream()
	data = append(data, []byte("BT /F1 10 Tf (unterminated")...)

	got, err := ExtractTables(data, nil, DefaultExtractOptions())
	require.Error(t, err)
	var malformed *MalformedStreamError
	require.ErrorAs(t, err, &malformed)
	require.Len(t, got, 1, "fragments emitted before the malformed tail still produce a table")
}

func TestExtractTables_NoTextYieldsNoTables(t *testing.T) {
	got, err := ExtractTables([]byte("q 1 0 0 1 0 0 cm Q"), nil, DefaultExtractOptions())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractTables_InvalidOptionsRejected(t *testing.T) {
	opts := DefaultExtractOptions()
	opts.MinRows = 1 // violates gte=2
	_, err := ExtractTables([]byte(""), nil, opts)
	assert.Error(t, err)
}

// buildMisalignedEmployeeTableStream is buildEmployeeTableStream with the
// last row's city cell shifted off the shared column anchor, denting the
// alignment score the same way tables.TestGeometricDetector_
// HighThresholdRejectsMisalignedTable's misaligned variant does.
func buildMisalignedEmployeeTableStream() []byte {
	var b strings.Builder
	row := func(y float64, cells []string, shiftLast float64) {
		xs := []float64{50, 200, 280 + shiftLast}
		for i, c := range cells {
			fmt.Fprintf(&b, "BT /F1 12 Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", xs[i], y, c)
		}
	}
	row(700, []string{"Name", "Age", "City"}, 0)
	row(680, []string{"John Smith", "35", "New York"}, 0)
	row(660, []string{"Jane Doe", "28", "Los Angeles"}, 0)
	row(640, []string{"Bob Johnson", "42", "Chicago"}, 15)
	return []byte(b.String())
}

// TestExtractTables_CustomConfidenceThresholdSurvivesApplyMode is a
// regression test for a bug where ExtractTables called opts.ApplyMode()
// unconditionally and silently reset a caller-set ConfidenceThreshold back
// to its ProcessingMode preset before running the pipeline. It exercises
// the custom threshold through the public ExtractTables entry point, not
// tables.GeometricDetector.Configure directly.
func TestExtractTables_CustomConfidenceThresholdSurvivesApplyMode(t *testing.T) {
	data := buildMisalignedEmployeeTableStream()

	strict := DefaultExtractOptions()
	strict.ConfidenceThreshold = 0.95
	got, err := ExtractTables(data, nil, strict)
	require.NoError(t, err)
	assert.Empty(t, got, "a custom 0.95 threshold must survive ExtractTables and reject the misaligned table")

	lenient := DefaultExtractOptions()
	lenient.ConfidenceThreshold = 0.5
	got, err = ExtractTables(data, nil, lenient)
	require.NoError(t, err)
	assert.Len(t, got, 1, "a custom 0.5 threshold must survive ExtractTables and accept the same table")
}
