package workbook

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDocument_SaveAndReopen(t *testing.T) {
	doc, err := New("Report")
	require.NoError(t, err)
	require.NoError(t, doc.AddSheet("rules"))
	require.NoError(t, doc.Set("Report", "B2", 28))
	require.NoError(t, doc.Set("Report", "C2", "Иванов"))
	require.NoError(t, doc.SetFormula("Report", "D2", "=SUM(B2:B3)"))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, doc.SaveAs(path))
	require.NoError(t, doc.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []string{"Report", "rules"}, reopened.SheetNames())
	assert.Equal(t, "Report", reopened.FirstSheet())

	v, err := reopened.Get("Report", "B2")
	require.NoError(t, err)
	assert.Equal(t, "28", v)

	v, err = reopened.Get("Report", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Иванов", v)

	f, err := reopened.Formula("Report", "D2")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B2:B3)", f)
}

func TestDocument_MissingSheet(t *testing.T) {
	doc, err := New("Report")
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.Get("Nope", "A1")
	assert.ErrorIs(t, err, ErrSheetNotFound)
	assert.ErrorIs(t, doc.Set("Nope", "A1", 1), ErrSheetNotFound)
	assert.False(t, doc.HasSheet(""))
}

func TestDocument_DefinedName(t *testing.T) {
	doc, err := New("Form")
	require.NoError(t, err)
	defer doc.Close()

	require.NoError(t, doc.DefineName("full_name", "Form!$B$10"))
	require.NoError(t, doc.DefineName("area", "'Form'!$C$3:$D$4"))

	sheet, cell, ok := doc.DefinedName("full_name")
	require.True(t, ok)
	assert.Equal(t, "Form", sheet)
	assert.Equal(t, "B10", cell)

	sheet, cell, ok = doc.DefinedName("area")
	require.True(t, ok)
	assert.Equal(t, "Form", sheet)
	assert.Equal(t, "C3", cell)

	_, _, ok = doc.DefinedName("missing")
	assert.False(t, ok)
}

func TestDocument_InsertRowsAndCopyStyle(t *testing.T) {
	doc, err := New("Report")
	require.NoError(t, err)
	defer doc.Close()

	fill, err := doc.NewFillStyle("FFFF00", true)
	require.NoError(t, err)
	require.NoError(t, doc.SetStyle("Report", "A2", "C2", fill))
	require.NoError(t, doc.Set("Report", "A3", "total"))

	require.NoError(t, doc.InsertRows("Report", 3, 2))
	for _, row := range []int{3, 4} {
		require.NoError(t, doc.CopyRowStyle("Report", 2, row, 3))
	}

	for _, cell := range []string{"A3", "C3", "B4"} {
		id, err := doc.StyleID("Report", cell)
		require.NoError(t, err)
		assert.Equal(t, fill, id, cell)
	}

	moved, err := doc.Get("Report", "A5")
	require.NoError(t, err)
	assert.Equal(t, "total", moved)
}

func TestDocument_CopyRow(t *testing.T) {
	doc, err := New("Print")
	require.NoError(t, err)
	defer doc.Close()

	require.NoError(t, doc.Set("Print", "A1", "№"))
	require.NoError(t, doc.Set("Print", "B1", "ФИО"))
	require.NoError(t, doc.CopyRow("Print", 1, 7, 2))

	a, _ := doc.Get("Print", "A7")
	b, _ := doc.Get("Print", "B7")
	assert.Equal(t, "№", a)
	assert.Equal(t, "ФИО", b)
}

func TestDocument_ApplyBorder(t *testing.T) {
	doc, err := New("Report")
	require.NoError(t, err)
	defer doc.Close()

	fill, err := doc.NewFillStyle("DDEBF7", false)
	require.NoError(t, err)
	require.NoError(t, doc.SetStyle("Report", "B2", "B2", fill))

	require.NoError(t, doc.ApplyBorder("Report", 1, 2, 3, 4))

	assert.True(t, doc.HasBorder("Report", "A2"))
	assert.True(t, doc.HasBorder("Report", "B2"))
	assert.True(t, doc.HasBorder("Report", "C4"))
	assert.False(t, doc.HasBorder("Report", "D4"))
	assert.False(t, doc.HasBorder("Report", "A5"))

	// fill survives the border pass
	id, err := doc.StyleID("Report", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, fill, id)
}

func TestCellHelpers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain", "B10", true},
		{"absolute", "$B$10", true},
		{"lower", "b10", true},
		{"range", "B10:C11", false},
		{"name", "full_name", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCellName(tt.in))
		})
	}

	assert.Equal(t, "A", ColumnName(1))
	assert.Equal(t, "Z", ColumnName(26))
	assert.Equal(t, "AA", ColumnName(27))
	assert.Equal(t, "L", ColumnName(12))
	assert.Equal(t, "BT", ColumnName(72))
	assert.Equal(t, "XFD", ColumnName(excelize.MaxColumns))
	assert.Empty(t, ColumnName(0))
	assert.Empty(t, ColumnName(excelize.MaxColumns+1))
	assert.Equal(t, "L9", CellName(12, 9))
	assert.Equal(t, "B2", FirstCell("B2:D9"))
	assert.Equal(t, "B10", NormalizeCell(" $b$10 "))

	col, row, err := Coordinates("$AA$7")
	require.NoError(t, err)
	assert.Equal(t, 27, col)
	assert.Equal(t, 7, row)

	n, err := ColumnNumber("l")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}
