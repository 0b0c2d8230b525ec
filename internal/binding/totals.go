package binding

import (
	"fmt"

	"github.com/locvowork/vacation_reports/pkg/workbook"
)

// TotalsLayout describes the grand total row under a filled table.
type TotalsLayout struct {
	// Row defaults to the row after the last data row.
	Row int
	// SumFields get SUM over the data rows of their column.
	SumFields []string
	// PercentField receives ROUND(SUM(numerator)/SUM(denominator)*100),
	// guarded against an empty denominator.
	PercentField     string
	NumeratorField   string
	DenominatorField string
	// LabelField, when mapped, receives Label.
	LabelField string
	Label      string
}

// TotalsRow writes formula text for the totals row and returns the row used.
// Fields missing from the mapping are skipped.
func TotalsRow(doc Document, mapping ColumnMapping, firstRow, lastRow int, layout TotalsLayout) (int, error) {
	if lastRow < firstRow {
		lastRow = firstRow
	}
	row := layout.Row
	if row <= 0 {
		row = lastRow + 1
	}

	rangeOf := func(c Column) string {
		letter := workbook.ColumnName(c.Col)
		return fmt.Sprintf("%s%d:%s%d", letter, firstRow, letter, lastRow)
	}

	for _, field := range layout.SumFields {
		col, ok := mapping[field]
		if !ok {
			continue
		}
		if err := doc.SetFormula(col.Sheet, workbook.CellName(col.Col, row), "SUM("+rangeOf(col)+")"); err != nil {
			return row, fmt.Errorf("totals for %s: %w", field, err)
		}
	}

	if col, ok := mapping[layout.PercentField]; ok {
		num, okNum := mapping[layout.NumeratorField]
		den, okDen := mapping[layout.DenominatorField]
		if okNum && okDen {
			formula := fmt.Sprintf("IF(SUM(%[1]s)=0,0,ROUND(SUM(%[2]s)/SUM(%[1]s)*100,0))", rangeOf(den), rangeOf(num))
			if err := doc.SetFormula(col.Sheet, workbook.CellName(col.Col, row), formula); err != nil {
				return row, fmt.Errorf("totals percentage: %w", err)
			}
		}
	}

	if col, ok := mapping[layout.LabelField]; ok && layout.Label != "" {
		if err := doc.Set(col.Sheet, workbook.CellName(col.Col, row), layout.Label); err != nil {
			return row, fmt.Errorf("totals label: %w", err)
		}
	}
	return row, nil
}
