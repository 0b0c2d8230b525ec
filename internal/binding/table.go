package binding

import (
	"context"
	"fmt"

	"github.com/locvowork/vacation_reports/internal/cellvalue"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

// RowData is one table row keyed by field name.
type RowData map[string]interface{}

type TableOptions struct {
	// PresizedRows is the number of data rows the template already has below
	// the header. Zero means one.
	PresizedRows int
	// NoBorder skips the border pass.
	NoBorder bool
}

// TableResult describes what FillTable wrote.
type TableResult struct {
	Rows         int
	Cells        int
	InsertedRows int
	// FirstRow and LastRow span the data rows of the lowest header row.
	FirstRow int
	LastRow  int
}

// FillTable writes rows below the header cells of mapping. Rows beyond the
// template's pre-sized area are inserted first and take the style of the
// row right below the header.
func FillTable(ctx context.Context, doc Document, rows []RowData, mapping ColumnMapping, opts TableOptions) (TableResult, error) {
	var res TableResult
	if len(mapping) == 0 {
		return res, nil
	}
	presized := opts.PresizedRows
	if presized <= 0 {
		presized = 1
	}

	for _, sheet := range mapping.Sheets() {
		_, maxCol, minHeader, maxHeader := mapping.Bounds(sheet)
		if res.FirstRow == 0 || minHeader+1 < res.FirstRow {
			res.FirstRow = minHeader + 1
			res.LastRow = minHeader + len(rows)
		}
		missing := len(rows) - presized
		if missing <= 0 {
			continue
		}
		donor := maxHeader + 1
		at := donor + presized
		if err := doc.InsertRows(sheet, at, missing); err != nil {
			return res, fmt.Errorf("grow table on %q: %w", sheet, err)
		}
		width := max(doc.MaxColumn(sheet), maxCol)
		for r := at; r < at+missing; r++ {
			if err := doc.CopyRowStyle(sheet, donor, r, width); err != nil {
				return res, fmt.Errorf("copy row style on %q: %w", sheet, err)
			}
		}
		res.InsertedRows += missing
		logger.DebugLog(ctx, "inserted %d rows on %s at %d", missing, sheet, at)
	}

	for i, row := range rows {
		for field, value := range row {
			col, ok := mapping[field]
			if !ok {
				continue
			}
			cell := workbook.CellName(col.Col, col.HeaderRow+1+i)
			if err := doc.Set(col.Sheet, cell, cellvalue.Coerce(value)); err != nil {
				return res, fmt.Errorf("fill %s: %w", field, err)
			}
			res.Cells++
		}
	}
	res.Rows = len(rows)

	if opts.NoBorder || len(rows) == 0 {
		return res, nil
	}
	for _, sheet := range mapping.Sheets() {
		minCol, maxCol, minHeader, maxHeader := mapping.Bounds(sheet)
		if err := doc.ApplyBorder(sheet, minCol, minHeader+1, maxCol, maxHeader+len(rows)); err != nil {
			return res, fmt.Errorf("border table on %q: %w", sheet, err)
		}
	}
	return res, nil
}
