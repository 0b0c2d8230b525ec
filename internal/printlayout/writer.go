// Package printlayout writes one record per line onto a print sheet,
// repeating the header block at the top of every page.
package printlayout

import (
	"context"
	"errors"
	"fmt"

	"github.com/locvowork/vacation_reports/internal/binding"
	"github.com/locvowork/vacation_reports/internal/cellvalue"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

var ErrInvalidLayout = errors.New("invalid print layout")

// Document is the part of the spreadsheet store the writer uses.
type Document interface {
	Set(sheet, cell string, value interface{}) error
	CopyRow(sheet string, from, to, maxColumn int) error
	InsertPageBreak(sheet string, row int) error
	ApplyBorder(sheet string, fromCol, fromRow, toCol, toRow int) error
	MaxColumn(sheet string) int
}

// Layout describes the print sheet of a template. HeaderTop..HeaderBottom
// is the header block repeated on every page after the first.
type Layout struct {
	FirstRow          int
	FirstPageCapacity int
	OtherPageCapacity int
	HeaderTop         int
	HeaderBottom      int
}

func (l Layout) Validate() error {
	switch {
	case l.FirstPageCapacity <= 0 || l.OtherPageCapacity <= 0:
		return fmt.Errorf("%w: capacities must be positive", ErrInvalidLayout)
	case l.FirstRow < 1:
		return fmt.Errorf("%w: first row %d", ErrInvalidLayout, l.FirstRow)
	case l.HeaderTop < 1 || l.HeaderBottom < l.HeaderTop:
		return fmt.Errorf("%w: header rows %d..%d", ErrInvalidLayout, l.HeaderTop, l.HeaderBottom)
	}
	return nil
}

func (l Layout) headerHeight() int { return l.HeaderBottom - l.HeaderTop + 1 }

// HeaderBlocks is the number of header blocks N records need, the
// template's own header included.
func (l Layout) HeaderBlocks(n int) int {
	rest := n - l.FirstPageCapacity
	if rest <= 0 {
		return 1
	}
	return 1 + (rest+l.OtherPageCapacity-1)/l.OtherPageCapacity
}

type Result struct {
	HeaderBlocks int
	DataRows     int
	// LastRow is the last row written; FirstRow-1 when nothing was written.
	LastRow int
}

type Writer struct {
	Layout Layout
}

func NewWriter(l Layout) (*Writer, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &Writer{Layout: l}, nil
}

// Write lays out rows on sheet in a single pass. Only the columns of
// mapping that sit on sheet are written.
func (w *Writer) Write(ctx context.Context, doc Document, sheet string, rows []binding.RowData, mapping binding.ColumnMapping) (Result, error) {
	l := w.Layout
	res := Result{HeaderBlocks: 1, LastRow: l.FirstRow - 1}
	minCol, maxCol, _, _ := mapping.Bounds(sheet)
	width := max(doc.MaxColumn(sheet), maxCol)

	row := l.FirstRow
	count := 0
	first := true
	for i, data := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		capacity := l.OtherPageCapacity
		if first {
			capacity = l.FirstPageCapacity
		}
		if count == capacity {
			if err := w.emitHeader(doc, sheet, row, width); err != nil {
				return res, err
			}
			row += l.headerHeight()
			count = 0
			first = false
			res.HeaderBlocks++
		}

		for field, value := range data {
			col, ok := mapping[field]
			if !ok || col.Sheet != sheet {
				continue
			}
			if err := doc.Set(sheet, workbook.CellName(col.Col, row), cellvalue.Coerce(value)); err != nil {
				return res, fmt.Errorf("print row %d: %w", i+1, err)
			}
		}
		if minCol > 0 {
			if err := doc.ApplyBorder(sheet, minCol, row, maxCol, row); err != nil {
				return res, fmt.Errorf("print row %d border: %w", i+1, err)
			}
		}
		res.LastRow = row
		res.DataRows++
		row++
		count++
	}
	logger.DebugLog(ctx, "print sheet %s: %d rows, %d header blocks", sheet, res.DataRows, res.HeaderBlocks)
	return res, nil
}

func (w *Writer) emitHeader(doc Document, sheet string, at, width int) error {
	l := w.Layout
	if err := doc.InsertPageBreak(sheet, at); err != nil {
		return fmt.Errorf("page break at %d: %w", at, err)
	}
	for r := l.HeaderTop; r <= l.HeaderBottom; r++ {
		if err := doc.CopyRow(sheet, r, at+r-l.HeaderTop, width); err != nil {
			return fmt.Errorf("repeat header row %d: %w", r, err)
		}
	}
	return nil
}
