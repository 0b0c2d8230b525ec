// Package binding moves data between records and template cells according
// to a template's rules.
package binding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

// Document is the part of the spreadsheet store the binders use.
// *workbook.Document satisfies it.
type Document interface {
	HasSheet(name string) bool
	FirstSheet() string
	Get(sheet, cell string) (string, error)
	Set(sheet, cell string, value interface{}) error
	SetFormula(sheet, cell, formula string) error
	DefinedName(name string) (sheet, cell string, ok bool)
	InsertRows(sheet string, at, count int) error
	CopyRowStyle(sheet string, from, to, maxColumn int) error
	MaxColumn(sheet string) int
	ApplyBorder(sheet string, fromCol, fromRow, toCol, toRow int) error
}

var ErrUnresolvable = errors.New("target does not resolve to a cell")

// Location is a concrete cell.
type Location struct {
	Sheet string
	Cell  string
	Col   int
	Row   int
}

// Locate turns a rule target into a cell of doc. The worksheet is the one
// the target names when it exists, else defaultSheet when it exists, else the
// first worksheet. Malformed targets are used literally.
func Locate(doc Document, resolver *rules.Resolver, expr, defaultSheet string) (Location, error) {
	t, _ := resolver.Resolve(expr)
	sheet := pickSheet(doc, t.Sheet, defaultSheet)
	addr := strings.TrimSpace(t.Address)

	var cell string
	switch {
	case workbook.IsCellName(addr):
		cell = workbook.NormalizeCell(addr)
	case strings.Contains(addr, ":") && workbook.IsCellName(workbook.FirstCell(addr)):
		cell = workbook.NormalizeCell(workbook.FirstCell(addr))
	case isSheetRef(addr):
		named, ref, _ := strings.Cut(addr, "!")
		sheet = pickSheet(doc, strings.Trim(strings.TrimSpace(named), `'"`), defaultSheet)
		cell = workbook.NormalizeCell(workbook.FirstCell(strings.TrimSpace(ref)))
	default:
		if nameSheet, nameCell, ok := doc.DefinedName(addr); ok {
			if doc.HasSheet(nameSheet) {
				sheet = nameSheet
			}
			cell = workbook.NormalizeCell(nameCell)
		} else {
			cell = workbook.NormalizeCell(strings.TrimPrefix(addr, "="))
		}
	}

	col, row, err := workbook.Coordinates(cell)
	if err != nil || sheet == "" {
		return Location{}, fmt.Errorf("%w: %q", ErrUnresolvable, expr)
	}
	return Location{Sheet: sheet, Cell: cell, Col: col, Row: row}, nil
}

// isSheetRef reports whether addr is a literal Sheet!A1 or Sheet!A1:B2
// written without the leading "=".
func isSheetRef(addr string) bool {
	named, ref, ok := strings.Cut(addr, "!")
	return ok && strings.TrimSpace(named) != "" && workbook.IsCellName(workbook.FirstCell(strings.TrimSpace(ref)))
}

func pickSheet(doc Document, named, defaultSheet string) string {
	if named != "" && doc.HasSheet(named) {
		return named
	}
	if defaultSheet != "" && doc.HasSheet(defaultSheet) {
		return defaultSheet
	}
	return doc.FirstSheet()
}
