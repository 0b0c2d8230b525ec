package workbook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

var plainCellRe = regexp.MustCompile(`^\$?[A-Za-z]{1,3}\$?[0-9]+$`)

// IsCellName reports whether s is a single A1 style reference, optionally
// with absolute markers.
func IsCellName(s string) bool {
	return plainCellRe.MatchString(strings.TrimSpace(s))
}

// NormalizeCell strips absolute markers and upper-cases the column part.
func NormalizeCell(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
}

// CellName converts 1-based column and row numbers to an A1 reference.
func CellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("%s%d", ColumnName(col), row)
	}
	return name
}

// ColumnName converts a 1-based column number to letters (1 -> A, 27 -> AA).
// Numbers outside the sheet's column range give "".
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}

// ColumnNumber converts column letters to a 1-based number.
func ColumnNumber(letters string) (int, error) {
	return excelize.ColumnNameToNumber(strings.ToUpper(letters))
}

// Coordinates splits an A1 reference into 1-based column and row.
func Coordinates(cell string) (col, row int, err error) {
	return excelize.CellNameToCoordinates(NormalizeCell(cell))
}

// FirstCell returns the top-left cell of a range such as "B2:D9". Single
// cells are returned unchanged.
func FirstCell(ref string) string {
	if i := strings.Index(ref, ":"); i >= 0 {
		return ref[:i]
	}
	return ref
}
