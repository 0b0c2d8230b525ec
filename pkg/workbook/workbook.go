// Package workbook is the spreadsheet document store used by the report
// pipeline. It wraps excelize with the handful of operations the templates
// need: cell reads and writes, defined names, row growth, style copies and
// atomic saves.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when an operation names a worksheet the
// document does not contain.
var ErrSheetNotFound = errors.New("worksheet not found")

// Document is an open spreadsheet.
type Document struct {
	f      *excelize.File
	path   string
	styles *styleCache
}

// Open opens the workbook stored at path.
func Open(path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return wrap(f, path), nil
}

// OpenBytes opens a workbook from an in-memory copy, typically a cached
// template.
func OpenBytes(data []byte) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook from memory: %w", err)
	}
	return wrap(f, ""), nil
}

// New creates an empty workbook whose only sheet is named first.
func New(first string) (*Document, error) {
	f := excelize.NewFile()
	if first != "" && first != "Sheet1" {
		if err := f.SetSheetName("Sheet1", first); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("rename default sheet: %w", err)
		}
	}
	return wrap(f, ""), nil
}

func wrap(f *excelize.File, path string) *Document {
	return &Document{f: f, path: path, styles: newStyleCache(f)}
}

// Path returns the file the document was opened from or last saved to.
func (d *Document) Path() string { return d.path }

// SheetNames lists worksheets in workbook order.
func (d *Document) SheetNames() []string { return d.f.GetSheetList() }

// HasSheet reports whether the workbook contains the named worksheet.
func (d *Document) HasSheet(name string) bool {
	if name == "" {
		return false
	}
	idx, err := d.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// FirstSheet returns the name of the first worksheet.
func (d *Document) FirstSheet() string {
	list := d.f.GetSheetList()
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// AddSheet appends a worksheet unless it already exists.
func (d *Document) AddSheet(name string) error {
	if d.HasSheet(name) {
		return nil
	}
	if _, err := d.f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %q: %w", name, err)
	}
	return nil
}

func (d *Document) requireSheet(sheet string) error {
	if !d.HasSheet(sheet) {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return nil
}

// Get returns the raw text of a cell. Number formats are not applied, so
// dates come back as serial numbers.
func (d *Document) Get(sheet, cell string) (string, error) {
	if err := d.requireSheet(sheet); err != nil {
		return "", err
	}
	v, err := d.f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", fmt.Errorf("read %s!%s: %w", sheet, cell, err)
	}
	return v, nil
}

// Set writes a value into a cell.
func (d *Document) Set(sheet, cell string, value interface{}) error {
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	if err := d.f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// SetFormula stores formula text verbatim. A leading "=" is accepted.
func (d *Document) SetFormula(sheet, cell, formula string) error {
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	if err := d.f.SetCellFormula(sheet, cell, strings.TrimPrefix(formula, "=")); err != nil {
		return fmt.Errorf("write formula %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// Formula returns the formula text stored in a cell, without the leading "=".
func (d *Document) Formula(sheet, cell string) (string, error) {
	if err := d.requireSheet(sheet); err != nil {
		return "", err
	}
	return d.f.GetCellFormula(sheet, cell)
}

// Rows returns the used cell grid of a sheet as raw text.
func (d *Document) Rows(sheet string) ([][]string, error) {
	if err := d.requireSheet(sheet); err != nil {
		return nil, err
	}
	rows, err := d.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	return rows, nil
}

// MaxColumn returns the widest used column (1-based) of a sheet.
func (d *Document) MaxColumn(sheet string) int {
	rows, err := d.Rows(sheet)
	if err != nil {
		return 0
	}
	max := 0
	for _, r := range rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// DefinedName looks up a workbook or sheet scoped name and returns the sheet
// and the first cell it refers to, with absolute markers stripped.
func (d *Document) DefinedName(name string) (sheet, cell string, ok bool) {
	for _, dn := range d.f.GetDefinedName() {
		if dn.Name != name {
			continue
		}
		ref := strings.TrimPrefix(strings.TrimSpace(dn.RefersTo), "=")
		idx := strings.LastIndex(ref, "!")
		if idx < 0 {
			continue
		}
		sheet = strings.Trim(ref[:idx], "'")
		cell = strings.ReplaceAll(ref[idx+1:], "$", "")
		if i := strings.Index(cell, ":"); i >= 0 {
			cell = cell[:i]
		}
		return sheet, cell, cell != ""
	}
	return "", "", false
}

// DefineName registers a workbook scoped name such as "Sheet1!$B$2".
func (d *Document) DefineName(name, refersTo string) error {
	return d.f.SetDefinedName(&excelize.DefinedName{Name: name, RefersTo: refersTo})
}

// InsertRows inserts count empty rows before row at.
func (d *Document) InsertRows(sheet string, at, count int) error {
	if count <= 0 {
		return nil
	}
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	if err := d.f.InsertRows(sheet, at, count); err != nil {
		return fmt.Errorf("insert %d rows at %s!%d: %w", count, sheet, at, err)
	}
	return nil
}

// CopyRowStyle copies the cell styles of row from onto row to for columns
// 1..maxColumn. The row height follows the donor.
func (d *Document) CopyRowStyle(sheet string, from, to, maxColumn int) error {
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	for col := 1; col <= maxColumn; col++ {
		src, _ := excelize.CoordinatesToCellName(col, from)
		dst, _ := excelize.CoordinatesToCellName(col, to)
		styleID, err := d.f.GetCellStyle(sheet, src)
		if err != nil {
			return fmt.Errorf("read style %s!%s: %w", sheet, src, err)
		}
		if err := d.f.SetCellStyle(sheet, dst, dst, styleID); err != nil {
			return fmt.Errorf("apply style %s!%s: %w", sheet, dst, err)
		}
	}
	if h, err := d.f.GetRowHeight(sheet, from); err == nil && h > 0 {
		_ = d.f.SetRowHeight(sheet, to, h)
	}
	return nil
}

// CopyRow copies values, formulas and styles of row from onto row to.
func (d *Document) CopyRow(sheet string, from, to, maxColumn int) error {
	if err := d.CopyRowStyle(sheet, from, to, maxColumn); err != nil {
		return err
	}
	for col := 1; col <= maxColumn; col++ {
		src, _ := excelize.CoordinatesToCellName(col, from)
		dst, _ := excelize.CoordinatesToCellName(col, to)
		if formula, err := d.f.GetCellFormula(sheet, src); err == nil && formula != "" {
			if err := d.f.SetCellFormula(sheet, dst, formula); err != nil {
				return fmt.Errorf("copy formula %s!%s: %w", sheet, dst, err)
			}
			continue
		}
		v, err := d.f.GetCellValue(sheet, src, excelize.Options{RawCellValue: true})
		if err != nil {
			return fmt.Errorf("read %s!%s: %w", sheet, src, err)
		}
		if v == "" {
			continue
		}
		if err := d.f.SetCellValue(sheet, dst, v); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, dst, err)
		}
	}
	return nil
}

// InsertPageBreak starts a new printed page at the given row.
func (d *Document) InsertPageBreak(sheet string, row int) error {
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return d.f.InsertPageBreak(sheet, cell)
}

// SaveAs writes the workbook to path through a temporary file in the same
// directory, so a crash never leaves a truncated document behind.
func (d *Document) SaveAs(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".~save-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := d.f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	d.path = path
	return nil
}

// Close releases the underlying file handles.
func (d *Document) Close() error {
	return d.f.Close()
}
