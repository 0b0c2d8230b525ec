package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// styleCache remembers, per base style, the derived style that adds a thin
// border, so each combination is registered in the workbook only once.
type styleCache struct {
	file     *excelize.File
	bordered map[int]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{file: f, bordered: make(map[int]int)}
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

func (c *styleCache) withBorder(base int) (int, error) {
	if id, ok := c.bordered[base]; ok {
		return id, nil
	}
	style, err := c.file.GetStyle(base)
	if err != nil || style == nil {
		style = &excelize.Style{}
	}
	style.Border = thinBorder()
	id, err := c.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	c.bordered[base] = id
	return id, nil
}

// ApplyBorder puts a thin border around every cell of the rectangle
// (fromCol, fromRow)..(toCol, toRow), keeping fonts, fills and number
// formats the cells already had.
func (d *Document) ApplyBorder(sheet string, fromCol, fromRow, toCol, toRow int) error {
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	if fromCol > toCol || fromRow > toRow || fromCol < 1 || fromRow < 1 {
		return nil
	}
	for row := fromRow; row <= toRow; row++ {
		for col := fromCol; col <= toCol; col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			base, err := d.f.GetCellStyle(sheet, cell)
			if err != nil {
				return fmt.Errorf("read style %s!%s: %w", sheet, cell, err)
			}
			id, err := d.styles.withBorder(base)
			if err != nil {
				return fmt.Errorf("create bordered style: %w", err)
			}
			if err := d.f.SetCellStyle(sheet, cell, cell, id); err != nil {
				return fmt.Errorf("apply border %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// HasBorder reports whether a cell carries a border on all four sides.
func (d *Document) HasBorder(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	style, err := d.f.GetStyle(id)
	if err != nil || style == nil {
		return false
	}
	sides := map[string]bool{}
	for _, b := range style.Border {
		if b.Style > 0 {
			sides[b.Type] = true
		}
	}
	return sides["left"] && sides["right"] && sides["top"] && sides["bottom"]
}

// StyleID returns the style index of a cell.
func (d *Document) StyleID(sheet, cell string) (int, error) {
	return d.f.GetCellStyle(sheet, cell)
}

// NewFillStyle registers a solid fill style, mostly useful when building
// templates.
func (d *Document) NewFillStyle(color string, bold bool) (int, error) {
	return d.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: bold},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
}

// SetStyle applies a registered style to a rectangle given as cell names.
func (d *Document) SetStyle(sheet, topLeft, bottomRight string, styleID int) error {
	if err := d.requireSheet(sheet); err != nil {
		return err
	}
	return d.f.SetCellStyle(sheet, topLeft, bottomRight, styleID)
}
