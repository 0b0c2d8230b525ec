// Package calendar lays a full target year out as one column per day and
// paints vacation occupancy into it.
package calendar

import (
	"fmt"
	"time"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

// Occupied is written into every vacation day cell.
const Occupied = 1

var defaultDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

var russianMonths = [12]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// Writer is the cell sink the painters need.
type Writer interface {
	Set(sheet, cell string, value interface{}) error
}

// Matrix maps dates of Year to columns. The month lengths are fixed and do
// not follow leap years.
type Matrix struct {
	Year        int
	DaysInMonth [12]int
	MonthNames  [12]string
}

func Default(year int) Matrix {
	return Matrix{Year: year, DaysInMonth: defaultDays, MonthNames: russianMonths}
}

// TotalDays is the width of the matrix in columns.
func (m Matrix) TotalDays() int {
	n := 0
	for _, d := range m.DaysInMonth {
		n += d
	}
	return n
}

// monthOffset is the number of day columns before month (1-based).
func (m Matrix) monthOffset(month time.Month) int {
	off := 0
	for i := 0; i < int(month)-1; i++ {
		off += m.DaysInMonth[i]
	}
	return off
}

// ColumnFor returns the column of date, or false when the date is not in
// the target year.
func (m Matrix) ColumnFor(date time.Time, startCol int) (int, bool) {
	if date.Year() != m.Year {
		return 0, false
	}
	return startCol + m.monthOffset(date.Month()) + date.Day() - 1, true
}

// PaintMonths writes the month captions and the day numbers. Each month's
// run of days starts right after the previous one.
func (m Matrix) PaintMonths(w Writer, sheet string, startCol, monthRow, dayRow int) error {
	col := startCol
	for i := 0; i < 12; i++ {
		if err := w.Set(sheet, workbook.CellName(col, monthRow), m.MonthNames[i]); err != nil {
			return fmt.Errorf("month caption %d: %w", i+1, err)
		}
		for day := 1; day <= m.DaysInMonth[i]; day++ {
			if err := w.Set(sheet, workbook.CellName(col, dayRow), day); err != nil {
				return fmt.Errorf("day %d.%d: %w", day, i+1, err)
			}
			col++
		}
	}
	return nil
}

// PaintOccupancy marks every vacation day of employee i on row firstRow+i.
// Days outside the target year are skipped. It returns the number of cells
// painted.
func (m Matrix) PaintOccupancy(w Writer, sheet string, periods [][]domain.VacationPeriod, startCol, firstRow int) (int, error) {
	painted := 0
	for i, list := range periods {
		row := firstRow + i
		for _, p := range list {
			start := dateOnly(p.Start)
			end := dateOnly(p.End)
			for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
				col, ok := m.ColumnFor(day, startCol)
				if !ok {
					continue
				}
				if err := w.Set(sheet, workbook.CellName(col, row), Occupied); err != nil {
					return painted, fmt.Errorf("paint %s on row %d: %w", day.Format("02.01.2006"), row, err)
				}
				painted++
			}
		}
	}
	return painted, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
