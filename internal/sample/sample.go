// Package sample builds the stock templates and demo staff workbooks. The
// seeder command and the pipeline tests share it.
package sample

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/bxcodec/faker/v4"

	"github.com/locvowork/vacation_reports/internal/config"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

const (
	FormSheet  = "Form"
	StaffSheet = "Штат"
)

var staffHeaders = []string{
	domain.FieldFullName,
	domain.FieldTabNumber,
	domain.FieldPosition,
	domain.FieldDepartment1,
	domain.FieldDepartment2,
	domain.FieldDepartment3,
	domain.FieldDepartment4,
}

var positions = []string{
	"Инженер",
	"Ведущий инженер",
	"Бухгалтер",
	"Менеджер",
	"Аналитик",
	"Специалист",
}

// Rule is one line of a template rules sheet.
type Rule struct {
	Target string
	Field  string
	Class  string
}

// Cell is a fixed caption or value placed on a template sheet.
type Cell struct {
	Sheet string
	Ref   string
	Value interface{}
}

// Employees generates n employees spread round-robin over departments.
// Personnel numbers start at 1001.
func Employees(n int, departments []string) []domain.Employee {
	out := make([]domain.Employee, n)
	for i := range n {
		dept := ""
		if len(departments) > 0 {
			dept = departments[i%len(departments)]
		}
		out[i] = domain.NewEmployee(map[string]string{
			domain.FieldFullName:    faker.Name(),
			domain.FieldTabNumber:   fmt.Sprintf("%d", 1001+i),
			domain.FieldPosition:    positions[rand.IntN(len(positions))],
			domain.FieldDepartment1: dept,
		})
	}
	return out
}

// WriteStaff saves employees as a staff workbook with the header on
// headerRow.
func WriteStaff(path string, headerRow int, employees []domain.Employee) error {
	doc, err := workbook.New(StaffSheet)
	if err != nil {
		return err
	}
	defer doc.Close()

	if err := doc.Set(StaffSheet, "A1", "Штатное расписание"); err != nil {
		return err
	}
	for i, h := range staffHeaders {
		if err := doc.Set(StaffSheet, workbook.CellName(i+1, headerRow), h); err != nil {
			return err
		}
	}
	for r, e := range employees {
		for c, h := range staffHeaders {
			v := e.Fields[h]
			if v == "" {
				continue
			}
			if err := doc.Set(StaffSheet, workbook.CellName(c+1, headerRow+1+r), v); err != nil {
				return err
			}
		}
	}
	return doc.SaveAs(path)
}

// EmployeeRules is the rules sheet of the stock employee template.
func EmployeeRules() []Rule {
	return []Rule{
		{"=Form!B3", "full_name", "Value"},
		{"B4", "tab_number", "Value"},
		{"=Form!B5", "position", "Value"},
		{"B6", "department1", "Value"},
		{"B12", "status", "Read"},
	}
}

// BlockReportRules is the rules sheet of the stock block report template.
func BlockReportRules() []Rule {
	return []Rule{
		{"=Report!B2", "block_name", "Value"},
		{"=Report!B3", "update_date", "Value"},
		{"=Report!B4", "total_employees", "Value"},
		{"=Report!B5", "employees_filled", "Value"},
		{"=Report!B6", "employees_correct", "Value"},
		{"=Report!D4", "employees_incorrect", "Value"},
		{"=Report!D5", "employees_not_filled", "Value"},
		{"=Report!D6", "percentage", "Value"},
		{"=Report!D3", "remaining", "Value"},
		{"=Report!A8", "report_row_number", "Header"},
		{"=Report!B8", "report_full_name", "Header"},
		{"=Report!C8", "report_tab_number", "Header"},
		{"=Report!D8", "report_status", "Header"},
		{"=Report!E8", "report_total_days", "Header"},
		{"=Print!A8", "print_row_number", "Header"},
		{"=Print!B8", "print_employee_name", "Header"},
		{"=Print!C8", "print_tab_number", "Header"},
		{"=Print!D8", "print_start_date", "Header"},
		{"=Print!E8", "print_end_date", "Header"},
		{"=Print!F8", "print_duration", "Header"},
	}
}

// GeneralReportRules is the rules sheet of the stock general report
// template.
func GeneralReportRules() []Rule {
	return []Rule{
		{"B2", "update_date2", "Value"},
		{"B3", "blocks_count", "Value"},
		{"B4", "employees_sum", "Value"},
		{"B5", "blocks_sum", "Value"},
		{"A7", "row_number", "Header"},
		{"B7", "name", "Header"},
		{"C7", "total_employees", "Header"},
		{"D7", "employees_filled", "Header"},
		{"E7", "employees_correct", "Header"},
		{"F7", "percentage", "Header"},
	}
}

// WriteTemplates creates the three stock templates in cfg.Templates.Dir.
func WriteTemplates(cfg *config.ProcessingConfig) error {
	if err := os.MkdirAll(cfg.Templates.Dir, 0o755); err != nil {
		return err
	}
	if err := WriteTemplate(cfg.EmployeeTemplatePath(), cfg.Sheets.Rules, []string{FormSheet}, employeeCells(), EmployeeRules()); err != nil {
		return err
	}
	if err := WriteTemplate(cfg.BlockReportTemplatePath(), cfg.Sheets.Rules, []string{cfg.Sheets.Report, cfg.Sheets.Print}, blockReportCells(cfg), BlockReportRules()); err != nil {
		return err
	}
	return WriteTemplate(cfg.GeneralReportTemplatePath(), cfg.Sheets.Rules, []string{cfg.Sheets.Report}, generalReportCells(cfg), GeneralReportRules())
}

// WriteTemplate saves a workbook with the given sheets, fixed cells and a
// rules sheet. Passing no rules leaves the rules sheet with only its
// caption row.
func WriteTemplate(path, rulesSheet string, sheets []string, cells []Cell, rules []Rule) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	doc, err := workbook.New(sheets[0])
	if err != nil {
		return err
	}
	defer doc.Close()
	extra := append(append([]string{}, sheets[1:]...), rulesSheet)
	for _, s := range extra {
		if err := doc.AddSheet(s); err != nil {
			return err
		}
	}
	for _, c := range cells {
		if err := doc.Set(c.Sheet, c.Ref, c.Value); err != nil {
			return err
		}
	}
	for i, caption := range []string{"target", "field", "class"} {
		if err := doc.Set(rulesSheet, workbook.CellName(i+1, 1), caption); err != nil {
			return err
		}
	}
	for i, r := range rules {
		row := i + 2
		for c, v := range []string{r.Target, r.Field, r.Class} {
			if err := doc.Set(rulesSheet, workbook.CellName(c+1, row), v); err != nil {
				return err
			}
		}
	}
	return doc.SaveAs(path)
}

func employeeCells() []Cell {
	return []Cell{
		{FormSheet, "A1", "Планирование отпусков"},
		{FormSheet, "A3", "ФИО"},
		{FormSheet, "A4", "Табельный номер"},
		{FormSheet, "A5", "Должность"},
		{FormSheet, "A6", "Подразделение"},
		{FormSheet, "A12", "Статус"},
		{FormSheet, "B12", domain.StatusTextNotFilled},
		{FormSheet, "C14", "Начало"},
		{FormSheet, "D14", "Окончание"},
		{FormSheet, "E14", "Дней"},
	}
}

func blockReportCells(cfg *config.ProcessingConfig) []Cell {
	report, prt := cfg.Sheets.Report, cfg.Sheets.Print
	return []Cell{
		{report, "A1", "Отчет по блоку"},
		{report, "A2", "Блок"},
		{report, "A3", "Обновлено"},
		{report, "A4", "Всего"},
		{report, "A8", "№"},
		{report, "B8", "ФИО"},
		{report, "C8", "Таб. №"},
		{report, "D8", "Статус"},
		{report, "E8", "Дней"},
		{prt, "A1", "График отпусков"},
		{prt, "A8", "№"},
		{prt, "B8", "ФИО"},
		{prt, "C8", "Таб. №"},
		{prt, "D8", "Начало"},
		{prt, "E8", "Окончание"},
		{prt, "F8", "Дней"},
	}
}

func generalReportCells(cfg *config.ProcessingConfig) []Cell {
	report := cfg.Sheets.Report
	return []Cell{
		{report, "A1", "Общий отчет"},
		{report, "A7", "№"},
		{report, "B7", "Блок"},
		{report, "C7", "Всего"},
		{report, "D7", "Заполнено"},
		{report, "E7", "Корректно"},
		{report, "F7", "%"},
	}
}

// Fill marks an employee document as filled by its owner: the status cell
// gets status and the periods go to the period table.
func Fill(cfg *config.ProcessingConfig, path, status string, periods []domain.VacationPeriod) error {
	doc, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	sheet := doc.FirstSheet()
	ec := cfg.Employee
	if err := doc.Set(sheet, ec.StatusCell, status); err != nil {
		return err
	}
	for i, p := range periods {
		row := ec.PeriodFirstRow + i
		if row > ec.PeriodLastRow {
			break
		}
		values := map[string]interface{}{
			ec.StartColumn: p.Start.Format("02.01.2006"),
			ec.EndColumn:   p.End.Format("02.01.2006"),
			ec.DaysColumn:  p.Days,
		}
		for col, v := range values {
			if err := doc.Set(sheet, fmt.Sprintf("%s%d", col, row), v); err != nil {
				return err
			}
		}
	}
	return doc.SaveAs(path)
}

// Period is a shorthand for tests and demo data.
func Period(year int, month time.Month, day, days int) domain.VacationPeriod {
	start := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	return domain.NewVacationPeriod(start, start.AddDate(0, 0, days-1), days)
}

// FillRandom fills path the way a random employee would: most forms come
// back correct with two periods, some incorrect, some untouched. It returns
// the status written, empty for an untouched form.
func FillRandom(cfg *config.ProcessingConfig, path string, rnd *rand.Rand) (string, error) {
	switch n := rnd.IntN(10); {
	case n < 2:
		return "", nil
	case n < 4:
		return domain.StatusTextFilledIncorrect, Fill(cfg, path, domain.StatusTextFilledIncorrect, nil)
	}
	year := cfg.Calendar.TargetYear
	first := Period(year, time.Month(1+rnd.IntN(6)), 1+rnd.IntN(20), 7+rnd.IntN(8))
	second := Period(year, time.Month(7+rnd.IntN(5)), 1+rnd.IntN(20), 14)
	return domain.StatusTextFilledCorrect, Fill(cfg, path, domain.StatusTextFilledCorrect, []domain.VacationPeriod{first, second})
}
