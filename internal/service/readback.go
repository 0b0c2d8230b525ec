package service

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/vacation_reports/internal/binding"
	"github.com/locvowork/vacation_reports/internal/cellvalue"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

// Field names shared by the block report template and its read back.
const (
	fieldStatus           = "status"
	fieldBlockName        = "block_name"
	fieldUpdateDate       = "update_date"
	fieldTotalEmployees   = "total_employees"
	fieldEmployeesFilled  = "employees_filled"
	fieldEmployeesCorrect = "employees_correct"
	fieldEmployeesWrong   = "employees_incorrect"
	fieldEmployeesNotFill = "employees_not_filled"
	fieldPercentage       = "percentage"
	fieldRemaining        = "remaining"
	updateDateLayout      = "02.01.2006 15:04"
)

var (
	dateLayouts = []string{
		updateDateLayout,
		"02.01.2006",
		"02/01/2006",
		"2006-01-02",
		"2006-01-02 15:04:05",
		"02.01.06",
		"02/01/06",
	}
	fileEmployeeRe = regexp.MustCompile(`^(.+?)\s*\(([^()]+)\)\.xlsx$`)
)

// parseDate accepts an Excel serial date or one of the common text layouts.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// documentRules prefers the rules sheet carried by the document and falls
// back to the template it was made from.
func (r *run) documentRules(doc *workbook.Document, templatePath string) (*rules.RuleSet, error) {
	rs, err := rules.Parse(doc, r.catalog.Sheet())
	if err == nil {
		return rs, nil
	}
	logger.DebugLog(r.ctx, "%s: %v, using template rules", doc.Path(), err)
	return r.catalog.Load(r.ctx, templatePath)
}

// readVacationInfo reads an employee document back. Periods are only read
// from correctly filled documents.
func (r *run) readVacationInfo(path string) (domain.VacationInfo, error) {
	info := domain.VacationInfo{FilePath: path}
	doc, err := workbook.Open(path)
	if err != nil {
		return info, err
	}
	defer doc.Close()

	rs, err := r.documentRules(doc, r.svc.cfg.EmployeeTemplatePath())
	if err != nil {
		return info, err
	}
	sheet := doc.FirstSheet()
	resolver := r.catalog.Resolver()

	values := binding.ReadValues(r.ctx, doc, rs.Values(), resolver, sheet)
	reads := binding.ReadValues(r.ctx, doc, rs.Reads(), resolver, sheet)

	status, ok := reads[fieldStatus]
	if !ok {
		cfg := r.svc.cfg.Employee
		if status, err = doc.Get(sheet, cfg.StatusCell); err != nil {
			return info, err
		}
	}
	delete(values, fieldStatus)
	info.Status = domain.ParseVacationStatus(status)
	info.Employee = domain.EmployeeFromValues(values)
	fillFromFileName(&info.Employee, path)

	if info.Status == domain.StatusFilledCorrect {
		if info.Periods, err = r.readPeriods(doc, sheet); err != nil {
			return info, err
		}
	}
	return info, nil
}

func (r *run) readPeriods(doc *workbook.Document, sheet string) ([]domain.VacationPeriod, error) {
	cfg := r.svc.cfg.Employee
	var out []domain.VacationPeriod
	for row := cfg.PeriodFirstRow; row <= cfg.PeriodLastRow; row++ {
		startText, err := doc.Get(sheet, fmt.Sprintf("%s%d", cfg.StartColumn, row))
		if err != nil {
			return nil, err
		}
		endText, err := doc.Get(sheet, fmt.Sprintf("%s%d", cfg.EndColumn, row))
		if err != nil {
			return nil, err
		}
		daysText, err := doc.Get(sheet, fmt.Sprintf("%s%d", cfg.DaysColumn, row))
		if err != nil {
			return nil, err
		}
		start, okStart := parseDate(startText)
		end, okEnd := parseDate(endText)
		days, okDays := cellvalue.Int(daysText)
		if !okStart || !okEnd || !okDays || days <= 0 {
			continue
		}
		out = append(out, domain.NewVacationPeriod(start, end, days))
	}
	return out, nil
}

// fillFromFileName completes name and personnel number from the
// "Name (tab).xlsx" file name when the document left them blank.
func fillFromFileName(e *domain.Employee, path string) {
	m := fileEmployeeRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return
	}
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if e.FullName() == "" {
		e.Fields[domain.FieldFullName] = m[1]
	}
	if e.TabNumber() == "" {
		e.Fields[domain.FieldTabNumber] = m[2]
	}
}

// readBlockSummary reads the header values of a block report. Read rules
// win over Value rules when the report has any.
func (r *run) readBlockSummary(path, department string) (domain.BlockSummary, error) {
	s := domain.BlockSummary{Department: department, SourceFilePath: path}
	doc, err := workbook.Open(path)
	if err != nil {
		return s, err
	}
	defer doc.Close()

	rs, err := r.documentRules(doc, r.svc.cfg.BlockReportTemplatePath())
	if err != nil {
		return s, err
	}
	fields := rs.Reads()
	if len(fields) == 0 {
		fields = rs.Values()
	}
	values := binding.ReadValues(r.ctx, doc, fields, r.catalog.Resolver(), doc.FirstSheet())

	total, ok := cellvalue.Int(values[fieldTotalEmployees])
	if !ok {
		return s, fmt.Errorf("%s: total employees is missing or not a number", filepath.Base(path))
	}
	filled, _ := cellvalue.Int(values[fieldEmployeesFilled])
	correct, _ := cellvalue.Int(values[fieldEmployeesCorrect])

	s.Name = values[fieldBlockName]
	if s.Name == "" {
		s.Name = department
	}
	s.Total = total
	s.Filled = filled
	s.Correct = correct
	s.Incorrect = max(filled-correct, 0)
	s.NotFilled = max(total-filled, 0)
	s.Percentage = domain.Percent(correct, total)
	if t, ok := parseDate(values[fieldUpdateDate]); ok {
		s.UpdatedAt = t
	} else if t, ok := ReportTimestamp(path); ok {
		s.UpdatedAt = t
	}
	return s, nil
}
