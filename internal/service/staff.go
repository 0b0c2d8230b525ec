package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

const maxFieldLength = 255

var (
	requiredHeaders = []string{domain.FieldFullName, domain.FieldTabNumber, domain.FieldDepartment1}
	digitsRe        = regexp.MustCompile(`^\d+$`)
)

// ValidateStaff checks the staff workbook without writing anything. The
// error is a *domain.ValidationError when the workbook is unusable.
func (s *VacationService) ValidateStaff(ctx context.Context, staffPath string) (domain.ValidationResult, error) {
	_, res := s.loadStaff(ctx, staffPath)
	if !res.Valid() {
		return res, &domain.ValidationError{Problems: res.Errors}
	}
	return res, nil
}

// loadStaff reads and validates the staff workbook. Duplicate personnel
// numbers are dropped, the first occurrence wins.
func (s *VacationService) loadStaff(ctx context.Context, path string) ([]domain.Employee, domain.ValidationResult) {
	var res domain.ValidationResult
	cfg := s.cfg.Staff

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Errors = append(res.Errors, fmt.Sprintf("staff file does not exist: %s", path))
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("staff file is not accessible: %v", err))
		}
		return nil, res
	}
	if limit := int64(cfg.MaxFileSizeMB) * 1024 * 1024; limit > 0 && info.Size() > limit {
		res.Errors = append(res.Errors, fmt.Sprintf("staff file exceeds %d MB", cfg.MaxFileSizeMB))
		return nil, res
	}

	doc, err := workbook.Open(path)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("cannot open staff file: %v", err))
		return nil, res
	}
	defer doc.Close()

	sheet := doc.FirstSheet()
	if sheet == "" {
		res.Errors = append(res.Errors, "staff file has no worksheets")
		return nil, res
	}
	rows, err := doc.Rows(sheet)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return nil, res
	}
	if len(rows) < cfg.HeaderRow {
		res.Errors = append(res.Errors, fmt.Sprintf("header row %d is missing", cfg.HeaderRow))
		return nil, res
	}

	headers := map[string]int{}
	for i, h := range rows[cfg.HeaderRow-1] {
		if h = strings.TrimSpace(h); h != "" {
			if _, dup := headers[h]; !dup {
				headers[h] = i
			}
		}
	}
	for _, req := range requiredHeaders {
		if _, ok := headers[req]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("missing required header %q", req))
		}
	}
	if !res.Valid() {
		return nil, res
	}

	var employees []domain.Employee
	seen := map[string]bool{}
	for i := cfg.HeaderRow; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		fields := make(map[string]string, len(headers))
		blank := true
		for caption, idx := range headers {
			if idx < len(row) {
				v := strings.TrimSpace(row[idx])
				fields[caption] = v
				if v != "" {
					blank = false
				}
			}
		}
		if blank {
			continue
		}
		e := domain.NewEmployee(fields)
		e.SourceRow = rowNum
		if e.FullName() == "" || e.TabNumber() == "" || e.Fields[domain.FieldDepartment1] == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d skipped: required values are missing", rowNum))
			continue
		}
		res.EmployeeCount++

		if utf8.RuneCountInString(e.FullName()) > maxFieldLength {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: full name is longer than %d characters", rowNum, maxFieldLength))
		}
		if utf8.RuneCountInString(e.Fields[domain.FieldDepartment1]) > maxFieldLength {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: department name is longer than %d characters", rowNum, maxFieldLength))
		}
		if !digitsRe.MatchString(e.TabNumber()) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: personnel number %q is not numeric", rowNum, e.TabNumber()))
		}
		if seen[e.TabNumber()] {
			res.Duplicates++
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: duplicate personnel number %s excluded", rowNum, e.TabNumber()))
			continue
		}
		seen[e.TabNumber()] = true
		employees = append(employees, e)
	}

	res.UniqueTabNumbers = len(employees)
	if res.UniqueTabNumbers < cfg.MinEmployees {
		res.Errors = append(res.Errors, fmt.Sprintf("too few employees: %d (minimum %d)", res.UniqueTabNumbers, cfg.MinEmployees))
	}
	if cfg.MaxEmployees > 0 && res.UniqueTabNumbers > cfg.MaxEmployees {
		res.Errors = append(res.Errors, fmt.Sprintf("too many employees: %d (maximum %d)", res.UniqueTabNumbers, cfg.MaxEmployees))
	}
	res.EstimatedDuration = time.Duration(float64(res.UniqueTabNumbers) * s.cfg.SecondsPerFile * float64(time.Second))

	logger.InfoLog(ctx, "staff file %s: %d employees, %d unique, %d duplicates, %d warnings",
		path, res.EmployeeCount, res.UniqueTabNumbers, res.Duplicates, len(res.Warnings))
	return employees, res
}

// groupByDepartment keeps departments in order of first appearance and
// employees in source order.
func groupByDepartment(employees []domain.Employee) ([]string, map[string][]domain.Employee) {
	var order []string
	groups := map[string][]domain.Employee{}
	for _, e := range employees {
		d := e.PrimaryDepartment()
		if _, ok := groups[d]; !ok {
			order = append(order, d)
		}
		groups[d] = append(groups[d], e)
	}
	return order, groups
}
