package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/locvowork/vacation_reports/internal/binding"
	"github.com/locvowork/vacation_reports/internal/calendar"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/printlayout"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/pkg/dataflow"
)

// Column prefixes of the block report tables.
const (
	reportPrefix = "report_"
	printPrefix  = "print_"
)

// ErrNoDepartments is returned when a report run has nothing to work on.
var ErrNoDepartments = errors.New("no departments to process")

type BlockReportsRequest struct {
	BaseDir string
	// Departments limits the run to these directory names; empty means all.
	Departments []string
	Observer    domain.ProgressObserver
}

// UpdateBlockReports reads back every employee document of each department
// and writes a fresh, timestamped block report next to them.
func (s *VacationService) UpdateBlockReports(ctx context.Context, req BlockReportsRequest) (*domain.OperationLog, error) {
	r := s.startRun(ctx, OperationBlockReports, req.Observer)

	depts, err := r.departments(req.BaseDir, req.Departments)
	if err != nil {
		r.fail(err, "select departments")
		return r.finish(domain.StatusError), err
	}

	tplPath := s.cfg.BlockReportTemplatePath()
	rs, err := r.catalog.Load(r.ctx, tplPath)
	if err != nil {
		r.fail(err, "load block report template rules")
		return r.finish(domain.StatusError), err
	}
	writer, err := printlayout.NewWriter(printlayout.Layout{
		FirstRow:          s.cfg.Print.FirstRow,
		FirstPageCapacity: s.cfg.Print.FirstPageCapacity,
		OtherPageCapacity: s.cfg.Print.OtherPageCapacity,
		HeaderTop:         s.cfg.Print.HeaderTop,
		HeaderBottom:      s.cfg.Print.HeaderBottom,
	})
	if err != nil {
		r.fail(err, "print layout")
		return r.finish(domain.StatusError), err
	}

	for i, d := range depts {
		if err := ctx.Err(); err != nil {
			r.warn("cancelled after %d of %d departments", i, len(depts))
			return r.finish(domain.StatusCancelled), err
		}
		r.report(domain.ScopeDepartment, OperationBlockReports, i, len(depts), d.Name)
		out, err := r.writeBlockReport(d, rs, tplPath, writer)
		if err != nil {
			r.fail(err, "block report for %s", d.Name)
			r.log.Errors++
			continue
		}
		r.log.Processed++
		r.log.OutputFiles = append(r.log.OutputFiles, out)
		r.info("block report for %s saved to %s", d.Name, filepath.Base(out))
	}
	r.report(domain.ScopeDepartment, OperationBlockReports, len(depts), len(depts), "")

	return r.finish(batchStatus(r.log.Processed, r.log.Errors)), nil
}

// departments scans baseDir and narrows the result to names.
func (r *run) departments(baseDir string, names []string) ([]domain.DepartmentInfo, error) {
	all, err := r.svc.ScanDepartments(r.ctx, baseDir)
	if err != nil {
		return nil, err
	}
	selected, unknown := selectDepartments(all, names)
	for _, n := range unknown {
		r.warn("department %q not found in %s", n, baseDir)
	}
	if len(selected) == 0 {
		return nil, ErrNoDepartments
	}
	return selected, nil
}

func batchStatus(processed, errs int) domain.ProcessingStatus {
	switch {
	case errs == 0:
		return domain.StatusSuccess
	case processed > 0:
		return domain.StatusPartialError
	default:
		return domain.StatusError
	}
}

// collect reads every employee document of d. An unreadable document
// counts as not filled.
func (r *run) collect(d domain.DepartmentInfo) []domain.VacationInfo {
	results := dataflow.Map(r.ctx, d.EmployeeFiles, func(_ context.Context, path string) (domain.VacationInfo, error) {
		return r.readVacationInfo(path)
	}, dataflow.WithWorkers(r.svc.cfg.ReadWorkers))

	infos := make([]domain.VacationInfo, 0, len(results))
	for i, res := range results {
		path := d.EmployeeFiles[i]
		info := res.Value
		if res.Err != nil {
			r.warn("%s/%s is unreadable, counted as not filled: %v", d.Name, filepath.Base(path), res.Err)
			info = domain.VacationInfo{FilePath: path, Status: domain.StatusNotFilled}
			fillFromFileName(&info.Employee, path)
		}
		infos = append(infos, info)
		r.report(domain.ScopeFile, OperationBlockReports, i+1, len(d.EmployeeFiles), filepath.Base(path))
	}
	return infos
}

func (r *run) writeBlockReport(d domain.DepartmentInfo, rs *rules.RuleSet, tplPath string, writer *printlayout.Writer) (string, error) {
	cfg := r.svc.cfg
	infos := r.collect(d)
	summary := domain.SummarizeBlock(d.Name, infos)
	now := r.svc.now()

	doc, err := r.template(tplPath)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	resolver := r.catalog.Resolver()
	reportSheet := cfg.Sheets.Report

	header := map[string]interface{}{
		fieldBlockName:        d.Name,
		fieldUpdateDate:       now.Format(updateDateLayout),
		fieldTotalEmployees:   summary.Total,
		fieldEmployeesFilled:  summary.Filled,
		fieldEmployeesCorrect: summary.Correct,
		fieldEmployeesWrong:   summary.Incorrect,
		fieldEmployeesNotFill: summary.NotFilled,
		fieldPercentage:       summary.Percentage,
		fieldRemaining:        summary.Total - summary.Correct,
		"remaining_employees": summary.Total - summary.Correct,
	}
	if applied := binding.ApplyValues(r.ctx, doc, rs, resolver, header, reportSheet); applied.Failed > 0 {
		r.warn("%s: %d header values could not be written", d.Name, applied.Failed)
	}

	rows := make([]binding.RowData, len(infos))
	periods := make([][]domain.VacationPeriod, len(infos))
	for i, info := range infos {
		row := binding.RowData(info.Employee.Values())
		row["row_number"] = i + 1
		row["full_name"] = info.Employee.FullName()
		row["employee_name"] = info.Employee.FullName()
		row["status"] = info.Status.String()
		row["total_days"] = info.TotalDays()
		row["periods"] = len(info.Periods)
		row["periods_count"] = len(info.Periods)
		row["file"] = filepath.Base(info.FilePath)
		rows[i] = row
		periods[i] = info.Periods
	}
	mapping := binding.BuildColumnMapping(r.ctx, doc, rs, resolver, reportPrefix, reportSheet)
	table, err := binding.FillTable(r.ctx, doc, rows, mapping, binding.TableOptions{})
	if err != nil {
		return "", fmt.Errorf("report table: %w", err)
	}

	if doc.HasSheet(reportSheet) {
		m := calendar.Default(cfg.Calendar.TargetYear)
		if err := m.PaintMonths(doc, reportSheet, cfg.Calendar.StartColumn, cfg.Calendar.MonthRow, cfg.Calendar.DayRow); err != nil {
			return "", err
		}
		first := table.FirstRow
		if first == 0 {
			first = cfg.Calendar.EmployeeStartRow
		}
		if _, err := m.PaintOccupancy(doc, reportSheet, periods, cfg.Calendar.StartColumn, first); err != nil {
			return "", err
		}
	}

	if printSheet := cfg.Sheets.Print; doc.HasSheet(printSheet) {
		records := printlayout.Normalize(infos)
		printRows := make([]binding.RowData, len(records))
		for i, rec := range records {
			printRows[i] = rec.Data(i + 1)
		}
		printMapping := binding.BuildColumnMapping(r.ctx, doc, rs, resolver, printPrefix, printSheet)
		if _, err := writer.Write(r.ctx, doc, printSheet, printRows, printMapping); err != nil {
			return "", fmt.Errorf("print sheet: %w", err)
		}
	}

	out := filepath.Join(d.Path, BlockReportFileName(d.Name, now))
	if err := doc.SaveAs(out); err != nil {
		return "", err
	}
	return out, nil
}
