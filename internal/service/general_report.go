package service

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/locvowork/vacation_reports/internal/binding"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/rules"
)

const totalsLabel = "Итого"

// ErrNoReadableReports means every selected block report failed to read.
var ErrNoReadableReports = errors.New("no block report could be read")

type GeneralReportRequest struct {
	BaseDir     string
	Departments []string
	// OutputDir defaults to BaseDir.
	OutputDir string
	Observer  domain.ProgressObserver
}

// CreateGeneralReport rolls the latest block report of every department up
// into one workbook. Every selected department must exist and have a block
// report.
func (s *VacationService) CreateGeneralReport(ctx context.Context, req GeneralReportRequest) (*domain.OperationLog, error) {
	r := s.startRun(ctx, OperationGeneralReport, req.Observer)

	all, err := s.ScanDepartments(ctx, req.BaseDir)
	if err != nil {
		r.fail(err, "select departments")
		return r.finish(domain.StatusError), err
	}
	depts, missing := selectDepartments(all, req.Departments)
	if len(depts) == 0 && len(missing) == 0 {
		r.fail(ErrNoDepartments, "select departments")
		return r.finish(domain.StatusError), ErrNoDepartments
	}
	for _, d := range depts {
		if !d.HasBlockReport() {
			missing = append(missing, d.Name)
		}
	}
	if len(missing) > 0 {
		err := &domain.PrerequisiteError{Missing: missing}
		r.fail(err, "general report")
		return r.finish(domain.StatusError), err
	}

	tplPath := s.cfg.GeneralReportTemplatePath()
	rs, err := r.catalog.Load(r.ctx, tplPath)
	if err != nil {
		r.fail(err, "load general report template rules")
		return r.finish(domain.StatusError), err
	}

	var summaries []domain.BlockSummary
	for i, d := range depts {
		if err := ctx.Err(); err != nil {
			return r.finish(domain.StatusCancelled), err
		}
		r.report(domain.ScopeDepartment, OperationGeneralReport, i, len(depts), d.Name)
		latest, _ := LatestReport(d.BlockReports)
		sum, err := r.readBlockSummary(latest, d.Name)
		if err != nil {
			r.fail(err, "read block report of %s", d.Name)
			r.log.Errors++
			continue
		}
		r.log.Processed++
		summaries = append(summaries, sum)
	}
	r.report(domain.ScopeDepartment, OperationGeneralReport, len(depts), len(depts), "")

	if len(summaries) == 0 {
		r.fail(ErrNoReadableReports, "general report")
		return r.finish(domain.StatusError), ErrNoReadableReports
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = req.BaseDir
	}
	out, err := r.writeGeneralReport(rs, summaries, tplPath, outDir)
	if err != nil {
		r.fail(err, "write general report")
		return r.finish(domain.StatusError), err
	}
	r.log.OutputFiles = append(r.log.OutputFiles, out)
	r.info("general report over %d blocks saved to %s", len(summaries), filepath.Base(out))
	return r.finish(batchStatus(r.log.Processed, r.log.Errors)), nil
}

// generalRow renders one block for the summary table. Templates name the
// columns in more than one way, so each value is offered under every name.
func generalRow(i int, s domain.BlockSummary) binding.RowData {
	return binding.RowData{
		"row_number":          i + 1,
		"row_number2":         i + 1,
		"name":                s.Name,
		"block_name":          s.Name,
		"report_department1":  s.Name,
		"department":          s.Department,
		fieldTotalEmployees:   s.Total,
		fieldEmployeesFilled:  s.Filled,
		fieldEmployeesCorrect: s.Correct,
		fieldEmployeesWrong:   s.Incorrect,
		fieldEmployeesNotFill: s.NotFilled,
		fieldPercentage:       s.Percentage,
		fieldRemaining:        s.Total - s.Correct,
		fieldUpdateDate:       formatUpdated(s),
		"source_file":         filepath.Base(s.SourceFilePath),
	}
}

func formatUpdated(s domain.BlockSummary) string {
	if s.UpdatedAt.IsZero() {
		return ""
	}
	return s.UpdatedAt.Format(updateDateLayout)
}

func (r *run) writeGeneralReport(rs *rules.RuleSet, summaries []domain.BlockSummary, tplPath, outDir string) (string, error) {
	doc, err := r.template(tplPath)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	resolver := r.catalog.Resolver()
	sheet := r.svc.cfg.Sheets.Report
	now := r.svc.now()

	employees, complete := 0, 0
	for _, s := range summaries {
		employees += s.Total
		if s.Percentage >= 100 {
			complete++
		}
	}
	header := map[string]interface{}{
		"update_date2":  now.Format(updateDateLayout),
		fieldUpdateDate: now.Format(updateDateLayout),
		"blocks_count":  len(summaries),
		"employees_sum": employees,
		"blocks_sum":    complete,
	}
	if applied := binding.ApplyValues(r.ctx, doc, rs, resolver, header, sheet); applied.Failed > 0 {
		r.warn("general report: %d header values could not be written", applied.Failed)
	}

	rows := make([]binding.RowData, len(summaries))
	for i, s := range summaries {
		rows[i] = generalRow(i, s)
	}
	mapping := binding.BuildColumnMapping(r.ctx, doc, rs, resolver, "", sheet)
	table, err := binding.FillTable(r.ctx, doc, rows, mapping, binding.TableOptions{})
	if err != nil {
		return "", err
	}
	if len(mapping) > 0 {
		label := ""
		for _, f := range []string{"name", "block_name", "report_department1"} {
			if _, ok := mapping[f]; ok {
				label = f
				break
			}
		}
		_, err := binding.TotalsRow(doc, mapping, table.FirstRow, table.LastRow, binding.TotalsLayout{
			SumFields: []string{
				fieldTotalEmployees, fieldEmployeesFilled, fieldEmployeesCorrect,
				fieldEmployeesWrong, fieldEmployeesNotFill, fieldRemaining,
			},
			PercentField:     fieldPercentage,
			NumeratorField:   fieldEmployeesCorrect,
			DenominatorField: fieldTotalEmployees,
			LabelField:       label,
			Label:            totalsLabel,
		})
		if err != nil {
			return "", err
		}
	}

	out := filepath.Join(outDir, GeneralReportFileName(now))
	if err := doc.SaveAs(out); err != nil {
		return "", err
	}
	return out, nil
}
