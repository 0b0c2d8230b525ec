package printlayout

import (
	"sort"

	"github.com/locvowork/vacation_reports/internal/binding"
	"github.com/locvowork/vacation_reports/internal/domain"
)

const dateLayout = "02.01.2006"

// Record is one printed line: an employee and at most one of their periods.
type Record struct {
	Employee domain.Employee
	Status   domain.VacationStatus
	// Period is nil for an employee without periods.
	Period *domain.VacationPeriod
}

// Normalize flattens infos to one record per (employee, period). Employees
// without periods get a single placeholder record. Correctly filled
// employees come first; the order is otherwise kept.
func Normalize(infos []domain.VacationInfo) []Record {
	sorted := make([]domain.VacationInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Status == domain.StatusFilledCorrect && sorted[j].Status != domain.StatusFilledCorrect
	})

	var out []Record
	for _, info := range sorted {
		if len(info.Periods) == 0 {
			out = append(out, Record{Employee: info.Employee, Status: info.Status})
			continue
		}
		for i := range info.Periods {
			p := info.Periods[i]
			out = append(out, Record{Employee: info.Employee, Status: info.Status, Period: &p})
		}
	}
	return out
}

// Data renders the record for the print table. rowNumber is 1-based.
func (r Record) Data(rowNumber int) binding.RowData {
	d := binding.RowData{
		"employee_name":       r.Employee.FullName(),
		"tab_number":          r.Employee.TabNumber(),
		"position":            r.Employee.Position(),
		"start_date":          "",
		"end_date":            "",
		"duration":            "",
		"signature":           "",
		"acknowledgment_date": "",
		"notes":               "",
		"row_number":          rowNumber,
	}
	if r.Period != nil {
		d["start_date"] = r.Period.Start.Format(dateLayout)
		d["end_date"] = r.Period.End.Format(dateLayout)
		d["duration"] = r.Period.Days
	}
	return d
}
