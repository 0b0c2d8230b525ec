package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/locvowork/vacation_reports/internal/config"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/sample"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

type memRuns struct {
	mu   sync.Mutex
	logs []*domain.OperationLog
}

func (m *memRuns) Save(_ context.Context, log *domain.OperationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memRuns) List(_ context.Context, f domain.RunFilter) ([]domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RunRecord
	for _, l := range m.logs {
		if f.Operation == "" || l.Operation == f.Operation {
			out = append(out, l.Record())
		}
	}
	return out, nil
}

type fixture struct {
	svc  *VacationService
	cfg  *config.ProcessingConfig
	runs *memRuns
	dir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultProcessingConfig()
	cfg.Templates.Dir = filepath.Join(dir, "templates")
	require.NoError(t, sample.WriteTemplates(cfg))

	runs := &memRuns{}
	return &fixture{svc: NewVacationService(cfg, runs), cfg: cfg, runs: runs, dir: dir}
}

func (f *fixture) at(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

// staff writes a staff workbook; each row is name, personnel number,
// department.
func (f *fixture) staff(t *testing.T, rows ...[3]string) string {
	t.Helper()
	employees := make([]domain.Employee, len(rows))
	for i, r := range rows {
		employees[i] = domain.NewEmployee(map[string]string{
			domain.FieldFullName:    r[0],
			domain.FieldTabNumber:   r[1],
			domain.FieldPosition:    "Инженер",
			domain.FieldDepartment1: r[2],
		})
	}
	path := filepath.Join(f.dir, "staff.xlsx")
	require.NoError(t, sample.WriteStaff(path, f.cfg.Staff.HeaderRow, employees))
	return path
}

func cellText(t *testing.T, path, sheet, cell string) string {
	t.Helper()
	doc, err := workbook.Open(path)
	require.NoError(t, err)
	defer doc.Close()
	v, err := doc.Get(sheet, cell)
	require.NoError(t, err)
	return v
}

func cellFormula(t *testing.T, path, sheet, cell string) string {
	t.Helper()
	doc, err := workbook.Open(path)
	require.NoError(t, err)
	defer doc.Close()
	v, err := doc.Formula(sheet, cell)
	require.NoError(t, err)
	return v
}
