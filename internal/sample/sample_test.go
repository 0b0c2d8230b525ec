package sample

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/vacation_reports/internal/config"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

func TestEmployees(t *testing.T) {
	got := Employees(5, []string{"Sales", "IT"})
	require.Len(t, got, 5)
	assert.Equal(t, "1001", got[0].TabNumber())
	assert.Equal(t, "1005", got[4].TabNumber())
	assert.Equal(t, "Sales", got[0].PrimaryDepartment())
	assert.Equal(t, "IT", got[1].PrimaryDepartment())
	for _, e := range got {
		assert.NotEmpty(t, e.FullName())
	}
}

func TestWriteStaff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staff.xlsx")
	require.NoError(t, WriteStaff(path, 3, Employees(2, []string{"Sales"})))

	doc, err := workbook.Open(path)
	require.NoError(t, err)
	defer doc.Close()
	v, err := doc.Get(StaffSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, domain.FieldTabNumber, v)
	v, err = doc.Get(StaffSheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "1002", v)
}

func TestWriteTemplates(t *testing.T) {
	cfg := config.DefaultProcessingConfig()
	cfg.Templates.Dir = t.TempDir()
	require.NoError(t, WriteTemplates(cfg))

	doc, err := workbook.Open(cfg.BlockReportTemplatePath())
	require.NoError(t, err)
	defer doc.Close()
	assert.True(t, doc.HasSheet(cfg.Sheets.Rules))
	assert.True(t, doc.HasSheet(cfg.Sheets.Print))
}

func TestFillRandomIsDeterministic(t *testing.T) {
	cfg := config.DefaultProcessingConfig()
	cfg.Templates.Dir = t.TempDir()
	require.NoError(t, WriteTemplates(cfg))

	statuses := func() []string {
		rnd := rand.New(rand.NewPCG(7, 7))
		var out []string
		for i := 0; i < 5; i++ {
			path := filepath.Join(t.TempDir(), "form.xlsx")
			require.NoError(t, WriteTemplate(path, cfg.Sheets.Rules, []string{FormSheet}, nil, nil))
			s, err := FillRandom(cfg, path, rnd)
			require.NoError(t, err)
			out = append(out, s)
		}
		return out
	}
	assert.Equal(t, statuses(), statuses())
}
