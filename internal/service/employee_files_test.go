package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/internal/sample"
)

func TestCreateEmployeeFiles_GroupsByDepartment(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, sample.WriteTemplate(f.cfg.EmployeeTemplatePath(), f.cfg.Sheets.Rules,
		[]string{sample.FormSheet}, nil, []sample.Rule{{Target: "B10", Field: "full_name", Class: "Value"}}))

	staff := f.staff(t,
		[3]string{"Иванов Иван", "101", "Sales"},
		[3]string{"Петров Петр", "101", "Sales"},
		[3]string{"Сидоров Сидор", "102", "IT"},
	)
	target := filepath.Join(f.dir, "out")

	res, err := f.svc.CreateEmployeeFiles(context.Background(), EmployeeFilesRequest{StaffPath: staff, TargetDir: target})
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, res.State)
	assert.Equal(t, domain.StatusSuccess, res.Log.Status)
	assert.Zero(t, res.Log.Errors)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, 1, res.Validation.Duplicates)
	assert.DirExists(t, filepath.Join(target, "Sales"))
	assert.DirExists(t, filepath.Join(target, "IT"))

	ivanov := filepath.Join(target, "Sales", "Иванов Иван (101).xlsx")
	assert.FileExists(t, ivanov)
	assert.Equal(t, "Иванов Иван", cellText(t, ivanov, sample.FormSheet, "B10"))
	assert.NoFileExists(t, filepath.Join(target, "Sales", "Петров Петр (101).xlsx"))

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".backup_"), "backup dir %s left behind", e.Name())
	}

	assert.Equal(t, []BatchState{StateValidating, StateCreatingStructure, StateProcessingBlocks, StateFinalizing, StateSuccess}, res.History)
	require.Len(t, f.runs.logs, 1)
	assert.Equal(t, OperationEmployeeFiles, f.runs.logs[0].Operation)
}

func TestCreateEmployeeFiles_Idempotent(t *testing.T) {
	f := newFixture(t)
	staff := f.staff(t,
		[3]string{"Иванов Иван", "101", "Sales"},
		[3]string{"Сидоров Сидор", "102", "IT"},
	)
	target := filepath.Join(f.dir, "out")
	req := EmployeeFilesRequest{StaffPath: staff, TargetDir: target}

	first, err := f.svc.CreateEmployeeFiles(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Created, 2)

	second, err := f.svc.CreateEmployeeFiles(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 2, second.Skipped)
	assert.Zero(t, second.Log.Errors)
	assert.Equal(t, StateSuccess, second.State)
}

func TestCreateEmployeeFiles_EmptyRulesAbort(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, sample.WriteTemplate(f.cfg.EmployeeTemplatePath(), f.cfg.Sheets.Rules,
		[]string{sample.FormSheet}, nil, nil))
	staff := f.staff(t, [3]string{"Иванов Иван", "101", "Sales"})
	target := filepath.Join(f.dir, "out")

	res, err := f.svc.CreateEmployeeFiles(context.Background(), EmployeeFilesRequest{StaffPath: staff, TargetDir: target})
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrEmptyRuleSet)

	var rerr *rules.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, rules.KindEmptyRuleSet, rerr.Kind)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, domain.StatusError, res.Log.Status)
	assert.NoDirExists(t, target)
}

func TestCreateEmployeeFiles_RollsBackOnItemError(t *testing.T) {
	f := newFixture(t)
	staff := f.staff(t,
		[3]string{"Алексеев Алексей", "101", "Sales"},
		[3]string{"Борисов Борис", "102", "Sales"},
		[3]string{"Сидоров Сидор", "103", "IT"},
	)
	target := filepath.Join(f.dir, "out")
	// a directory where Борисов's document should go makes that write fail
	blocker := filepath.Join(target, "Sales", "Борисов Борис (102).xlsx")
	require.NoError(t, os.MkdirAll(blocker, 0o755))

	res, err := f.svc.CreateEmployeeFiles(context.Background(), EmployeeFilesRequest{StaffPath: staff, TargetDir: target})
	require.NoError(t, err)

	assert.Equal(t, StatePartialError, res.State)
	assert.Equal(t, domain.StatusPartialError, res.Log.Status)
	assert.Equal(t, 1, res.Log.Errors)
	assert.Empty(t, res.Created)
	assert.NotEmpty(t, res.Log.EntriesAt(domain.LevelError))

	assert.NoFileExists(t, filepath.Join(target, "Sales", "Алексеев Алексей (101).xlsx"))
	assert.NoDirExists(t, filepath.Join(target, "IT"))
	// pre-existing content is untouched
	assert.DirExists(t, blocker)
}

func TestCreateEmployeeFiles_InvalidStaff(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "out")

	res, err := f.svc.CreateEmployeeFiles(context.Background(), EmployeeFilesRequest{
		StaffPath: filepath.Join(f.dir, "missing.xlsx"),
		TargetDir: target,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, StateFailed, res.State)
	assert.NoDirExists(t, target)
}

func TestCreateEmployeeFiles_Cancelled(t *testing.T) {
	f := newFixture(t)
	staff := f.staff(t, [3]string{"Иванов Иван", "101", "Sales"})
	target := filepath.Join(f.dir, "out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.svc.CreateEmployeeFiles(ctx, EmployeeFilesRequest{StaffPath: staff, TargetDir: target})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, domain.StatusCancelled, res.Log.Status)
	assert.NoDirExists(t, target)
}

// cancelOnFile is a context that reports cancellation once path exists.
type cancelOnFile struct {
	context.Context
	path string
}

func (c cancelOnFile) Err() error {
	if _, err := os.Stat(c.path); err == nil {
		return context.Canceled
	}
	return nil
}

func TestCreateEmployeeFiles_CancelledBetweenDepartments(t *testing.T) {
	f := newFixture(t)
	staff := f.staff(t,
		[3]string{"Алексеев Алексей", "101", "Sales"},
		[3]string{"Сидоров Сидор", "103", "IT"},
	)
	target := filepath.Join(f.dir, "out")
	first := filepath.Join(target, "Sales", "Алексеев Алексей (101).xlsx")
	ctx := cancelOnFile{Context: context.Background(), path: first}

	res, err := f.svc.CreateEmployeeFiles(ctx, EmployeeFilesRequest{StaffPath: staff, TargetDir: target})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, domain.StatusCancelled, res.Log.Status)
	assert.FileExists(t, first)
	assert.NoFileExists(t, filepath.Join(target, "IT", "Сидоров Сидор (103).xlsx"))

	require.NotNil(t, res.Transaction)
	require.True(t, res.Transaction.Active())

	rb, err := res.Transaction.Rollback(context.Background())
	require.NoError(t, err)
	assert.True(t, rb.OK())
	assert.Empty(t, rb.Kept)
	assert.NoDirExists(t, target)
}

func TestCreateEmployeeFiles_ReportsProgress(t *testing.T) {
	f := newFixture(t)
	staff := f.staff(t,
		[3]string{"Иванов Иван", "101", "Sales"},
		[3]string{"Сидоров Сидор", "102", "IT"},
	)

	var mu sync.Mutex
	var files, depts []domain.Progress
	observer := domain.ProgressFunc(func(p domain.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Scope == domain.ScopeFile {
			files = append(files, p)
		} else {
			depts = append(depts, p)
		}
	})

	_, err := f.svc.CreateEmployeeFiles(context.Background(), EmployeeFilesRequest{
		StaffPath: staff,
		TargetDir: filepath.Join(f.dir, "out"),
		Observer:  observer,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, files, 2)
	assert.Equal(t, 2, files[1].Processed)
	assert.Equal(t, 2, files[1].Total)
	require.NotEmpty(t, depts)
	last := depts[len(depts)-1]
	assert.Equal(t, last.Total, last.Processed)
}
