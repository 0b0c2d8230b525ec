package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/internal/service"
)

type fakeService struct {
	validation domain.ValidationResult
	validErr   error
	depts      []domain.DepartmentInfo
	files      *service.EmployeeFilesResult
	filesErr   error
	log        *domain.OperationLog
	logErr     error
	runs       []domain.RunRecord
	runsErr    error

	gotBlocks  service.BlockReportsRequest
	gotGeneral service.GeneralReportRequest
	gotFilter  domain.RunFilter
}

func (f *fakeService) ValidateStaff(ctx context.Context, path string) (domain.ValidationResult, error) {
	return f.validation, f.validErr
}

func (f *fakeService) ScanDepartments(ctx context.Context, base string) ([]domain.DepartmentInfo, error) {
	return f.depts, nil
}

func (f *fakeService) CreateEmployeeFiles(ctx context.Context, req service.EmployeeFilesRequest) (*service.EmployeeFilesResult, error) {
	return f.files, f.filesErr
}

func (f *fakeService) UpdateBlockReports(ctx context.Context, req service.BlockReportsRequest) (*domain.OperationLog, error) {
	f.gotBlocks = req
	return f.log, f.logErr
}

func (f *fakeService) CreateGeneralReport(ctx context.Context, req service.GeneralReportRequest) (*domain.OperationLog, error) {
	f.gotGeneral = req
	return f.log, f.logErr
}

func (f *fakeService) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.RunRecord, error) {
	f.gotFilter = filter
	return f.runs, f.runsErr
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func serve(t *testing.T, svc service.ReportService, method, target, body string) (int, envelope) {
	t.Helper()
	e := echo.New()
	NewReportHandler(svc).Register(e)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func finished(status domain.ProcessingStatus) *domain.OperationLog {
	log := &domain.OperationLog{ID: "run-1", Operation: service.OperationBlockReports}
	log.Status = status
	return log
}

func TestHealth(t *testing.T) {
	code, env := serve(t, &fakeService{}, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestScanRequiresBase(t *testing.T) {
	code, env := serve(t, &fakeService{}, http.MethodGet, "/departments", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	svc := &fakeService{depts: []domain.DepartmentInfo{{Name: "Sales", Path: "/data/Sales"}}}
	code, env = serve(t, svc, http.MethodGet, "/departments?base=/data", "")
	assert.Equal(t, http.StatusOK, code)
	var depts []domain.DepartmentInfo
	require.NoError(t, json.Unmarshal(env.Data, &depts))
	require.Len(t, depts, 1)
	assert.Equal(t, "Sales", depts[0].Name)
}

func TestValidateStaff(t *testing.T) {
	svc := &fakeService{
		validation: domain.ValidationResult{Errors: []string{"too few employees"}},
		validErr:   &domain.ValidationError{Problems: []string{"too few employees"}},
	}
	code, env := serve(t, svc, http.MethodPost, "/staff/validate", `{"staff_file":"staff.xlsx"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Error, "too few employees")
}

func TestEmployeeFiles(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		code, _ := serve(t, &fakeService{}, http.MethodPost, "/employee-files", `{"staff_file":"staff.xlsx"}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("created", func(t *testing.T) {
		svc := &fakeService{files: &service.EmployeeFilesResult{
			Log:     finished(domain.StatusSuccess),
			State:   service.StateSuccess,
			Created: []string{"/out/Sales/a (1).xlsx"},
		}}
		code, env := serve(t, svc, http.MethodPost, "/employee-files", `{"staff_file":"staff.xlsx","target_dir":"/out"}`)
		assert.Equal(t, http.StatusCreated, code)
		var body EmployeeFilesResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, service.StateSuccess.String(), body.State)
		assert.Equal(t, []string{"/out/Sales/a (1).xlsx"}, body.Created)
	})

	t.Run("template rules unusable", func(t *testing.T) {
		svc := &fakeService{
			files:    &service.EmployeeFilesResult{Log: finished(domain.StatusError), State: service.StateFailed},
			filesErr: &rules.Error{Kind: rules.KindEmptyRuleSet, Path: "employee.xlsx", Sheet: "rules"},
		}
		code, env := serve(t, svc, http.MethodPost, "/employee-files", `{"staff_file":"staff.xlsx","target_dir":"/out"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, env.Error, "no valid rules")
	})
}

func TestBlockReports(t *testing.T) {
	svc := &fakeService{log: finished(domain.StatusPartialError)}
	code, env := serve(t, svc, http.MethodPost, "/block-reports", `{"base_dir":"/data","departments":["Sales"]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Block reports updated with errors", env.Message)
	assert.Equal(t, "/data", svc.gotBlocks.BaseDir)
	assert.Equal(t, []string{"Sales"}, svc.gotBlocks.Departments)

	svc = &fakeService{log: finished(domain.StatusError)}
	code, _ = serve(t, svc, http.MethodPost, "/block-reports", `{"base_dir":"/data"}`)
	assert.Equal(t, http.StatusInternalServerError, code)

	svc = &fakeService{logErr: service.ErrNoDepartments}
	code, _ = serve(t, svc, http.MethodPost, "/block-reports", `{"base_dir":"/data"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGeneralReportPrerequisite(t *testing.T) {
	svc := &fakeService{
		log:    finished(domain.StatusError),
		logErr: &domain.PrerequisiteError{Missing: []string{"Sales"}},
	}
	code, env := serve(t, svc, http.MethodPost, "/general-report", `{"base_dir":"/data","output_dir":"/out"}`)
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Contains(t, env.Error, "Sales")
	assert.Equal(t, "/out", svc.gotGeneral.OutputDir)
}

func TestListRuns(t *testing.T) {
	svc := &fakeService{runs: []domain.RunRecord{{ID: "run-1", Status: domain.StatusSuccess}}}
	code, env := serve(t, svc, http.MethodGet, "/runs?limit=5&offset=10&operation=block_reports", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.RunFilter{Operation: "block_reports", Limit: 5, Offset: 10}, svc.gotFilter)
	var runs []domain.RunRecord
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	assert.Len(t, runs, 1)

	code, _ = serve(t, svc, http.MethodGet, "/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, &fakeService{runsErr: service.ErrNoRunHistory}, http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = serve(t, &fakeService{runsErr: errors.New("boom")}, http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}
