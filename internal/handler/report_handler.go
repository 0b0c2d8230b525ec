package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/internal/service"
	"github.com/locvowork/vacation_reports/internal/service/serviceutils"
)

type ReportHandler struct {
	svc service.ReportService
}

func NewReportHandler(svc service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// errorStatus maps pipeline errors to HTTP codes.
func errorStatus(err error) int {
	var ruleErr *rules.Error
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPrerequisite):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrNoDepartments):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoRunHistory):
		return http.StatusServiceUnavailable
	case errors.As(err, &ruleErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// logResponse answers with the run log; a run that ended in error status
// is reported as a server error even without a Go error.
func logResponse(c echo.Context, log *domain.OperationLog, err error, done string) error {
	if err != nil {
		return serviceutils.ResponseError(c, errorStatus(err), "Operation failed", err, log)
	}
	switch log.Status {
	case domain.StatusError:
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Operation failed", nil, log)
	case domain.StatusPartialError:
		return serviceutils.ResponseSuccess(c, http.StatusOK, done+" with errors", log)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, done, log)
}

func (h *ReportHandler) HealthHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "ok", nil)
}

func (h *ReportHandler) ScanHandler(c echo.Context) error {
	base := c.QueryParam("base")
	if base == "" {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Query parameter base is required", nil)
	}
	depts, err := h.svc.ScanDepartments(c.Request().Context(), base)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusNotFound, "Failed to scan departments", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Departments retrieved successfully", depts)
}

func (h *ReportHandler) ValidateHandler(c echo.Context) error {
	var req EmployeeFilesRequest
	if err := c.Bind(&req); err != nil || req.StaffFile == "" {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	res, err := h.svc.ValidateStaff(c.Request().Context(), req.StaffFile)
	if err != nil {
		return serviceutils.ResponseError(c, errorStatus(err), "Staff file is not valid", err, res)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Staff file is valid", res)
}

func (h *ReportHandler) EmployeeFilesHandler(c echo.Context) error {
	var req EmployeeFilesRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if req.StaffFile == "" || req.TargetDir == "" {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "staff_file and target_dir are required", nil)
	}

	ctx := c.Request().Context()
	res, err := h.svc.CreateEmployeeFiles(ctx, service.EmployeeFilesRequest{StaffPath: req.StaffFile, TargetDir: req.TargetDir})
	if res == nil {
		return serviceutils.ResponseError(c, errorStatus(err), "Operation failed", err)
	}
	// nobody is left to decide about a cancelled batch
	if res.Transaction != nil && res.Transaction.Active() {
		if rb, rbErr := res.Transaction.Rollback(ctx); rbErr != nil || !rb.OK() {
			logger.WarnLog(ctx, "rollback of cancelled batch incomplete: %v (%d failed)", rbErr, len(rb.Failed))
		}
	}

	body := EmployeeFilesResponse{
		State:      res.State.String(),
		Created:    res.Created,
		Skipped:    res.Skipped,
		Validation: res.Validation,
		Log:        res.Log,
	}
	if err != nil {
		return serviceutils.ResponseError(c, errorStatus(err), "Operation failed", err, body)
	}
	if res.Log.Status == domain.StatusPartialError {
		return serviceutils.ResponseSuccess(c, http.StatusOK, "Batch rolled back after errors", body)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Employee files created successfully", body)
}

func (h *ReportHandler) BlockReportsHandler(c echo.Context) error {
	var req ReportRequest
	if err := c.Bind(&req); err != nil || req.BaseDir == "" {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	log, err := h.svc.UpdateBlockReports(c.Request().Context(), service.BlockReportsRequest{
		BaseDir:     req.BaseDir,
		Departments: req.Departments,
	})
	return logResponse(c, log, err, "Block reports updated")
}

func (h *ReportHandler) GeneralReportHandler(c echo.Context) error {
	var req ReportRequest
	if err := c.Bind(&req); err != nil || req.BaseDir == "" {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	log, err := h.svc.CreateGeneralReport(c.Request().Context(), service.GeneralReportRequest{
		BaseDir:     req.BaseDir,
		Departments: req.Departments,
		OutputDir:   req.OutputDir,
	})
	return logResponse(c, log, err, "General report created")
}

func (h *ReportHandler) ListRunsHandler(c echo.Context) error {
	filter := domain.RunFilter{Operation: strings.TrimSpace(c.QueryParam("operation")), Limit: 20}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid "+name, err)
		}
		*dst = n
	}
	runs, err := h.svc.ListRuns(c.Request().Context(), filter)
	if err != nil {
		return serviceutils.ResponseError(c, errorStatus(err), "Failed to list runs", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Runs retrieved successfully", runs)
}

// Register mounts the routes on e.
func (h *ReportHandler) Register(e *echo.Echo) {
	e.GET("/health", h.HealthHandler)
	e.GET("/departments", h.ScanHandler)
	e.GET("/runs", h.ListRunsHandler)
	e.POST("/staff/validate", h.ValidateHandler)
	e.POST("/employee-files", h.EmployeeFilesHandler)
	e.POST("/block-reports", h.BlockReportsHandler)
	e.POST("/general-report", h.GeneralReportHandler)
}
