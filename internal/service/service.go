package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/locvowork/vacation_reports/internal/config"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/pkg/progress"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

const (
	OperationEmployeeFiles = "employee_files"
	OperationBlockReports  = "block_reports"
	OperationGeneralReport = "general_report"
)

// ReportService is the use case surface the CLI and the HTTP handlers call.
type ReportService interface {
	ValidateStaff(ctx context.Context, staffPath string) (domain.ValidationResult, error)
	ScanDepartments(ctx context.Context, baseDir string) ([]domain.DepartmentInfo, error)
	CreateEmployeeFiles(ctx context.Context, req EmployeeFilesRequest) (*EmployeeFilesResult, error)
	UpdateBlockReports(ctx context.Context, req BlockReportsRequest) (*domain.OperationLog, error)
	CreateGeneralReport(ctx context.Context, req GeneralReportRequest) (*domain.OperationLog, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.RunRecord, error)
}

// ErrNoRunHistory is returned by ListRuns when no repository is configured.
var ErrNoRunHistory = fmt.Errorf("run history is not configured")

// VacationService implements ReportService on top of the filesystem.
type VacationService struct {
	cfg  *config.ProcessingConfig
	runs domain.RunRepository
	now  func() time.Time
}

// NewVacationService creates a new VacationService. runs may be nil.
func NewVacationService(cfg *config.ProcessingConfig, runs domain.RunRepository) *VacationService {
	if cfg == nil {
		cfg = config.DefaultProcessingConfig()
	}
	return &VacationService{cfg: cfg, runs: runs, now: time.Now}
}

func (s *VacationService) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.RunRecord, error) {
	if s.runs == nil {
		return nil, ErrNoRunHistory
	}
	return s.runs.List(ctx, filter)
}

// run is the state owned by one pipeline invocation: its log, the rule and
// template caches, and the progress channel. finish releases all of it.
type run struct {
	svc     *VacationService
	ctx     context.Context
	log     *domain.OperationLog
	catalog *rules.Catalog

	mu        sync.Mutex
	templates map[string][]byte
	progress  *progress.Dispatcher[domain.Progress]
}

func (s *VacationService) startRun(ctx context.Context, operation string, observer domain.ProgressObserver) *run {
	log := domain.NewOperationLog(operation, s.now())
	r := &run{
		svc:       s,
		log:       log,
		catalog:   rules.NewCatalog(s.cfg.Sheets.Rules),
		templates: make(map[string][]byte),
	}
	r.ctx = logger.WithRun(ctx, log.ID, operation)
	if observer != nil {
		r.progress = progress.NewDispatcher(observer.OnProgress,
			progress.WithPanicHandler(func(v interface{}) {
				logger.WarnLog(r.ctx, "progress observer panicked: %v", v)
			}))
	}
	return r
}

func (r *run) info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Info(msg)
	logger.InfoLog(r.ctx, "%s", msg)
}

func (r *run) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warning(msg)
	logger.WarnLog(r.ctx, "%s", msg)
}

func (r *run) fail(err error, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		r.log.Error(msg)
		logger.ErrorLog(r.ctx, nil, "%s", msg)
		return
	}
	r.log.Error(fmt.Sprintf("%s: %v", msg, err))
	logger.ErrorLog(r.ctx, err, "%s", msg)
}

func (r *run) report(scope domain.ProgressScope, operation string, processed, total int, current string) {
	if r.progress == nil {
		return
	}
	r.progress.Post(domain.Progress{
		Scope:     scope,
		Operation: operation,
		Processed: processed,
		Total:     total,
		Current:   current,
	})
}

// template opens a fresh copy of the template at path. The file is read
// once per run.
func (r *run) template(path string) (*workbook.Document, error) {
	r.mu.Lock()
	data, ok := r.templates[path]
	r.mu.Unlock()
	if !ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", path, err)
		}
		r.mu.Lock()
		r.templates[path] = b
		r.mu.Unlock()
		data = b
	}
	return workbook.OpenBytes(data)
}

// finish stamps the terminal status, persists the run and clears the caches.
func (r *run) finish(status domain.ProcessingStatus) *domain.OperationLog {
	r.log.Finish(status, r.svc.now())
	r.info("finished with status %s in %s", status, r.log.Duration().Round(time.Millisecond))

	r.catalog.Clear()
	r.mu.Lock()
	r.templates = make(map[string][]byte)
	r.mu.Unlock()
	if r.progress != nil {
		r.progress.Close()
	}

	if r.svc.runs != nil {
		if err := r.svc.runs.Save(context.WithoutCancel(r.ctx), r.log); err != nil {
			logger.WarnLog(r.ctx, "save run history: %v", err)
		}
	}
	return r.log
}
