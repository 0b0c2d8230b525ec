package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/locvowork/vacation_reports/internal/binding"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/rules"
	"github.com/locvowork/vacation_reports/internal/transaction"
)

type EmployeeFilesRequest struct {
	StaffPath string
	TargetDir string
	Observer  domain.ProgressObserver
}

type EmployeeFilesResult struct {
	Log        *domain.OperationLog
	State      BatchState
	History    []BatchState
	Validation domain.ValidationResult
	Created    []string
	// Skipped counts documents that already existed.
	Skipped int
	// Transaction is left active only for a cancelled batch; the caller
	// chooses between Rollback and Commit.
	Transaction *transaction.Manager
}

// CreateEmployeeFiles writes one document per employee of the staff
// workbook, grouped into a directory per department. The batch runs inside
// a transaction: any per-file error rolls the whole batch back.
func (s *VacationService) CreateEmployeeFiles(ctx context.Context, req EmployeeFilesRequest) (*EmployeeFilesResult, error) {
	r := s.startRun(ctx, OperationEmployeeFiles, req.Observer)
	m := newBatchMachine()
	res := &EmployeeFilesResult{Log: r.log}
	end := func(state BatchState, status domain.ProcessingStatus) {
		if err := m.advance(state); err != nil {
			r.warn("%v", err)
		}
		res.State = m.state
		res.History = m.history
		r.finish(status)
	}

	employees, vr := s.loadStaff(r.ctx, req.StaffPath)
	res.Validation = vr
	for _, w := range vr.Warnings {
		r.warn("%s", w)
	}
	if !vr.Valid() {
		for _, e := range vr.Errors {
			r.fail(nil, "%s", e)
		}
		end(StateFailed, domain.StatusError)
		return res, &domain.ValidationError{Problems: vr.Errors}
	}
	r.info("staff validated: %d employees, estimated %s", len(employees), vr.EstimatedDuration)

	tplPath := s.cfg.EmployeeTemplatePath()
	rs, err := r.catalog.Load(r.ctx, tplPath)
	if err != nil {
		r.fail(err, "load employee template rules")
		end(StateFailed, domain.StatusError)
		return res, err
	}
	if err := ctx.Err(); err != nil {
		end(StateCancelled, domain.StatusCancelled)
		return res, err
	}

	_, statErr := os.Stat(req.TargetDir)
	newTarget := errors.Is(statErr, os.ErrNotExist)
	if err := os.MkdirAll(req.TargetDir, 0o755); err != nil {
		r.fail(err, "create target directory %s", req.TargetDir)
		end(StateFailed, domain.StatusError)
		return res, err
	}
	tx := transaction.NewManager()
	if !tx.Begin(r.ctx, filepath.Join(req.TargetDir, ".backup_"+r.log.ID)) {
		if newTarget {
			_ = os.Remove(req.TargetDir)
		}
		err := errors.New("cannot start transaction")
		r.fail(err, "begin batch")
		end(StateFailed, domain.StatusError)
		return res, err
	}
	if newTarget {
		_ = tx.AddDirectoryCreation(r.ctx, req.TargetDir, map[string]string{"role": "target"})
	}

	_ = m.advance(StateCreatingStructure)
	order, groups := groupByDepartment(employees)
	dirs := make(map[string]string, len(order))
	for _, dept := range order {
		dir, err := createDepartmentDir(r.ctx, tx, req.TargetDir, dept)
		if err != nil {
			r.fail(err, "create directory for %s", dept)
			r.log.Errors++
			continue
		}
		dirs[dept] = dir
	}

	_ = m.advance(StateProcessingBlocks)
	processed := 0
	for i, dept := range order {
		if err := ctx.Err(); err != nil {
			r.warn("cancelled after %d of %d departments", i, len(order))
			res.Transaction = tx
			end(StateCancelled, domain.StatusCancelled)
			return res, err
		}
		r.report(domain.ScopeDepartment, OperationEmployeeFiles, i, len(order), dept)
		dir, ok := dirs[dept]
		if !ok {
			processed += len(groups[dept])
			continue
		}
		for _, e := range groups[dept] {
			if err := ctx.Err(); err != nil {
				r.warn("cancelled after %d of %d employees", processed, len(employees))
				res.Transaction = tx
				end(StateCancelled, domain.StatusCancelled)
				return res, err
			}
			path := filepath.Join(dir, EmployeeFileName(e))
			created, err := r.createEmployeeFile(tx, rs, tplPath, e, path)
			processed++
			switch {
			case err != nil:
				r.fail(&domain.ItemError{Item: filepath.Base(path), Err: err}, "employee %s", e.TabNumber())
				r.log.Errors++
			case created:
				res.Created = append(res.Created, path)
				r.log.OutputFiles = append(r.log.OutputFiles, path)
				r.log.Processed++
			default:
				res.Skipped++
				r.log.Processed++
			}
			r.report(domain.ScopeFile, OperationEmployeeFiles, processed, len(employees), filepath.Base(path))
		}
	}
	r.report(domain.ScopeDepartment, OperationEmployeeFiles, len(order), len(order), "")

	_ = m.advance(StateFinalizing)
	if r.log.Errors > 0 {
		rb, err := tx.Rollback(r.ctx)
		if err != nil {
			r.fail(err, "rollback")
		}
		for _, f := range rb.Failed {
			r.fail(f.Err, "rollback %s %s", f.Operation.Kind, f.Operation.Path)
		}
		r.warn("batch rolled back after %d errors: %d operations reversed", r.log.Errors, rb.Reversed)
		res.Created = nil
		r.log.OutputFiles = nil
		end(StatePartialError, domain.StatusPartialError)
		return res, nil
	}
	if err := tx.Commit(r.ctx); err != nil {
		r.fail(err, "commit")
	}
	r.info("created %d documents, %d already existed", len(res.Created), res.Skipped)
	end(StateSuccess, domain.StatusSuccess)
	return res, nil
}

func createDepartmentDir(ctx context.Context, tx *transaction.Manager, target, dept string) (string, error) {
	dir := filepath.Join(target, CleanDirName(dept))
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, nil
	case err == nil:
		return "", fmt.Errorf("%s exists and is not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}
	if err := tx.AddDirectoryCreation(ctx, dir, map[string]string{"department": dept}); err != nil {
		return "", err
	}
	return dir, os.Mkdir(dir, 0o755)
}

// createEmployeeFile fills the employee template and saves it at path. An
// existing document is left alone and reported as not created.
func (r *run) createEmployeeFile(tx *transaction.Manager, rs *rules.RuleSet, tplPath string, e domain.Employee, path string) (bool, error) {
	if info, err := os.Lstat(path); err == nil {
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("%s exists and is not a regular file", path)
		}
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := tx.AddFileCreation(r.ctx, path, map[string]string{"tab_number": e.TabNumber()}); err != nil {
		return false, err
	}
	doc, err := r.template(tplPath)
	if err != nil {
		return false, err
	}
	defer doc.Close()

	applied := binding.ApplyValues(r.ctx, doc, rs, r.catalog.Resolver(), e.Values(), doc.FirstSheet())
	if applied.Failed > 0 {
		r.warn("%s: %d of %d values could not be written", filepath.Base(path), applied.Failed, applied.Written+applied.Failed)
	}
	if err := doc.SaveAs(path); err != nil {
		return false, err
	}
	return true, nil
}
