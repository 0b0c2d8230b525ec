package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/logger"
)

// ScanDepartments lists the department directories under baseDir with
// their employee documents and block reports. Hidden and service
// directories are skipped.
func (s *VacationService) ScanDepartments(ctx context.Context, baseDir string) ([]domain.DepartmentInfo, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", baseDir, err)
	}

	var out []domain.DepartmentInfo
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__") {
			continue
		}
		dept, err := scanDepartment(filepath.Join(baseDir, name))
		if err != nil {
			logger.WarnLog(ctx, "skip department %s: %v", name, err)
			continue
		}
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	logger.InfoLog(ctx, "found %d departments in %s", len(out), baseDir)
	return out, nil
}

func scanDepartment(dir string) (domain.DepartmentInfo, error) {
	info := domain.DepartmentInfo{Name: filepath.Base(dir), Path: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return info, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch name := e.Name(); {
		case IsBlockReport(name):
			info.BlockReports = append(info.BlockReports, filepath.Join(dir, name))
		case IsEmployeeFile(name):
			info.EmployeeFiles = append(info.EmployeeFiles, filepath.Join(dir, name))
		}
	}
	sort.Strings(info.EmployeeFiles)
	sort.Strings(info.BlockReports)
	return info, nil
}

// selectDepartments narrows the scan to the named departments, keeping the
// scan order. Unknown names are returned separately.
func selectDepartments(all []domain.DepartmentInfo, names []string) ([]domain.DepartmentInfo, []string) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]domain.DepartmentInfo, len(all))
	for _, d := range all {
		byName[d.Name] = d
	}
	want := make(map[string]bool, len(names))
	var unknown []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		want[n] = true
		if _, ok := byName[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	var out []domain.DepartmentInfo
	for _, d := range all {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out, unknown
}
