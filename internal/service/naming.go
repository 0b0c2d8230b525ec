package service

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/locvowork/vacation_reports/internal/domain"
)

const (
	maxNameLength   = 100
	timestampLayout = "20060102_150405"

	blockReportPrefix   = "Отчет по блоку_"
	generalReportPrefix = "ОБЩИЙ_ОТЧЕТ_"
)

var (
	forbiddenChars    = regexp.MustCompile(`[\\/:*?"<>|]`)
	reportTimestampRe = regexp.MustCompile(`_(\d{8}_\d{6})\.xlsx$`)

	reportIndicators = []string{"Отчет по блоку", "отчет", "ОБЩИЙ", "report_", "summary_", "GENERAL_"}
)

// CleanName makes s safe as a file or directory name.
func CleanName(s string) string {
	clean := strings.TrimSpace(forbiddenChars.ReplaceAllString(s, "_"))
	if utf8.RuneCountInString(clean) > maxNameLength {
		clean = strings.TrimSpace(string([]rune(clean)[:maxNameLength]))
	}
	if clean == "" {
		return "unnamed"
	}
	return clean
}

// CleanDirName also drops trailing dots, which some filesystems reject.
func CleanDirName(s string) string {
	clean := strings.TrimRight(CleanName(s), ". ")
	if clean == "" {
		return "unnamed"
	}
	return clean
}

func EmployeeFileName(e domain.Employee) string {
	return fmt.Sprintf("%s (%s).xlsx", CleanName(e.FullName()), CleanName(e.TabNumber()))
}

func BlockReportFileName(block string, at time.Time) string {
	return fmt.Sprintf("%s%s_%s.xlsx", blockReportPrefix, CleanName(block), at.Format(timestampLayout))
}

func GeneralReportFileName(at time.Time) string {
	return fmt.Sprintf("%s%s.xlsx", generalReportPrefix, at.Format(timestampLayout))
}

// ReportTimestamp extracts the timestamp embedded in a report file name.
func ReportTimestamp(name string) (time.Time, bool) {
	m := reportTimestampRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(timestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func isLockFile(name string) bool {
	return strings.HasPrefix(name, "~$")
}

func isXLSX(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

// IsReportFile reports whether name looks like any generated report.
func IsReportFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "!") {
		return true
	}
	lower := strings.ToLower(base)
	for _, ind := range reportIndicators {
		if strings.Contains(base, ind) || strings.Contains(lower, strings.ToLower(ind)) {
			return true
		}
	}
	return false
}

// IsBlockReport reports whether name is a block report.
func IsBlockReport(name string) bool {
	base := filepath.Base(name)
	return isXLSX(base) && !isLockFile(base) && strings.HasPrefix(base, blockReportPrefix)
}

// IsEmployeeFile reports whether name is an employee document: any
// workbook in a department directory that is neither a lock file nor a
// report.
func IsEmployeeFile(name string) bool {
	base := filepath.Base(name)
	return isXLSX(base) && !isLockFile(base) && !IsReportFile(base)
}

// LatestReport picks the report with the newest embedded timestamp. Names
// without a timestamp rank below any that have one; ties go to the
// lexically greatest name.
func LatestReport(names []string) (string, bool) {
	best := ""
	var bestTime time.Time
	bestHas := false
	for _, n := range names {
		t, has := ReportTimestamp(n)
		switch {
		case best == "":
		case has && !bestHas:
		case has == bestHas && t.After(bestTime):
		case has == bestHas && t.Equal(bestTime) && n > best:
		default:
			continue
		}
		best, bestTime, bestHas = n, t, has
	}
	return best, best != ""
}
