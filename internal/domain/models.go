package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ==================== EMPLOYEES ====================

// Staff workbook column captions.
const (
	FieldFullName    = "ФИО работника"
	FieldTabNumber   = "Табельный номер"
	FieldPosition    = "Должность"
	FieldDepartment1 = "Подразделение 1"
	FieldDepartment2 = "Подразделение 2"
	FieldDepartment3 = "Подразделение 3"
	FieldDepartment4 = "Подразделение 4"
)

// fieldAliases maps template field names to staff workbook captions.
var fieldAliases = map[string]string{
	"full_name":   FieldFullName,
	"tab_number":  FieldTabNumber,
	"position":    FieldPosition,
	"department1": FieldDepartment1,
	"department2": FieldDepartment2,
	"department3": FieldDepartment3,
	"department4": FieldDepartment4,
}

// Employee is one row of the staff workbook. Fields keeps every column of the
// row keyed by its header caption.
type Employee struct {
	Fields map[string]string `json:"fields"`
	// SourceRow is the 1-based row in the staff workbook.
	SourceRow int `json:"source_row"`
}

func NewEmployee(fields map[string]string) Employee {
	if fields == nil {
		fields = map[string]string{}
	}
	return Employee{Fields: fields}
}

func (e Employee) field(key string) string {
	return strings.TrimSpace(e.Fields[key])
}

func (e Employee) FullName() string  { return e.field(FieldFullName) }
func (e Employee) TabNumber() string { return e.field(FieldTabNumber) }
func (e Employee) Position() string  { return e.field(FieldPosition) }

// Departments returns the four department levels, blank ones included.
func (e Employee) Departments() [4]string {
	return [4]string{
		e.field(FieldDepartment1),
		e.field(FieldDepartment2),
		e.field(FieldDepartment3),
		e.field(FieldDepartment4),
	}
}

// PrimaryDepartment is the first non-empty department level. An employee
// belongs to exactly one block per run.
func (e Employee) PrimaryDepartment() string {
	for _, d := range e.Departments() {
		if d != "" {
			return d
		}
	}
	return ""
}

// Values returns the fields keyed both by caption and by the snake case
// aliases templates use.
func (e Employee) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Fields)+len(fieldAliases))
	for k, v := range e.Fields {
		out[k] = v
	}
	for alias, caption := range fieldAliases {
		if _, ok := out[alias]; ok {
			continue
		}
		if v, ok := e.Fields[caption]; ok {
			out[alias] = v
		}
	}
	return out
}

// EmployeeFromValues rebuilds an Employee from values read out of a
// document, accepting either captions or aliases.
func EmployeeFromValues(values map[string]string) Employee {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if caption, ok := fieldAliases[k]; ok {
			if _, set := values[caption]; !set {
				fields[caption] = v
			}
			continue
		}
		fields[k] = v
	}
	return Employee{Fields: fields}
}

// ==================== VACATIONS ====================

// VacationStatus is the fill state of an employee document.
type VacationStatus int

const (
	StatusNotFilled VacationStatus = iota
	StatusFilledIncorrect
	StatusFilledCorrect
)

const (
	StatusTextNotFilled       = "Форма не заполнена"
	StatusTextFilledIncorrect = "Форма заполнена некорректно"
	StatusTextFilledCorrect   = "Форма заполнена корректно"
)

func (s VacationStatus) String() string {
	switch s {
	case StatusFilledCorrect:
		return StatusTextFilledCorrect
	case StatusFilledIncorrect:
		return StatusTextFilledIncorrect
	default:
		return StatusTextNotFilled
	}
}

// ParseVacationStatus maps a status cell to a VacationStatus. Text that
// mentions an error counts as an incorrect fill, text saying the form is not
// filled (or no text) as not filled, anything else as incorrect.
func ParseVacationStatus(text string) VacationStatus {
	t := strings.TrimSpace(text)
	lower := strings.ToLower(t)
	switch {
	case t == StatusTextFilledCorrect:
		return StatusFilledCorrect
	case t == StatusTextFilledIncorrect:
		return StatusFilledIncorrect
	case t == "" || t == StatusTextNotFilled:
		return StatusNotFilled
	case strings.Contains(lower, "некорректно"), strings.Contains(lower, "ошибка"):
		return StatusFilledIncorrect
	case strings.Contains(lower, "не заполнена"):
		return StatusNotFilled
	default:
		return StatusFilledIncorrect
	}
}

// VacationPeriod is one planned vacation, both ends inclusive.
type VacationPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// NewVacationPeriod builds a period; days <= 0 defaults to the inclusive span.
func NewVacationPeriod(start, end time.Time, days int) VacationPeriod {
	p := VacationPeriod{Start: start, End: end, Days: days}
	if p.Days <= 0 {
		p.Days = p.SpanDays()
	}
	return p
}

// SpanDays counts calendar days from Start to End inclusive.
func (p VacationPeriod) SpanDays() int {
	if p.End.Before(p.Start) {
		return 0
	}
	s := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// VacationInfo is what is read back from one filled employee document.
type VacationInfo struct {
	Employee Employee         `json:"employee"`
	Periods  []VacationPeriod `json:"periods"`
	Status   VacationStatus   `json:"status"`
	FilePath string           `json:"file_path"`
}

func (v VacationInfo) TotalDays() int {
	total := 0
	for _, p := range v.Periods {
		total += p.Days
	}
	return total
}

// ==================== REPORTS ====================

// BlockSummary is the per-department roll up, either computed from fresh
// employee documents or read back from a block report.
type BlockSummary struct {
	Name           string    `json:"name"`
	Department     string    `json:"department"`
	Total          int       `json:"total"`
	Filled         int       `json:"filled"`
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	NotFilled      int       `json:"not_filled"`
	Percentage     int       `json:"percentage"`
	UpdatedAt      time.Time `json:"updated_at"`
	SourceFilePath string    `json:"source_file_path"`
}

// Percent is the rounded share of correct fills; zero for an empty block.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(correct)*100/float64(total) + 0.5)
}

// SummarizeBlock counts statuses of the given documents.
func SummarizeBlock(name string, infos []VacationInfo) BlockSummary {
	s := BlockSummary{Name: name, Department: name, Total: len(infos)}
	for _, info := range infos {
		switch info.Status {
		case StatusFilledCorrect:
			s.Correct++
		case StatusFilledIncorrect:
			s.Incorrect++
		default:
			s.NotFilled++
		}
	}
	s.Filled = s.Correct + s.Incorrect
	s.Percentage = Percent(s.Correct, s.Total)
	return s
}

// DepartmentInfo describes one department directory.
type DepartmentInfo struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	EmployeeFiles []string `json:"employee_files"`
	BlockReports  []string `json:"block_reports"`
}

func (d DepartmentInfo) HasBlockReport() bool { return len(d.BlockReports) > 0 }

// ==================== RUNS ====================

// ProcessingStatus is the terminal status of a run.
type ProcessingStatus string

const (
	StatusSuccess      ProcessingStatus = "success"
	StatusPartialError ProcessingStatus = "partial_error"
	StatusError        ProcessingStatus = "error"
	StatusCancelled    ProcessingStatus = "cancelled"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

type LogEntry struct {
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// OperationLog is the user facing record of one run.
type OperationLog struct {
	ID          string           `json:"id" db:"id"`
	Operation   string           `json:"operation" db:"operation"`
	StartedAt   time.Time        `json:"started_at" db:"started_at"`
	FinishedAt  time.Time        `json:"finished_at" db:"finished_at"`
	Status      ProcessingStatus `json:"status" db:"status"`
	Entries     []LogEntry       `json:"entries"`
	Processed   int              `json:"processed" db:"processed"`
	Errors      int              `json:"errors" db:"errors"`
	OutputFiles []string         `json:"output_files"`
}

func NewOperationLog(operation string, now time.Time) *OperationLog {
	return &OperationLog{
		ID:        uuid.NewString(),
		Operation: operation,
		StartedAt: now,
	}
}

func (l *OperationLog) add(level LogLevel, msg string) {
	l.Entries = append(l.Entries, LogEntry{Level: level, Message: msg, Timestamp: time.Now()})
}

func (l *OperationLog) Info(msg string)    { l.add(LevelInfo, msg) }
func (l *OperationLog) Warning(msg string) { l.add(LevelWarning, msg) }
func (l *OperationLog) Error(msg string)   { l.add(LevelError, msg) }

// Finish stamps the terminal status.
func (l *OperationLog) Finish(status ProcessingStatus, now time.Time) {
	l.Status = status
	l.FinishedAt = now
}

func (l *OperationLog) Duration() time.Duration {
	if l.FinishedAt.IsZero() {
		return 0
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

// EntriesAt filters the log by level.
func (l *OperationLog) EntriesAt(level LogLevel) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// RunRecord is the persisted summary of an OperationLog.
type RunRecord struct {
	ID         string           `json:"id" db:"id"`
	Operation  string           `json:"operation" db:"operation"`
	Status     ProcessingStatus `json:"status" db:"status"`
	Processed  int              `json:"processed" db:"processed"`
	Errors     int              `json:"errors" db:"errors"`
	StartedAt  time.Time        `json:"started_at" db:"started_at"`
	FinishedAt time.Time        `json:"finished_at" db:"finished_at"`
	Messages   int              `json:"messages" db:"messages"`
}

func (l *OperationLog) Record() RunRecord {
	return RunRecord{
		ID:         l.ID,
		Operation:  l.Operation,
		Status:     l.Status,
		Processed:  l.Processed,
		Errors:     l.Errors,
		StartedAt:  l.StartedAt,
		FinishedAt: l.FinishedAt,
		Messages:   len(l.Entries),
	}
}

// ValidationResult reports the staff workbook check.
type ValidationResult struct {
	Errors            []string      `json:"errors"`
	Warnings          []string      `json:"warnings"`
	EmployeeCount     int           `json:"employee_count"`
	UniqueTabNumbers  int           `json:"unique_tab_numbers"`
	Duplicates        int           `json:"duplicates"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// ==================== PROGRESS ====================

// ProgressScope separates the department stream from the file stream.
type ProgressScope string

const (
	ScopeDepartment ProgressScope = "department"
	ScopeFile       ProgressScope = "file"
)

type Progress struct {
	Scope     ProgressScope `json:"scope"`
	Operation string        `json:"operation"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Current   string        `json:"current"`
}
