package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ProcessingConfig holds everything the report pipeline needs to know about
// templates and document layout.
type ProcessingConfig struct {
	Templates TemplatesConfig   `yaml:"templates" toml:"templates"`
	Staff     StaffConfig       `yaml:"staff" toml:"staff"`
	Sheets    SheetsConfig      `yaml:"sheets" toml:"sheets"`
	Calendar  CalendarConfig    `yaml:"calendar" toml:"calendar"`
	Print     PrintConfig       `yaml:"print" toml:"print"`
	Employee  EmployeeDocConfig `yaml:"employee_document" toml:"employee_document"`
	// Seconds per employee used only for the duration estimate shown after validation.
	SecondsPerFile float64 `yaml:"seconds_per_file" toml:"seconds_per_file"`
	// ReadWorkers bounds how many employee documents are read at once.
	ReadWorkers int `yaml:"read_workers" toml:"read_workers"`
}

type TemplatesConfig struct {
	Dir           string `yaml:"dir" toml:"dir"`
	Employee      string `yaml:"employee" toml:"employee"`
	BlockReport   string `yaml:"block_report" toml:"block_report"`
	GeneralReport string `yaml:"general_report" toml:"general_report"`
}

type StaffConfig struct {
	HeaderRow     int `yaml:"header_row" toml:"header_row"`
	MinEmployees  int `yaml:"min_employees" toml:"min_employees"`
	MaxEmployees  int `yaml:"max_employees" toml:"max_employees"`
	MaxFileSizeMB int `yaml:"max_file_size_mb" toml:"max_file_size_mb"`
}

type SheetsConfig struct {
	Rules  string `yaml:"rules" toml:"rules"`
	Report string `yaml:"report" toml:"report"`
	Print  string `yaml:"print" toml:"print"`
}

type CalendarConfig struct {
	TargetYear       int `yaml:"target_year" toml:"target_year"`
	StartColumn      int `yaml:"start_column" toml:"start_column"`
	MonthRow         int `yaml:"month_row" toml:"month_row"`
	DayRow           int `yaml:"day_row" toml:"day_row"`
	EmployeeStartRow int `yaml:"employee_start_row" toml:"employee_start_row"`
}

type PrintConfig struct {
	FirstRow          int `yaml:"first_row" toml:"first_row"`
	FirstPageCapacity int `yaml:"first_page_capacity" toml:"first_page_capacity"`
	OtherPageCapacity int `yaml:"other_page_capacity" toml:"other_page_capacity"`
	HeaderTop         int `yaml:"header_top" toml:"header_top"`
	HeaderBottom      int `yaml:"header_bottom" toml:"header_bottom"`
}

type EmployeeDocConfig struct {
	StatusCell     string `yaml:"status_cell" toml:"status_cell"`
	PeriodFirstRow int    `yaml:"period_first_row" toml:"period_first_row"`
	PeriodLastRow  int    `yaml:"period_last_row" toml:"period_last_row"`
	StartColumn    string `yaml:"start_column" toml:"start_column"`
	EndColumn      string `yaml:"end_column" toml:"end_column"`
	DaysColumn     string `yaml:"days_column" toml:"days_column"`
}

// DefaultProcessingConfig returns the layout of the stock templates.
func DefaultProcessingConfig() *ProcessingConfig {
	return &ProcessingConfig{
		Templates: TemplatesConfig{
			Dir:           "templates",
			Employee:      "employee_template.xlsx",
			BlockReport:   "block_report_template.xlsx",
			GeneralReport: "general_report_template.xlsx",
		},
		Staff: StaffConfig{
			HeaderRow:     5,
			MinEmployees:  1,
			MaxEmployees:  10000,
			MaxFileSizeMB: 50,
		},
		Sheets: SheetsConfig{
			Rules:  "rules",
			Report: "Report",
			Print:  "Print",
		},
		Calendar: CalendarConfig{
			TargetYear:       2026,
			StartColumn:      12,
			MonthRow:         7,
			DayRow:           8,
			EmployeeStartRow: 9,
		},
		Print: PrintConfig{
			FirstRow:          9,
			FirstPageCapacity: 20,
			OtherPageCapacity: 30,
			HeaderTop:         8,
			HeaderBottom:      8,
		},
		Employee: EmployeeDocConfig{
			StatusCell:     "B12",
			PeriodFirstRow: 15,
			PeriodLastRow:  29,
			StartColumn:    "C",
			EndColumn:      "D",
			DaysColumn:     "E",
		},
		SecondsPerFile: 0.6,
		ReadWorkers:    4,
	}
}

// LoadProcessingConfig reads a YAML or TOML file on top of the defaults.
// An empty path yields the defaults. Environment overrides are applied last.
func LoadProcessingConfig(path string) (*ProcessingConfig, error) {
	cfg := DefaultProcessingConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing YAML config: %w", err)
			}
		case ".toml":
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing TOML config: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *ProcessingConfig) applyEnvOverrides() {
	c.Calendar.TargetYear = getEnvInt("VACATION_TARGET_YEAR", c.Calendar.TargetYear)
	c.Templates.Dir = getEnvString("VACATION_TEMPLATES_DIR", c.Templates.Dir)
}

// Validate checks the numeric layout settings.
func (c *ProcessingConfig) Validate() error {
	if c.Staff.HeaderRow < 1 {
		return fmt.Errorf("staff.header_row must be >= 1")
	}
	if c.Staff.MinEmployees < 0 || c.Staff.MaxEmployees < c.Staff.MinEmployees {
		return fmt.Errorf("staff employee bounds [%d, %d] are invalid", c.Staff.MinEmployees, c.Staff.MaxEmployees)
	}
	if c.Calendar.TargetYear < 1900 {
		return fmt.Errorf("calendar.target_year %d is out of range", c.Calendar.TargetYear)
	}
	if c.Calendar.StartColumn < 1 || c.Calendar.MonthRow < 1 || c.Calendar.DayRow < 1 || c.Calendar.EmployeeStartRow < 1 {
		return fmt.Errorf("calendar coordinates must be positive")
	}
	if c.Print.FirstPageCapacity <= 0 || c.Print.OtherPageCapacity <= 0 {
		return fmt.Errorf("print page capacities must be > 0")
	}
	if c.Print.HeaderTop < 1 || c.Print.HeaderBottom < c.Print.HeaderTop {
		return fmt.Errorf("print header rows [%d, %d] are invalid", c.Print.HeaderTop, c.Print.HeaderBottom)
	}
	if c.Employee.PeriodLastRow < c.Employee.PeriodFirstRow {
		return fmt.Errorf("employee_document period rows are invalid")
	}
	if c.ReadWorkers < 1 {
		return fmt.Errorf("read_workers must be >= 1")
	}
	if c.Sheets.Rules == "" {
		return fmt.Errorf("sheets.rules must not be empty")
	}
	return nil
}

// TemplatePath resolves a template file name against the templates directory.
func (c *ProcessingConfig) TemplatePath(name string) string {
	if filepath.IsAbs(name) || c.Templates.Dir == "" {
		return name
	}
	return filepath.Join(c.Templates.Dir, name)
}

func (c *ProcessingConfig) EmployeeTemplatePath() string {
	return c.TemplatePath(c.Templates.Employee)
}

func (c *ProcessingConfig) BlockReportTemplatePath() string {
	return c.TemplatePath(c.Templates.BlockReport)
}

func (c *ProcessingConfig) GeneralReportTemplatePath() string {
	return c.TemplatePath(c.Templates.GeneralReport)
}
