package handler

import "github.com/locvowork/vacation_reports/internal/domain"

// EmployeeFilesRequest is the body of POST /employee-files.
type EmployeeFilesRequest struct {
	StaffFile string `json:"staff_file"`
	TargetDir string `json:"target_dir"`
}

// ReportRequest is the body of the block and general report endpoints.
type ReportRequest struct {
	BaseDir     string   `json:"base_dir"`
	Departments []string `json:"departments"`
	// OutputDir only applies to the general report.
	OutputDir string `json:"output_dir,omitempty"`
}

// EmployeeFilesResponse flattens the batch result for JSON.
type EmployeeFilesResponse struct {
	State      string                  `json:"state"`
	Created    []string                `json:"created"`
	Skipped    int                     `json:"skipped"`
	Validation domain.ValidationResult `json:"validation"`
	Log        *domain.OperationLog    `json:"log"`
}
